package recovery

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/favbox/breeze/app"
	"github.com/favbox/breeze/protocol"
)

const maxFrames = 32

var dunno = []byte("???")

// Recovery 返回可以从 next 的任何恐慌中恢复的处理器。
// 默认记录错误和堆栈，标头尚未发出时回复 500。
// 通过 WithRecoveryHandler 可以自定义恢复逻辑。
func Recovery(next app.Handler, opts ...Option) app.Handler {
	cfg := newOptions(opts...)

	return app.HandlerFunc(func(req *protocol.Request, resp *protocol.Response) {
		defer func() {
			if err := recover(); err != nil {
				cfg.recoveryHandler(req, resp, err, stack(3))
			}
		}()
		next.Service(req, resp)
	})
}

// 从调用方起跳过 skip 帧，逐帧输出位置、函数名与源码行。
func stack(skip int) []byte {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip+1, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	buf := new(bytes.Buffer)
	files := make(map[string][][]byte)
	for {
		f, more := frames.Next()
		fmt.Fprintf(buf, "%s:%d (0x%x)\n", f.File, f.Line, f.PC)
		lines, ok := files[f.File]
		if !ok {
			if data, err := os.ReadFile(f.File); err == nil {
				lines = bytes.Split(data, []byte{'\n'})
			}
			files[f.File] = lines
		}
		if lines != nil {
			fmt.Fprintf(buf, "\t%s: %s\n", function(f.Function), source(lines, f.Line))
		}
		if !more {
			break
		}
	}
	return buf.Bytes()
}

// 返回第 n 行（从 1 起）去掉首尾空白的内容。
func source(lines [][]byte, n int) []byte {
	n--
	if n < 0 || n >= len(lines) {
		return dunno
	}
	return bytes.TrimSpace(lines[n])
}

// 去掉函数全名中的包路径，如 "github.com/a/b.(*T).m" 变为 "(*T).m"。
func function(name string) []byte {
	if name == "" {
		return dunno
	}
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return []byte(name)
}
