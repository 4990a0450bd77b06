// Package shtml 提供服务器端包含（SSI）页面的处理器。
//
// 页面中独占一行的 <!-- #include "file" --> 指令被替换为文件内容，被包含的文件可以继续包含其它文件。
package shtml

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/favbox/breeze/common/hlog"
	"github.com/favbox/breeze/protocol"
	"github.com/favbox/breeze/protocol/consts"
	"github.com/fsnotify/fsnotify"
)

// 最大包含深度。
const maxDepth = 10

var includeLine = regexp.MustCompile(`^\s*<!--\s*#include\s+".+"\s*-->\s*$`)

// Options 是 SSI 处理器的配置项。
type Options struct {
	// DocRoot 是页面与被包含文件的根目录，默认为当前工作目录。
	DocRoot string
	// Encoding 写入 Content-Type 的字符集，默认 "UTF-8"。
	Encoding string
	// Cache 为真时在内存中缓存文件内容，并通过 fsnotify 在文件变动时失效。
	Cache bool
}

// Handler 是 SSI 页面处理器，可并发使用。
type Handler struct {
	root        string
	contentType string

	mu      sync.RWMutex
	cache   map[string][]byte
	watcher *fsnotify.Watcher
	done    chan struct{}
}

var _ protocol.Handler = (*Handler)(nil)

// New 创建 SSI 处理器。启用缓存时无法创建文件监视器将返回错误。
func New(opts Options) (*Handler, error) {
	root := opts.DocRoot
	if root == "" {
		root = "."
	}
	encoding := opts.Encoding
	if encoding == "" {
		encoding = consts.DefaultEncoding
	}
	h := &Handler{
		root:        filepath.Clean(root),
		contentType: "text/html; charset=" + encoding,
	}
	if !opts.Cache {
		return h, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监视器失败：%w", err)
	}
	h.cache = make(map[string][]byte)
	h.watcher = watcher
	h.done = make(chan struct{})
	go h.watch()
	return h, nil
}

// Close 停止文件监视，未启用缓存时无操作。
func (h *Handler) Close() error {
	if h.watcher == nil {
		return nil
	}
	err := h.watcher.Close()
	<-h.done
	return err
}

// Service 展开请求路径对应的页面并回复。
//
// 任何一层包含出错都会放弃整个页面，改为回复对应的错误状态。
func (h *Handler) Service(req *protocol.Request, resp *protocol.Response) {
	data, err := h.expand(req.Path(), 0)
	if err != nil {
		var ie *includeError
		if !errors.As(err, &ie) {
			ie = &includeError{code: consts.StatusInternalServerError, msg: err.Error()}
		}
		hlog.SystemLogger().Debugf("包含文件失败：路径=%s 状态=%d", req.Path(), ie.code)
		resp.SetStatusCode(ie.code)
		resp.SetContentType(h.contentType)
		_, _ = resp.WriteString(ie.msg)
		resp.Flush()
		return
	}
	resp.SetContentType(h.contentType)
	_, _ = resp.Write(data)
	resp.Flush()
}

type includeError struct {
	code int
	msg  string
}

func (e *includeError) Error() string { return e.msg }

func (h *Handler) expand(name string, depth int) ([]byte, error) {
	depth++
	if depth > maxDepth {
		return nil, &includeError{consts.StatusInternalServerError,
			fmt.Sprintf("500 server error: %s<br>\nRecursive loop detected in included files.", name)}
	}
	if hasDotDotSegment(name) {
		return nil, &includeError{consts.StatusForbidden,
			fmt.Sprintf("403 Forbidden: %s<br>\nDo not use ../ in your file path", name)}
	}

	filename := filepath.Join(h.root, filepath.FromSlash(name))
	content, err := h.readFile(filename)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	for _, line := range bytes.SplitAfter(content, []byte("\n")) {
		if !includeLine.Match(line) {
			out.Write(line)
			continue
		}
		parts := strings.Split(string(line), `"`)
		if len(parts) != 3 {
			continue
		}
		included, err := h.expand(parts[1], depth)
		if err != nil {
			return nil, err
		}
		out.Write(included)
	}
	return out.Bytes(), nil
}

func (h *Handler) readFile(filename string) ([]byte, error) {
	if h.cache != nil {
		h.mu.RLock()
		content, ok := h.cache[filename]
		h.mu.RUnlock()
		if ok {
			return content, nil
		}
	}

	info, err := os.Stat(filename)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, &includeError{consts.StatusNotFound, "404 File not found: " + filename}
	case err != nil:
		return nil, &includeError{consts.StatusForbidden, "403 Forbidden: " + filename}
	case info.IsDir():
		return nil, &includeError{consts.StatusInternalServerError,
			fmt.Sprintf("500 Server error: %s<br>\nCannot include directory", filename)}
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, &includeError{consts.StatusForbidden, "403 Forbidden: " + filename}
	}

	if h.cache != nil {
		if err := h.watcher.Add(filename); err != nil {
			hlog.SystemLogger().Warnf("无法监视包含文件：路径=%s 错误=%v", filename, err)
			return content, nil
		}
		h.mu.Lock()
		h.cache[filename] = content
		h.mu.Unlock()
	}
	return content, nil
}

func (h *Handler) watch() {
	defer close(h.done)
	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Create) != 0 {
				hlog.SystemLogger().Debugf("包含文件已变动：路径=%s 操作=%s", event.Name, event.Op)
				h.evict(event.Name)
			}
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			hlog.SystemLogger().Errorf("监视包含文件时出错：%v", err)
		}
	}
}

func (h *Handler) evict(filename string) {
	h.mu.Lock()
	delete(h.cache, filepath.Clean(filename))
	h.mu.Unlock()
}

// Cached 报告文件内容是否在缓存中。
func (h *Handler) Cached(name string) bool {
	if h.cache == nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.cache[filepath.Join(h.root, filepath.FromSlash(name))]
	return ok
}

func hasDotDotSegment(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
