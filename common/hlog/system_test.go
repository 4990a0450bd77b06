package hlog

import (
	"bytes"
	"context"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemLogger(t *testing.T) {
	buf := useTestLoggers(t)

	item := "工作"
	sl := SystemLogger()
	sl.Trace("跟踪", item)
	sl.Debugf("收到%s清单", item)
	sl.Noticef("%s中出现一些状况", item)
	sl.CtxWarnf(context.Background(), "%s可能失败", item)

	assert.Equal(t, "[Trace] breeze: 跟踪工作\n"+
		"[Debug] breeze: 收到工作清单\n"+
		"[Notice] breeze: 工作中出现一些状况\n"+
		"[Warn] breeze: 工作可能失败\n", buf.String())
}

func TestSystemLoggerSilentMode(t *testing.T) {
	buf := useTestLoggers(t)

	SetSilentMode(true)
	defer SetSilentMode(false)
	SystemLogger().Errorf(EngineErrorFormat, "连接已关闭", "127.0.0.1:80")
	SystemLogger().CtxErrorf(context.Background(), EngineErrorFormat, "连接已关闭", "127.0.0.1:80")
	SystemLogger().Errorf("%s失败", "工作")

	assert.Equal(t, "[Error] breeze: 工作失败\n", buf.String())
}

func TestSetSystemLogger(t *testing.T) {
	buf := useTestLoggers(t)

	var own bytes.Buffer
	SetSystemLogger(&defaultLogger{std: log.New(&own, "", 0), depth: defaultCallDepth})
	SystemLogger().Infof("独立")
	Infof("默认")

	assert.Equal(t, "[Info] breeze: 独立\n", own.String())
	assert.Equal(t, "[Info] 默认\n", buf.String())

	// 独立的系统记录器同样受 SetLevel 约束
	SetLevel(LevelError)
	SystemLogger().Infof("丢弃")
	assert.Equal(t, "[Info] breeze: 独立\n", own.String())
}
