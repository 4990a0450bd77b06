package hlog

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

// Debugf 调用默认记录器的 Debugf 方法。
func Debugf(format string, v ...any) {
	logger.Debugf(format, v...)
}

// Infof 调用默认记录器的 Infof 方法。
func Infof(format string, v ...any) {
	logger.Infof(format, v...)
}

// Warnf 调用默认记录器的 Warnf 方法。
func Warnf(format string, v ...any) {
	logger.Warnf(format, v...)
}

// Errorf 调用默认记录器的 Errorf 方法。
func Errorf(format string, v ...any) {
	logger.Errorf(format, v...)
}

// Fatalf 调用默认记录器的 Fatalf 方法，然后 os.Exit(1)。
func Fatalf(format string, v ...any) {
	logger.Fatalf(format, v...)
}

// 经由包级函数或系统记录器调用时，调用者位于第 4 层栈帧。
const defaultCallDepth = 4

// 基于标准库 log 的记录器，级别可在运行中并发修改。
type defaultLogger struct {
	std   *log.Logger
	level atomic.Int32
	depth int
}

func newDefaultLogger(w io.Writer) *defaultLogger {
	return &defaultLogger{
		std:   log.New(w, "", log.LstdFlags|log.Lshortfile|log.Lmicroseconds),
		depth: defaultCallDepth,
	}
}

func (l *defaultLogger) SetOutput(w io.Writer) { l.std.SetOutput(w) }
func (l *defaultLogger) SetLevel(lv Level)     { l.level.Store(int32(lv)) }

func (l *defaultLogger) Trace(v ...any)  { l.log(LevelTrace, nil, v) }
func (l *defaultLogger) Debug(v ...any)  { l.log(LevelDebug, nil, v) }
func (l *defaultLogger) Info(v ...any)   { l.log(LevelInfo, nil, v) }
func (l *defaultLogger) Notice(v ...any) { l.log(LevelNotice, nil, v) }
func (l *defaultLogger) Warn(v ...any)   { l.log(LevelWarn, nil, v) }
func (l *defaultLogger) Error(v ...any)  { l.log(LevelError, nil, v) }
func (l *defaultLogger) Fatal(v ...any)  { l.log(LevelFatal, nil, v) }

func (l *defaultLogger) Tracef(format string, v ...any)  { l.log(LevelTrace, &format, v) }
func (l *defaultLogger) Debugf(format string, v ...any)  { l.log(LevelDebug, &format, v) }
func (l *defaultLogger) Infof(format string, v ...any)   { l.log(LevelInfo, &format, v) }
func (l *defaultLogger) Noticef(format string, v ...any) { l.log(LevelNotice, &format, v) }
func (l *defaultLogger) Warnf(format string, v ...any)   { l.log(LevelWarn, &format, v) }
func (l *defaultLogger) Errorf(format string, v ...any)  { l.log(LevelError, &format, v) }
func (l *defaultLogger) Fatalf(format string, v ...any)  { l.log(LevelFatal, &format, v) }

// 默认记录器不从上下文中提取字段。
func (l *defaultLogger) CtxTracef(_ context.Context, format string, v ...any) {
	l.log(LevelTrace, &format, v)
}

func (l *defaultLogger) CtxDebugf(_ context.Context, format string, v ...any) {
	l.log(LevelDebug, &format, v)
}

func (l *defaultLogger) CtxInfof(_ context.Context, format string, v ...any) {
	l.log(LevelInfo, &format, v)
}

func (l *defaultLogger) CtxNoticef(_ context.Context, format string, v ...any) {
	l.log(LevelNotice, &format, v)
}

func (l *defaultLogger) CtxWarnf(_ context.Context, format string, v ...any) {
	l.log(LevelWarn, &format, v)
}

func (l *defaultLogger) CtxErrorf(_ context.Context, format string, v ...any) {
	l.log(LevelError, &format, v)
}

func (l *defaultLogger) CtxFatalf(_ context.Context, format string, v ...any) {
	l.log(LevelFatal, &format, v)
}

// 所有方法都直接调用 log，以保证调用栈深度一致。
func (l *defaultLogger) log(lv Level, format *string, v []any) {
	if Level(l.level.Load()) > lv {
		return
	}
	var msg string
	if format != nil {
		msg = fmt.Sprintf(*format, v...)
	} else {
		msg = fmt.Sprint(v...)
	}
	_ = l.std.Output(l.depth, lv.String()+msg)
	if lv == LevelFatal {
		os.Exit(1)
	}
}
