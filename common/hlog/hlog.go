package hlog

import (
	"io"
	"os"
)

var (
	// 默认记录器，供应用使用
	logger FullLogger = newDefaultLogger(os.Stderr)

	// 系统记录器，与默认记录器共享输出和级别，只多一个前缀
	sysLogger FullLogger = &systemLogger{logger: logger, prefix: systemLogPrefix}
)

// SetOutput 设置日志的写入器。默认为 os.Stderr。
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
	if sl, ok := sysLogger.(*systemLogger); !ok || sl.logger != logger {
		sysLogger.SetOutput(w)
	}
}

// SetLevel 设置日志的输出级别，低于该级别将不输出，系统日志同样受其约束。默认级别为 LevelTrace。
func SetLevel(lv Level) {
	logger.SetLevel(lv)
	if sl, ok := sysLogger.(*systemLogger); !ok || sl.logger != logger {
		sysLogger.SetLevel(lv)
	}
}

// DefaultLogger 返回默认记录器。
func DefaultLogger() FullLogger {
	return logger
}

// SystemLogger 返回 breeze 内部使用的系统记录器，业务代码应使用 DefaultLogger。
func SystemLogger() FullLogger {
	return sysLogger
}

// SetSystemLogger 设置系统记录器的底层实现。并发不安全，须在服务启动前调用。
func SetSystemLogger(v FullLogger) {
	sysLogger = &systemLogger{logger: v, prefix: systemLogPrefix}
}

// SetLogger 同时替换默认记录器和系统记录器的底层实现。并发不安全，须在服务启动前调用。
func SetLogger(v FullLogger) {
	logger = v
	SetSystemLogger(v)
}
