package hlog

const (
	systemLogPrefix = "breeze: "

	// EngineErrorFormat 是连接级错误的统一格式，静默模式下不输出。
	EngineErrorFormat = "连接处理出错：错误=%s 远端=%s"
)
