// Package cmd 提供 breezed 的命令行命令。
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/favbox/breeze/common/hlog"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	silent   bool
)

var rootCmd = &cobra.Command{
	Use:   "breezed",
	Short: "breezed - 嵌入式 HTTP/1.1 服务器",
	Long: `breezed 以 breeze 引擎提供静态文件、SSI 页面、连接状态与 Prometheus 指标。

配置：
  通过 --config 指定 YAML、TOML 或 JSON 配置文件。
  环境变量以 BREEZE_ 为前缀覆盖配置，例如 BREEZE_PORT=9090。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lv, ok := parseLevel(logLevel)
		if !ok {
			return fmt.Errorf("未知的日志级别：%s", logLevel)
		}
		hlog.SetLevel(lv)
		hlog.SetSilentMode(silent)
		return nil
	},
}

// Execute 执行根命令。
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "日志级别：trace、debug、info、notice、warn、error")
	rootCmd.PersistentFlags().BoolVar(&silent, "silent", false, "不输出连接处理出错的日志")
}

func parseLevel(s string) (hlog.Level, bool) {
	switch strings.ToLower(s) {
	case "trace":
		return hlog.LevelTrace, true
	case "debug":
		return hlog.LevelDebug, true
	case "info":
		return hlog.LevelInfo, true
	case "notice":
		return hlog.LevelNotice, true
	case "warn":
		return hlog.LevelWarn, true
	case "error":
		return hlog.LevelError, true
	}
	return hlog.LevelInfo, false
}
