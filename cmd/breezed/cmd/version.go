package cmd

import (
	"fmt"
	"runtime"

	"github.com/favbox/breeze/common/json"
	"github.com/spf13/cobra"
)

// Version 在构建时通过 -ldflags "-X" 注入。
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "打印版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "breezed %s (%s %s/%s, json=%s)\n",
			Version, runtime.Version(), runtime.GOOS, runtime.GOARCH, json.Name)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
