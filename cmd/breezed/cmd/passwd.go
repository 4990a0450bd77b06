package cmd

import (
	"fmt"

	"github.com/favbox/breeze/app/middlewares/server/basic_auth"
	"github.com/spf13/cobra"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd <密码>",
	Short: "生成管理账户密码的 Argon2id 哈希",
	Long: `生成的哈希可直接写入配置文件的 admin 段，例如：

  admin:
    ops: "$argon2id$v=19$m=65536,t=1,p=2$..."`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := basic_auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(passwdCmd)
}
