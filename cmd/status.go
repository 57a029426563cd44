package cmd

import (
	"github.com/spf13/cobra"
)

// newStatusCmd 检查账号登录态并同步数据库中的账号状态。
func newStatusCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "检查账号登录状态",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			info, err := rt.publisher.AccountStatus(cmd.Context(), account)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), info)
		},
	}

	cmd.Flags().StringVarP(&account, "account", "a", "", "账号名")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}
