package cmd

import (
	"github.com/spf13/cobra"

	"github.com/A2Data/auto-douyin/internal/config"
	"github.com/A2Data/auto-douyin/internal/utils"
)

// newLoginCmd 打开创作者中心登录页，扫码后保存登录凭证。
func newLoginCmd() *cobra.Command {
	var (
		account string
		relogin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "扫码登录抖音账号并保存登录凭证",
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.Config.Headless {
				utils.Warn("当前为无头模式，扫码登录需要可见浏览器窗口，建议设置 AUTODOUYIN_HEADLESS=false")
			}

			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			ctx := cmd.Context()
			if relogin {
				return rt.accounts.ReloginAccount(ctx, account)
			}
			return rt.accounts.LoginAccount(ctx, account)
		},
	}

	cmd.Flags().StringVarP(&account, "account", "a", "", "账号名")
	cmd.Flags().BoolVar(&relogin, "relogin", false, "清除旧凭证后重新登录")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}
