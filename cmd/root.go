// Package cmd 命令行入口，负责装配配置、日志与各业务服务。
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/A2Data/auto-douyin/internal/config"
	"github.com/A2Data/auto-douyin/internal/utils"
)

// NewRootCommand 组装根命令。每次调用返回全新实例，flag状态不跨次执行残留。
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "auto-douyin",
		Short:         "抖音创作者中心无人值守发布工具",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(); err != nil {
				return fmt.Errorf("初始化配置失败: %w", err)
			}
			if err := utils.InitLogger(); err != nil {
				return fmt.Errorf("初始化日志失败: %w", err)
			}
			return nil
		},
	}

	root.AddCommand(
		newLoginCmd(),
		newUploadCmd(),
		newBatchCmd(),
		newStatusCmd(),
		newServeCmd(),
	)
	return root
}

// Execute 在信号感知的上下文中运行根命令，错误统一打到stderr。
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
