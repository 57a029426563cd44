package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/A2Data/auto-douyin/internal/api"
	"github.com/A2Data/auto-douyin/internal/config"
	"github.com/A2Data/auto-douyin/internal/scheduler"
	"github.com/A2Data/auto-douyin/internal/service"
	"github.com/A2Data/auto-douyin/internal/utils"
)

// newServeCmd 启动HTTP服务与定时任务调度器，收到SIGINT/SIGTERM后优雅退出。
func newServeCmd() *cobra.Command {
	var (
		port    int
		workers int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动HTTP服务与定时任务调度器",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == 0 {
				port = config.Config.ServerPort
			}
			if workers == 0 {
				workers = config.Config.SchedulerWorkers
			}

			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			// 日志服务接管之后的所有日志，供 /api/v1/logs 查询
			logs := service.NewLogService()
			defer logs.Close()
			utils.SetLogService(logs)

			sched := scheduler.New(rt.db, rt.publisher, workers)
			sched.Start()
			defer sched.Stop()

			server := api.New(rt.accounts, rt.publisher, rt.files, logs, sched)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Listen(port)
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
				utils.Info("收到退出信号，正在关闭服务")
				if err := server.Shutdown(); err != nil {
					utils.Warn(fmt.Sprintf("关闭HTTP服务失败: %v", err))
				}
				return nil
			}
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP监听端口，0时取 AUTODOUYIN_PORT")
	cmd.Flags().IntVar(&workers, "workers", 0, "调度器工作协程数，0时取 AUTODOUYIN_SCHEDULER_WORKERS")
	return cmd
}
