package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/A2Data/auto-douyin/internal/service"
	"github.com/A2Data/auto-douyin/internal/types"
	"github.com/A2Data/auto-douyin/internal/utils"
)

// newBatchCmd 按发布计划批量发布。任务来源二选一：
// --dir 扫描目录（同名txt提供标题标签），--plan 读现成的计划JSON。
func newBatchCmd() *cobra.Command {
	var (
		account   string
		dir       string
		planFile  string
		perDay    int
		times     []int
		startDays int
		deferred  bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "按计划批量发布视频",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := types.BatchPlanSpec{
				VideosPerDay: perDay,
				DailyTimes:   times,
				StartDays:    startDays,
			}

			switch {
			case planFile != "":
				data, err := os.ReadFile(planFile)
				if err != nil {
					return fmt.Errorf("读取计划文件失败: %v", err)
				}
				if err := json.Unmarshal(data, &spec); err != nil {
					return fmt.Errorf("解析计划文件失败: %v", err)
				}
			case dir != "":
				tasks, err := service.CollectVideoTasks(dir)
				if err != nil {
					return err
				}
				spec.Videos = tasks
			default:
				return fmt.Errorf("必须指定 --dir 或 --plan 之一")
			}

			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			ctx := cmd.Context()
			if deferred {
				rows, err := rt.publisher.DeferBatch(ctx, account, spec)
				if err != nil {
					return err
				}
				utils.Info(fmt.Sprintf("已入库 %d 个定时任务，由 serve 进程到点执行", len(rows)))
				return printJSON(cmd.OutOrStdout(), rows)
			}

			report, err := rt.publisher.BatchUpload(ctx, account, spec)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if report.SuccessCount < report.Total {
				return fmt.Errorf("批量发布部分失败: 成功 %d/%d", report.SuccessCount, report.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&account, "account", "a", "", "账号名")
	cmd.Flags().StringVar(&dir, "dir", "", "视频目录，自动读取同名txt元数据")
	cmd.Flags().StringVar(&planFile, "plan", "", "计划JSON文件，结构同 /api/v1/batch-upload 请求体")
	cmd.Flags().IntVar(&perDay, "per-day", 1, "每天发布条数")
	cmd.Flags().IntSliceVar(&times, "times", []int{9, 12, 15, 18, 21}, "每日发布小时点")
	cmd.Flags().IntVar(&startDays, "start-days", 0, "从今天起偏移的天数，0表示今天")
	cmd.Flags().BoolVar(&deferred, "defer", false, "只入库定时任务，不立即发布")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}
