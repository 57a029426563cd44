package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/A2Data/auto-douyin/internal/config"
	"github.com/A2Data/auto-douyin/internal/types"
)

// newUploadCmd 发布单个视频。标题、标签、封面留空时按同名txt与同名图片兜底。
func newUploadCmd() *cobra.Command {
	var (
		account     string
		videoPath   string
		title       string
		description string
		tags        []string
		thumbnail   string
		schedule    string
		location    string
		autoCover   bool
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "发布单个视频到抖音",
		RunE: func(cmd *cobra.Command, args []string) error {
			task := &types.VideoTask{
				VideoPath:   videoPath,
				Title:       title,
				Description: description,
				Tags:        tags,
				Thumbnail:   thumbnail,
				Location:    location,
				AutoCover:   autoCover,
			}
			if schedule != "" {
				if _, err := time.ParseInLocation(config.ScheduleTimeLayout, schedule, time.Local); err != nil {
					return fmt.Errorf("定时时间格式错误，应为 %q: %v", config.ScheduleTimeLayout, err)
				}
				task.ScheduleTime = &schedule
			}

			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			outcome, err := rt.publisher.Upload(cmd.Context(), account, task)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), outcome); err != nil {
				return err
			}
			if !outcome.Success() {
				return fmt.Errorf("发布失败: %s", outcome.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&account, "account", "a", "", "账号名")
	cmd.Flags().StringVarP(&videoPath, "video", "v", "", "视频文件路径")
	cmd.Flags().StringVarP(&title, "title", "t", "", "标题，留空时读同名txt或用文件名")
	cmd.Flags().StringVar(&description, "description", "", "描述")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "话题标签，逗号分隔")
	cmd.Flags().StringVar(&thumbnail, "thumbnail", "", "封面图片路径")
	cmd.Flags().StringVar(&schedule, "schedule", "", "定时发布时间，格式 2006-01-02 15:04")
	cmd.Flags().StringVar(&location, "location", "", "地理位置")
	cmd.Flags().BoolVar(&autoCover, "auto-cover", false, "无封面时用ffmpeg抽帧生成")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("video")
	return cmd
}
