package types

import "context"

// VideoTask 单个视频的发布任务
type VideoTask struct {
	VideoPath    string   `json:"video_path"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	Thumbnail    string   `json:"thumbnail"`     // 封面路径，留空时尝试同名图片
	ScheduleTime *string  `json:"schedule_time"` // 定时发布时间，格式 2006-01-02 15:04
	Location     string   `json:"location"`      // 地理位置
	AutoCover    bool     `json:"auto_cover"`    // 无封面时用ffmpeg抽帧生成
}

// Uploader 上传器接口
type Uploader interface {
	ValidateCookie(ctx context.Context) (bool, error)
	Upload(ctx context.Context, task *VideoTask) error
	Login() error
	Platform() string
}

// BatchPlanSpec 批量发布计划
// VideosPerDay 必须为正，DailyTimes 不能为空；条目多于每日时间点时按取模循环使用。
type BatchPlanSpec struct {
	Videos       []*VideoTask `json:"video_list"`
	VideosPerDay int          `json:"videos_per_day"`
	DailyTimes   []int        `json:"daily_times"` // 每日发布小时点，如 [9,12,15,18,21]
	StartDays    int          `json:"start_days"`  // 从今天起偏移的天数，0表示今天
}
