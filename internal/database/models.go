package database

import "time"

// Account 抖音创作者账号，Name 全局唯一，凭证文件按账号名存放
type Account struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Platform   string `gorm:"size:32;index" json:"platform"`
	Name       string `gorm:"size:64;uniqueIndex" json:"name"`
	Status     int    `gorm:"default:0" json:"status"` // 0失效 1有效
	CookiePath string `gorm:"size:256" json:"cookie_path"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Video 已登记的视频素材
type Video struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Path      string `gorm:"size:512" json:"path"`
	Name      string `gorm:"size:256" json:"name"`
	Size      int64  `json:"size"`
	Thumbnail string `gorm:"size:512" json:"thumbnail"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskStatus 定时任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// ScheduledTask 延迟执行的发布任务，到点由调度器取出执行
type ScheduledTask struct {
	ID           string     `gorm:"primaryKey;size:32" json:"id"`
	Account      string     `gorm:"size:64;index" json:"account"`
	Platform     string     `gorm:"size:32" json:"platform"`
	VideoPath    string     `gorm:"size:512" json:"video_path"`
	Title        string     `gorm:"size:256" json:"title"`
	Description  string     `gorm:"size:1024" json:"description"`
	Tags         string     `gorm:"size:512" json:"tags"` // 空格分隔
	Thumbnail    string     `gorm:"size:512" json:"thumbnail"`
	Location     string     `gorm:"size:128" json:"location"`
	ScheduleTime time.Time  `gorm:"index" json:"schedule_time"`
	Status       TaskStatus `gorm:"size:16;index;default:pending" json:"status"`
	Priority     int        `gorm:"default:0" json:"priority"`
	Retries      int        `gorm:"default:0" json:"retries"`
	Error        string     `gorm:"size:1024" json:"error"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time `json:"completed_at"`
}
