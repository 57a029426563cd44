package config

// 默认存储路径，相对可执行文件所在目录
const (
	DefaultDbPath        = "storage/data.db"
	DefaultCookiePath    = "storage/cookies"
	DefaultVideoPath     = "storage/videos"
	DefaultLogPath       = "storage/logs"
	DefaultThumbnailPath = "storage/thumbnails"
)

const (
	// UploadConcurrency 同时执行的发布任务数，浏览器自动化串行更稳
	UploadConcurrency = 1
	// DefaultTimeout 通用操作超时（秒）
	DefaultTimeout = 30
	// DefaultServerPort HTTP服务默认端口
	DefaultServerPort = 8080
	// DefaultSchedulerWorkers 定时任务执行协程数
	DefaultSchedulerWorkers = 1
)

// PlatformDouyin 平台标识
const PlatformDouyin = "douyin"

// 账号状态
const (
	AccountStatusInvalid = 0 // 登录失效
	AccountStatusValid   = 1 // 登录有效
)

// AllowedVideoExts 允许发布的视频扩展名
var AllowedVideoExts = []string{".mp4", ".mov", ".avi", ".mkv", ".flv", ".wmv", ".m4v"}

// IsAllowedVideoExt 扩展名是否允许发布，入参需为小写且带点
func IsAllowedVideoExt(ext string) bool {
	for _, allowed := range AllowedVideoExts {
		if ext == allowed {
			return true
		}
	}
	return false
}

// ScheduleTimeLayout 定时发布时间的出入参格式
const ScheduleTimeLayout = "2006-01-02 15:04"
