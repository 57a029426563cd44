package douyin

import "time"

// Config 发布流水线的时间预算与重试参数
type Config struct {
	UploadTimeout       time.Duration // 等待视频上传完成的总预算
	PageLoadTimeout     time.Duration // 页面导航超时
	ElementWaitTimeout  time.Duration // 单个元素出现的等待上限
	SubmitCheckTimeout  time.Duration // 点击发布后等待结果的总预算
	StageAttempts       int           // 每个阶段的最大尝试次数（含首次）
	StageRetryInterval  time.Duration // 阶段重试间隔
	TitleMaxLength      int           // 标题长度上限，超出按字符截断
	UploadCheckInterval time.Duration // 上传完成信号的轮询间隔
	SubmitCheckInterval time.Duration // 发布结果的轮询间隔
}

var defaultConfig = Config{
	UploadTimeout:       10 * time.Minute,
	PageLoadTimeout:     30 * time.Second,
	ElementWaitTimeout:  5 * time.Second,
	SubmitCheckTimeout:  100 * time.Second,
	StageAttempts:       3,
	StageRetryInterval:  2 * time.Second,
	TitleMaxLength:      30,
	UploadCheckInterval: 2 * time.Second,
	SubmitCheckInterval: 5 * time.Second,
}

// DefaultConfig 返回默认参数
func DefaultConfig() Config {
	return defaultConfig
}
