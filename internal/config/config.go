package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	DbPath            string
	CookiePath        string
	VideoPath         string
	LogPath           string
	ThumbnailPath     string
	UploadConcurrency int
	DefaultTimeout    int
	ServerPort        int
	SchedulerWorkers  int
	DebugMode         bool // 调试模式开关
	Headless          bool // 浏览器无头模式开关（true=隐藏浏览器窗口）
}

var Config *AppConfig

// Init 加载 .env 并初始化全局配置，同时创建各存储目录。
// 所有环境变量统一使用 AUTODOUYIN_ 前缀。
func Init() error {
	exePath, err := os.Executable()
	if err != nil {
		return err
	}
	baseDir := filepath.Dir(exePath)

	// .env 优先找工作目录，其次可执行文件目录；不存在则忽略
	if err := godotenv.Load(); err != nil {
		_ = godotenv.Load(filepath.Join(baseDir, ".env"))
	}

	if dir := os.Getenv("AUTODOUYIN_DATA_DIR"); dir != "" {
		baseDir = dir
	}

	// 存储根目录（数据库文件所在的目录）
	storageDir := filepath.Join(baseDir, "storage")

	Config = &AppConfig{
		DbPath:            filepath.Join(baseDir, DefaultDbPath),
		CookiePath:        filepath.Join(baseDir, DefaultCookiePath),
		VideoPath:         filepath.Join(baseDir, DefaultVideoPath),
		LogPath:           filepath.Join(baseDir, DefaultLogPath),
		ThumbnailPath:     filepath.Join(baseDir, DefaultThumbnailPath),
		UploadConcurrency: UploadConcurrency,
		DefaultTimeout:    DefaultTimeout,
		ServerPort:        envInt("AUTODOUYIN_PORT", DefaultServerPort),
		SchedulerWorkers:  envInt("AUTODOUYIN_SCHEDULER_WORKERS", DefaultSchedulerWorkers),
		DebugMode:         os.Getenv("AUTODOUYIN_DEBUG") == "true",
		Headless:          os.Getenv("AUTODOUYIN_HEADLESS") == "true",
	}

	// 创建目录（只创建目录，不包括数据库文件路径）
	dirs := []string{
		storageDir,
		Config.CookiePath,
		Config.VideoPath,
		Config.LogPath,
		Config.ThumbnailPath,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s failed: %w", dir, err)
		}
	}

	return nil
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func GetDbPath() string {
	return Config.DbPath
}

// GetCookiePath 返回账号凭证文件路径，账号名直接参与文件名
func GetCookiePath(account string) string {
	return filepath.Join(Config.CookiePath, fmt.Sprintf("%s_%s.json", PlatformDouyin, account))
}
