package cmd

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/A2Data/auto-douyin/internal/config"
	"github.com/A2Data/auto-douyin/internal/database"
	"github.com/A2Data/auto-douyin/internal/platform/browser"
	"github.com/A2Data/auto-douyin/internal/platform/session"
	"github.com/A2Data/auto-douyin/internal/service"
	"github.com/A2Data/auto-douyin/internal/utils"
)

// runtime 聚合一次命令执行所需的存储与服务。
type runtime struct {
	db        *gorm.DB
	store     session.Store
	pool      *browser.Pool
	accounts  *service.AccountService
	publisher *service.PublishService
	files     *service.FileService
}

// openRuntime 打开数据库并装配服务层。浏览器池取进程级共享实例，
// 真正的浏览器进程在第一次取上下文时才启动。
func openRuntime() (*runtime, error) {
	db, err := database.Init(config.GetDbPath())
	if err != nil {
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	}

	store := session.NewFileStore(config.Config.CookiePath)
	pool := browser.GetDefaultPool()

	return &runtime{
		db:        db,
		store:     store,
		pool:      pool,
		accounts:  service.NewAccountService(db, store, pool),
		publisher: service.NewPublishService(db, pool, store),
		files:     service.NewFileService(db),
	}, nil
}

// close 释放浏览器资源，数据库连接交给进程退出回收。
func (r *runtime) close() {
	if err := r.pool.Close(); err != nil {
		utils.Warn(fmt.Sprintf("关闭浏览器池失败: %v", err))
	}
}
