// Package api HTTP操作面：发布、账号、素材、日志与延迟任务的本机接口。
package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/A2Data/auto-douyin/internal/scheduler"
	"github.com/A2Data/auto-douyin/internal/service"
	"github.com/A2Data/auto-douyin/internal/types"
	"github.com/A2Data/auto-douyin/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// Server 组装各业务服务并暴露HTTP路由
type Server struct {
	app       *fiber.App
	accounts  *service.AccountService
	publisher *service.PublishService
	files     *service.FileService
	logs      *service.LogService
	sched     *scheduler.Scheduler
}

// New 创建HTTP服务。
// 上传和发布接口会阻塞到浏览器流程结束，读写超时给足余量。
func New(accounts *service.AccountService, publisher *service.PublishService, files *service.FileService, logs *service.LogService, sched *scheduler.Scheduler) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "auto-douyin",
		ReadTimeout:  15 * time.Minute,
		WriteTimeout: 15 * time.Minute,
		BodyLimit:    1024 * 1024 * 1024, // 1 GB，视频走multipart上传
		ErrorHandler: errorHandler,
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool { return true },
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
	}))

	s := &Server{
		app:       app,
		accounts:  accounts,
		publisher: publisher,
		files:     files,
		logs:      logs,
		sched:     sched,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 素材与封面的静态访问
	s.app.Get("/videos/:filename", s.handleServeVideo)
	s.app.Get("/thumbnails/:filename", s.handleServeThumbnail)

	api := s.app.Group("/api/v1")

	api.Get("/accounts", s.handleListAccounts)
	api.Post("/accounts", s.handleAddAccount)
	api.Delete("/accounts/:name", s.handleDeleteAccount)
	api.Post("/accounts/:name/login", s.handleLogin)
	api.Get("/accounts/:name/status", s.handleAccountStatus)

	api.Post("/upload", s.handleUpload)
	api.Post("/batch-upload", s.handleBatchUpload)

	api.Get("/videos", s.handleListVideos)
	api.Post("/videos", s.handleUploadVideo)
	api.Delete("/videos/:id", s.handleDeleteVideo)
	api.Post("/videos/:id/thumbnail", s.handleExtractThumbnail)

	api.Get("/tasks", s.handleListTasks)
	api.Post("/tasks/:id/cancel", s.handleCancelTask)

	api.Get("/logs", s.handleQueryLogs)
}

// Listen 启动监听，阻塞直到 Shutdown
func (s *Server) Listen(port int) error {
	addr := fmt.Sprintf(":%d", port)
	utils.Info(fmt.Sprintf("HTTP服务启动，监听 %s", addr))
	return s.app.Listen(addr)
}

// Shutdown 优雅关停，等待在途请求结束
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// errorHandler 统一把错误映射为结果风格的JSON
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	var notLoggedIn *types.NotLoggedInError
	var expired *types.SessionExpiredError
	var invalidPlan *types.InvalidPlanError
	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
	case errors.As(err, &notLoggedIn), errors.As(err, &expired):
		code = fiber.StatusUnauthorized
	case errors.As(err, &invalidPlan):
		code = fiber.StatusBadRequest
	}

	return c.Status(code).JSON(fiber.Map{
		"status":  "failed",
		"message": err.Error(),
	})
}
