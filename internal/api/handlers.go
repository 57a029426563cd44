package api

import (
	"github.com/A2Data/auto-douyin/internal/database"
	"github.com/A2Data/auto-douyin/internal/service"
	"github.com/A2Data/auto-douyin/internal/types"

	"github.com/gofiber/fiber/v2"
)

type addAccountRequest struct {
	Name string `json:"name"`
}

type uploadRequest struct {
	Account      string   `json:"account"`
	VideoPath    string   `json:"video_path"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	Thumbnail    string   `json:"thumbnail"`
	ScheduleTime string   `json:"schedule_time"`
	Location     string   `json:"location"`
	AutoCover    bool     `json:"auto_cover"`
}

type batchUploadRequest struct {
	Account      string             `json:"account"`
	Dir          string             `json:"dir"` // 扫描目录，与 video_list 二选一
	Videos       []*types.VideoTask `json:"video_list"`
	VideosPerDay int                `json:"videos_per_day"`
	DailyTimes   []int              `json:"daily_times"`
	StartDays    int                `json:"start_days"`
	Defer        bool               `json:"defer"` // 落库延迟执行而不是立即发布
}

func (s *Server) handleListAccounts(c *fiber.Ctx) error {
	accounts, err := s.accounts.GetAccounts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(accounts)
}

func (s *Server) handleAddAccount(c *fiber.Ctx) error {
	var req addAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "请求体解析失败: "+err.Error())
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "账号名不能为空")
	}

	account, err := s.accounts.AddAccount(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(account)
}

func (s *Server) handleDeleteAccount(c *fiber.Ctx) error {
	if err := s.accounts.DeleteAccount(c.UserContext(), c.Params("name")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleLogin 触发扫码登录，浏览器在服务所在机器上弹出
func (s *Server) handleLogin(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := s.accounts.LoginAccount(c.UserContext(), name); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok", "message": "登录成功，凭证已保存"})
}

func (s *Server) handleAccountStatus(c *fiber.Ctx) error {
	info, err := s.publisher.AccountStatus(c.UserContext(), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(info)
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	var req uploadRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "请求体解析失败: "+err.Error())
	}
	if req.Account == "" {
		return fiber.NewError(fiber.StatusBadRequest, "account 不能为空")
	}
	if req.VideoPath == "" {
		return fiber.NewError(fiber.StatusBadRequest, "video_path 不能为空")
	}

	task := &types.VideoTask{
		VideoPath:   req.VideoPath,
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Thumbnail:   req.Thumbnail,
		Location:    req.Location,
		AutoCover:   req.AutoCover,
	}
	if req.ScheduleTime != "" {
		task.ScheduleTime = &req.ScheduleTime
	}

	outcome, err := s.publisher.Upload(c.UserContext(), req.Account, task)
	if err != nil {
		return err
	}
	if !outcome.Success() {
		return c.Status(fiber.StatusInternalServerError).JSON(outcome)
	}
	return c.JSON(outcome)
}

func (s *Server) handleBatchUpload(c *fiber.Ctx) error {
	var req batchUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "请求体解析失败: "+err.Error())
	}
	if req.Account == "" {
		return fiber.NewError(fiber.StatusBadRequest, "account 不能为空")
	}

	videos := req.Videos
	if len(videos) == 0 && req.Dir != "" {
		var err error
		videos, err = service.CollectVideoTasks(req.Dir)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}

	spec := types.BatchPlanSpec{
		Videos:       videos,
		VideosPerDay: req.VideosPerDay,
		DailyTimes:   req.DailyTimes,
		StartDays:    req.StartDays,
	}

	if req.Defer {
		tasks, err := s.publisher.DeferBatch(c.UserContext(), req.Account, spec)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"status":     "ok",
			"task_count": len(tasks),
			"tasks":      tasks,
		})
	}

	report, err := s.publisher.BatchUpload(c.UserContext(), req.Account, spec)
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func (s *Server) handleListVideos(c *fiber.Ctx) error {
	videos, err := s.files.GetVideos(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(videos)
}

// handleUploadVideo multipart上传视频素材
func (s *Server) handleUploadVideo(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "缺少 file 字段")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "读取上传文件失败: "+err.Error())
	}
	defer f.Close()

	video, err := s.files.SaveUpload(c.UserContext(), fileHeader.Filename, f)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(video)
}

func (s *Server) handleDeleteVideo(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "非法的视频ID")
	}
	if err := s.files.DeleteVideo(c.UserContext(), uint(id)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleExtractThumbnail 从视频抽帧生成封面，at参数指定秒数
func (s *Server) handleExtractThumbnail(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "非法的视频ID")
	}
	at := c.QueryInt("at", 1)
	if at < 0 {
		at = 0
	}

	url, err := s.files.ExtractAndSaveThumbnail(c.UserContext(), uint(id), at)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"thumbnail": url})
}

func (s *Server) handleListTasks(c *fiber.Ctx) error {
	status := database.TaskStatus(c.Query("status"))
	limit := c.QueryInt("limit", 100)

	tasks, err := s.sched.Tasks(c.UserContext(), status, limit)
	if err != nil {
		return err
	}
	return c.JSON(tasks)
}

func (s *Server) handleCancelTask(c *fiber.Ctx) error {
	if err := s.sched.CancelTask(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleQueryLogs(c *fiber.Ctx) error {
	query := types.LogQuery{
		Keyword:  c.Query("keyword"),
		Platform: c.Query("platform"),
		Level:    types.LogLevel(c.Query("level")),
		Limit:    c.QueryInt("limit", 100),
	}
	return c.JSON(s.logs.Query(query))
}
