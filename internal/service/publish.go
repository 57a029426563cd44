package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/A2Data/auto-douyin/internal/batch"
	"github.com/A2Data/auto-douyin/internal/clock"
	"github.com/A2Data/auto-douyin/internal/config"
	"github.com/A2Data/auto-douyin/internal/database"
	"github.com/A2Data/auto-douyin/internal/platform/browser"
	"github.com/A2Data/auto-douyin/internal/platform/douyin"
	"github.com/A2Data/auto-douyin/internal/platform/session"
	"github.com/A2Data/auto-douyin/internal/schedule"
	"github.com/A2Data/auto-douyin/internal/types"
	"github.com/A2Data/auto-douyin/internal/utils"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"
)

// SessionStatus 账号会话状态分类
type SessionStatus string

const (
	SessionValid       SessionStatus = "valid"
	SessionExpired     SessionStatus = "expired"
	SessionNotLoggedIn SessionStatus = "not_logged_in"
)

// AccountStatusInfo 账号登录态的对外描述
type AccountStatusInfo struct {
	Account  string        `json:"account"`
	Status   SessionStatus `json:"status"`
	Nickname string        `json:"nickname,omitempty"`
	Detail   string        `json:"detail,omitempty"`
}

// PublishService 发布编排：单条发布、批量发布、延迟任务入库
type PublishService struct {
	db    *gorm.DB
	pool  *browser.Pool
	store session.Store
	clock clock.Clock
}

// NewPublishService 创建发布服务
func NewPublishService(db *gorm.DB, pool *browser.Pool, store session.Store) *PublishService {
	return &PublishService{
		db:    db,
		pool:  pool,
		store: store,
		clock: clock.System(),
	}
}

// SetClock 替换时钟，测试用
func (s *PublishService) SetClock(clk clock.Clock) {
	if clk != nil {
		s.clock = clk
	}
}

func (s *PublishService) guardFor(account string) *session.Guard {
	return session.NewGuard(account, s.store, s.pool)
}

func (s *PublishService) uploaderFor(account string) *douyin.Uploader {
	return douyin.NewUploaderWithPool(account, s.store.Path(account), s.pool)
}

// prepareTask 补齐元数据并校验文件，需要时用ffmpeg生成封面。
// 返回生成的临时封面路径，调用方在发布结束后清理。
func (s *PublishService) prepareTask(task *types.VideoTask) (string, error) {
	if err := ApplySidecar(task); err != nil {
		return "", err
	}
	if err := ValidateVideoFile(task.VideoPath); err != nil {
		return "", err
	}

	if task.Thumbnail == "" && task.AutoCover {
		framePath, err := utils.ExtractFirstFrame(task.VideoPath)
		if err != nil {
			// 抽帧失败不阻断发布，站点会用默认封面
			utils.Warn(fmt.Sprintf("自动生成封面失败: %v，继续无封面发布", err))
			return "", nil
		}
		task.Thumbnail = framePath
		return framePath, nil
	}
	return "", nil
}

// Upload 发布单个视频：校验会话、执行发布、成功后刷新凭证
func (s *PublishService) Upload(ctx context.Context, account string, task *types.VideoTask) (types.UploadOutcome, error) {
	tempCover, err := s.prepareTask(task)
	if tempCover != "" {
		defer utils.CleanupTempFile(tempCover)
	}
	if err != nil {
		return types.UploadOutcome{}, err
	}

	guard := s.guardFor(account)
	sess, bctx, err := guard.Acquire(ctx)
	if err != nil {
		return types.UploadOutcome{}, err
	}
	defer func() {
		if releaseErr := bctx.Release(); releaseErr != nil {
			utils.WarnWithPlatform(config.PlatformDouyin, fmt.Sprintf("释放浏览器上下文失败: %v", releaseErr))
		}
	}()

	if sess.Nickname != "" {
		utils.InfoWithPlatform(config.PlatformDouyin, fmt.Sprintf("以账号 %s（%s）发布: %s", account, sess.Nickname, task.Title))
	}

	outcome := s.uploaderFor(account).Publish(ctx, bctx, task)
	if outcome.Success() {
		if err := guard.Refresh(bctx); err != nil {
			utils.WarnWithPlatform(config.PlatformDouyin, fmt.Sprintf("刷新凭证失败: %v", err))
		}
	}
	return outcome, nil
}

// BatchUpload 在一个浏览器会话里按计划发布一批视频。
// 所有条目先校验再开浏览器，避免批次中途才发现文件问题。
func (s *PublishService) BatchUpload(ctx context.Context, account string, spec types.BatchPlanSpec) (*types.BatchReport, error) {
	if err := validatePlanSpec(spec); err != nil {
		return nil, err
	}

	var tempCovers []string
	defer func() {
		for _, p := range tempCovers {
			utils.CleanupTempFile(p)
		}
	}()
	for _, task := range spec.Videos {
		tempCover, err := s.prepareTask(task)
		if tempCover != "" {
			tempCovers = append(tempCovers, tempCover)
		}
		if err != nil {
			return nil, fmt.Errorf("任务 %s 校验失败: %w", task.VideoPath, err)
		}
	}

	entries, err := schedule.Plan(spec.Videos, spec.VideosPerDay, spec.DailyTimes, spec.StartDays, s.clock.Now())
	if err != nil {
		return nil, err
	}

	sess := &publishSession{
		guard:    s.guardFor(account),
		uploader: s.uploaderFor(account),
	}
	runner := batch.NewRunner(sess, sess)
	runner.SetClock(s.clock)
	return runner.Run(ctx, entries)
}

// DeferBatch 把批量计划落库为延迟任务，到点由调度器执行。
// 与 BatchUpload 的区别：发布时间由本程序控制，不走站点的定时发布。
func (s *PublishService) DeferBatch(ctx context.Context, account string, spec types.BatchPlanSpec) ([]database.ScheduledTask, error) {
	if err := validatePlanSpec(spec); err != nil {
		return nil, err
	}
	for _, task := range spec.Videos {
		if err := ApplySidecar(task); err != nil {
			return nil, err
		}
		if err := ValidateVideoFile(task.VideoPath); err != nil {
			return nil, fmt.Errorf("任务 %s 校验失败: %w", task.VideoPath, err)
		}
	}

	entries, err := schedule.Plan(spec.Videos, spec.VideosPerDay, spec.DailyTimes, spec.StartDays, s.clock.Now())
	if err != nil {
		return nil, err
	}

	rows, err := deferredRows(account, entries)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, fmt.Errorf("保存延迟任务失败: %w", err)
	}

	utils.Info(fmt.Sprintf("已创建 %d 个延迟发布任务，账号: %s", len(rows), account))
	return rows, nil
}

// ExecuteScheduled 执行一条到点的延迟任务，调度器回调入口
func (s *PublishService) ExecuteScheduled(ctx context.Context, st *database.ScheduledTask) types.UploadOutcome {
	task := scheduledToTask(st)
	outcome, err := s.Upload(ctx, st.Account, task)
	if err != nil {
		return types.UploadOutcome{
			Status:  types.OutcomeFailed,
			Title:   task.Title,
			Message: err.Error(),
		}
	}
	return outcome
}

// AccountStatus 分类账号登录态并同步数据库。
// 浏览器或网络等环境问题不下结论，直接报错。
func (s *PublishService) AccountStatus(ctx context.Context, account string) (*AccountStatusInfo, error) {
	info := &AccountStatusInfo{Account: account}

	sess, err := s.guardFor(account).EnsureValid(ctx)
	if err == nil {
		info.Status = SessionValid
		info.Nickname = sess.Nickname
	} else {
		var notLoggedIn *types.NotLoggedInError
		var expired *types.SessionExpiredError
		switch {
		case errors.As(err, &notLoggedIn):
			info.Status = SessionNotLoggedIn
			info.Detail = err.Error()
		case errors.As(err, &expired):
			info.Status = SessionExpired
			info.Detail = err.Error()
		default:
			return nil, err
		}
	}

	s.syncAccountStatus(ctx, account, info.Status == SessionValid)
	return info, nil
}

func (s *PublishService) syncAccountStatus(ctx context.Context, account string, valid bool) {
	status := config.AccountStatusInvalid
	if valid {
		status = config.AccountStatusValid
	}
	err := s.db.WithContext(ctx).
		Model(&database.Account{}).
		Where("name = ?", account).
		Update("status", status).Error
	if err != nil {
		utils.Warn(fmt.Sprintf("同步账号状态失败: %v", err))
	}
}

// validatePlanSpec 小时取值等业务约束在进入计划层之前检查
func validatePlanSpec(spec types.BatchPlanSpec) error {
	if len(spec.Videos) == 0 {
		return fmt.Errorf("批量任务列表为空")
	}
	for _, h := range spec.DailyTimes {
		if h < 0 || h > 23 {
			return fmt.Errorf("每日发布时间点必须在0-23之间，收到 %d", h)
		}
	}
	if spec.StartDays < 0 {
		return fmt.Errorf("起始偏移天数不能为负，收到 %d", spec.StartDays)
	}
	return nil
}

// deferredRows 把计划条目转换为延迟任务记录
func deferredRows(account string, entries []schedule.Entry) ([]database.ScheduledTask, error) {
	rows := make([]database.ScheduledTask, 0, len(entries))
	for _, entry := range entries {
		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("生成任务ID失败: %w", err)
		}
		rows = append(rows, database.ScheduledTask{
			ID:           id,
			Account:      account,
			Platform:     config.PlatformDouyin,
			VideoPath:    entry.Task.VideoPath,
			Title:        entry.Task.Title,
			Description:  entry.Task.Description,
			Tags:         strings.Join(entry.Task.Tags, " "),
			Thumbnail:    entry.Task.Thumbnail,
			Location:     entry.Task.Location,
			ScheduleTime: entry.PublishAt,
			Status:       database.TaskStatusPending,
		})
	}
	return rows, nil
}

// scheduledToTask 把延迟任务记录还原成发布任务。
// 执行时刻就是计划时刻，不再让站点二次定时。
func scheduledToTask(st *database.ScheduledTask) *types.VideoTask {
	task := &types.VideoTask{
		VideoPath:   st.VideoPath,
		Title:       st.Title,
		Description: st.Description,
		Thumbnail:   st.Thumbnail,
		Location:    st.Location,
	}
	if st.Tags != "" {
		task.Tags = strings.Fields(st.Tags)
	}
	return task
}

// publishSession 把会话守卫和上传器装配成批量执行器需要的会话与发布接口
type publishSession struct {
	guard    *session.Guard
	uploader *douyin.Uploader
	bctx     *browser.PooledContext
}

func (p *publishSession) Acquire(ctx context.Context) error {
	_, bctx, err := p.guard.Acquire(ctx)
	if err != nil {
		return err
	}
	p.bctx = bctx
	return nil
}

func (p *publishSession) Alive() bool {
	return p.bctx != nil && !p.bctx.IsPageClosed()
}

func (p *publishSession) Refresh() error {
	if p.bctx == nil {
		return fmt.Errorf("会话尚未建立")
	}
	return p.guard.Refresh(p.bctx)
}

func (p *publishSession) Release() {
	if p.bctx == nil {
		return
	}
	if err := p.bctx.Release(); err != nil {
		utils.WarnWithPlatform(config.PlatformDouyin, fmt.Sprintf("释放浏览器上下文失败: %v", err))
	}
	p.bctx = nil
}

func (p *publishSession) Publish(ctx context.Context, task *types.VideoTask) types.UploadOutcome {
	return p.uploader.Publish(ctx, p.bctx, task)
}
