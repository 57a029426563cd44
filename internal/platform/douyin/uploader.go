// Package douyin 驱动抖音创作者后台完成视频发布。
// 发布过程建模为线性阶段流水线，每个阶段有独立的重试与超时预算，
// 失败时能准确说出死在哪一步。
package douyin

import (
	"context"
	"fmt"
	"os"

	"github.com/A2Data/auto-douyin/internal/clock"
	"github.com/A2Data/auto-douyin/internal/config"
	"github.com/A2Data/auto-douyin/internal/platform/browser"
	"github.com/A2Data/auto-douyin/internal/platform/locator"
	"github.com/A2Data/auto-douyin/internal/types"
	"github.com/A2Data/auto-douyin/internal/utils"

	"github.com/playwright-community/playwright-go"
)

const platformName = config.PlatformDouyin

const uploadPageURL = "https://creator.douyin.com/creator-micro/content/upload"

// debugLog 调试日志输出，仅在调试模式下显示
func debugLog(format string, args ...interface{}) {
	if config.Config != nil && config.Config.DebugMode {
		utils.InfoWithPlatform(platformName, fmt.Sprintf("[调试] "+format, args...))
	}
}

// Uploader 抖音上传器
type Uploader struct {
	account     string
	cookiePath  string
	platform    string
	browserPool *browser.Pool
	resolver    *locator.Resolver
	clock       clock.Clock
	config      Config
}

// NewUploader 创建上传器，使用默认浏览器池与默认参数
func NewUploader(account, cookiePath string) *Uploader {
	return NewUploaderWithConfig(account, cookiePath, nil, DefaultConfig())
}

// NewUploaderWithPool 创建使用指定浏览器池的上传器
func NewUploaderWithPool(account, cookiePath string, pool *browser.Pool) *Uploader {
	return NewUploaderWithConfig(account, cookiePath, pool, DefaultConfig())
}

// NewUploaderWithConfig 创建完全自定义的上传器
func NewUploaderWithConfig(account, cookiePath string, pool *browser.Pool, cfg Config) *Uploader {
	u := &Uploader{
		account:     account,
		cookiePath:  cookiePath,
		platform:    platformName,
		browserPool: pool,
		resolver:    locator.NewResolver(),
		clock:       clock.System(),
		config:      cfg,
	}
	debugLog("创建上传器 - 账号: %s, cookiePath: '%s'", account, cookiePath)
	if cookiePath == "" {
		utils.WarnWithPlatform(platformName, "NewUploader 收到空的cookiePath")
	}
	return u
}

// SetClock 替换时间源，测试用
func (u *Uploader) SetClock(clk clock.Clock) {
	u.clock = clk
}

func (u *Uploader) getBrowserPool() *browser.Pool {
	if u.browserPool != nil {
		return u.browserPool
	}
	return browser.GetDefaultPool()
}

// Platform 返回平台名称
func (u *Uploader) Platform() string {
	return u.platform
}

// ValidateCookie 轻量验证Cookie是否有效，只检查文件与关键cookie，不做接口探测
func (u *Uploader) ValidateCookie(ctx context.Context) (bool, error) {
	utils.InfoWithPlatform(u.platform, "验证Cookie")

	if _, err := os.Stat(u.cookiePath); os.IsNotExist(err) {
		utils.WarnWithPlatform(u.platform, "Cookie文件不存在")
		return false, nil
	}

	browserCtx, err := u.getBrowserPool().GetContext(ctx, u.cookiePath, nil)
	if err != nil {
		utils.WarnWithPlatform(u.platform, fmt.Sprintf("获取浏览器失败: %v", err))
		return false, nil
	}
	browserCtx.SetPlatform(u.platform)
	defer browserCtx.Release()

	page, err := browserCtx.GetPage()
	if err != nil {
		utils.WarnWithPlatform(u.platform, fmt.Sprintf("获取页面失败: %v", err))
		return false, nil
	}

	if _, err := page.Goto("https://creator.douyin.com/", playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(u.config.PageLoadTimeout.Milliseconds())),
	}); err != nil {
		utils.WarnWithPlatform(u.platform, fmt.Sprintf("打开页面失败: %v", err))
		return false, nil
	}

	if err := browserCtx.WaitForPageLoad(); err != nil {
		utils.WarnWithPlatform(u.platform, fmt.Sprintf("等待页面加载失败: %v", err))
	}

	cookieConfig, ok := browser.GetCookieConfig(u.platform)
	if !ok {
		return false, fmt.Errorf("获取抖音Cookie配置失败")
	}

	isValid, err := browserCtx.ValidateLoginCookies(cookieConfig)
	if err != nil {
		return false, fmt.Errorf("验证Cookie失败: %v", err)
	}

	if isValid {
		utils.InfoWithPlatform(u.platform, "检测到sessionid Cookie，验证通过")
	} else {
		utils.InfoWithPlatform(u.platform, "未检测到sessionid Cookie，验证失败")
	}
	return isValid, nil
}

// pipeline 组装发布阶段，封面、位置、定时三个阶段按任务内容决定是否跳过
func (u *Uploader) pipeline() []stage {
	return []stage{
		{state: StateSessionChecked, run: u.stageCheckSession},
		{state: StateNavigated, run: u.stageNavigate},
		{state: StateFileUploaded, running: StateFileUploading, run: u.stageUploadFile},
		{state: StateMetadataFilled, run: u.stageFillMetadata},
		{
			state: StateThumbnailSet,
			skip:  func(t *types.VideoTask) bool { return t.Thumbnail == "" },
			run:   u.stageSetThumbnail,
		},
		{
			state: StateLocationSet,
			skip:  func(t *types.VideoTask) bool { return t.Location == "" },
			run:   u.stageSetLocation,
		},
		{
			state: StateScheduleSet,
			skip:  func(t *types.VideoTask) bool { return t.ScheduleTime == nil || *t.ScheduleTime == "" },
			run:   u.stageSetSchedule,
		},
		{state: StatePublished, run: u.stageSubmit},
	}
}

// Run 在给定的浏览器上下文里走完整个发布流水线
func (u *Uploader) Run(ctx context.Context, browserCtx *browser.PooledContext, task *types.VideoTask) *PublishResult {
	utils.InfoWithPlatform(u.platform, fmt.Sprintf("开始发布: %s", task.VideoPath))

	if _, err := os.Stat(task.VideoPath); err != nil {
		return &PublishResult{
			Title:  task.Title,
			State:  StateFailed,
			Failed: StateIdle,
			Err:    fmt.Errorf("视频文件不存在: %v", err),
			Stages: []types.StageResult{{Stage: string(StateIdle), OK: false, Detail: err.Error()}},
		}
	}

	page, err := browserCtx.GetPage()
	if err != nil {
		return &PublishResult{
			Title:  task.Title,
			State:  StateFailed,
			Failed: StateIdle,
			Err:    fmt.Errorf("获取页面失败: %v", err),
			Stages: []types.StageResult{{Stage: string(StateIdle), OK: false, Detail: err.Error()}},
		}
	}

	f := &flow{
		task:  task,
		page:  page,
		bctx:  browserCtx,
		title: task.Title,
	}
	result := runPipeline(ctx, u.clock, u.config, f, u.pipeline())
	if result.State == StateDone {
		utils.SuccessWithPlatform(u.platform, fmt.Sprintf("发布成功: %s", task.Title))
	}
	return result
}

// Publish 执行发布并返回对外的任务结果
func (u *Uploader) Publish(ctx context.Context, browserCtx *browser.PooledContext, task *types.VideoTask) types.UploadOutcome {
	return u.Run(ctx, browserCtx, task).Outcome()
}

// Upload 自行获取浏览器上下文并发布单个视频。
// 上下文释放时会把最新cookie写回文件。
func (u *Uploader) Upload(ctx context.Context, task *types.VideoTask) error {
	browserCtx, err := u.getBrowserPool().GetContext(ctx, u.cookiePath, nil)
	if err != nil {
		return fmt.Errorf("获取浏览器失败: %v", err)
	}
	browserCtx.SetPlatform(u.platform)
	defer browserCtx.Release()

	result := u.Run(ctx, browserCtx, task)
	if result.State != StateDone {
		if result.Err != nil {
			return result.Err
		}
		return fmt.Errorf("发布在「%s」阶段失败", result.Failed.Label())
	}
	for _, w := range result.Warnings {
		utils.WarnWithPlatform(u.platform, w.Error())
	}
	return nil
}
