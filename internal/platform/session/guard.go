package session

import (
	"context"
	"fmt"
	"time"

	"github.com/A2Data/auto-douyin/internal/config"
	"github.com/A2Data/auto-douyin/internal/platform/browser"
	"github.com/A2Data/auto-douyin/internal/platform/locator"
	"github.com/A2Data/auto-douyin/internal/types"
	"github.com/A2Data/auto-douyin/internal/utils"
	"github.com/A2Data/auto-douyin/internal/utils/retry"

	"github.com/playwright-community/playwright-go"
)

const uploadPageURL = "https://creator.douyin.com/creator-micro/content/upload"

// Session 一次校验通过的登录会话
type Session struct {
	Account   string
	Nickname  string
	Blob      []byte
	CheckedAt time.Time
}

// Options 会话守卫的可调参数
type Options struct {
	PageTimeout   time.Duration // 页面探测的导航超时
	RetryCount    int           // 页面探测失败后的重试次数
	RetryInterval time.Duration
}

// DefaultOptions 默认守卫参数
func DefaultOptions() Options {
	return Options{
		PageTimeout:   10 * time.Second,
		RetryCount:    2,
		RetryInterval: 2 * time.Second,
	}
}

// Guard 逐层校验登录态：凭证文件、用户信息接口、上传页面。
// 前两层便宜，页面级校验只在前两层都没有否定结论时才做。
type Guard struct {
	account  string
	store    Store
	pool     *browser.Pool
	resolver *locator.Resolver
	opts     Options
}

// NewGuard 创建会话守卫
func NewGuard(account string, store Store, pool *browser.Pool) *Guard {
	return NewGuardWithOptions(account, store, pool, DefaultOptions())
}

// NewGuardWithOptions 创建自定义参数的会话守卫
func NewGuardWithOptions(account string, store Store, pool *browser.Pool, opts Options) *Guard {
	return &Guard{
		account:  account,
		store:    store,
		pool:     pool,
		resolver: locator.NewResolver(),
		opts:     opts,
	}
}

// Account 返回守卫绑定的账号名
func (g *Guard) Account() string {
	return g.account
}

// EnsureValid 校验会话，不保留浏览器上下文
func (g *Guard) EnsureValid(ctx context.Context) (*Session, error) {
	sess, bctx, err := g.Acquire(ctx)
	if bctx != nil {
		if releaseErr := bctx.Release(); releaseErr != nil {
			utils.WarnWithPlatform(config.PlatformDouyin, fmt.Sprintf("释放浏览器上下文失败: %v", releaseErr))
		}
	}
	return sess, err
}

// Acquire 校验会话并返回已登录的浏览器上下文，调用方负责 Release。
// 凭证缺失返回 NotLoggedInError，凭证失效返回 SessionExpiredError。
func (g *Guard) Acquire(ctx context.Context) (*Session, *browser.PooledContext, error) {
	blob, err := g.store.Load(g.account)
	if err != nil {
		return nil, nil, err
	}

	result, nickname, probeErr := ProbeSessionAPI(ctx, blob)
	switch result {
	case ProbeInvalid:
		return nil, nil, &types.SessionExpiredError{Account: g.account, Reason: "接口返回未登录"}
	case ProbeInconclusive:
		if probeErr != nil {
			utils.WarnWithPlatform(config.PlatformDouyin, fmt.Sprintf("接口校验未得出结论: %v，转为页面级校验", probeErr))
		}
	}

	bctx, err := g.pool.GetContext(ctx, g.store.Path(g.account), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("获取浏览器上下文失败: %v", err)
	}
	bctx.SetPlatform(config.PlatformDouyin)

	if err := g.probePage(ctx, bctx); err != nil {
		if releaseErr := bctx.Release(); releaseErr != nil {
			utils.WarnWithPlatform(config.PlatformDouyin, fmt.Sprintf("释放浏览器上下文失败: %v", releaseErr))
		}
		return nil, nil, err
	}

	utils.InfoWithPlatform(config.PlatformDouyin, fmt.Sprintf("账号 %s 登录状态校验通过", g.account))
	return &Session{
		Account:   g.account,
		Nickname:  nickname,
		Blob:      blob,
		CheckedAt: time.Now(),
	}, bctx, nil
}

// probePage 打开上传页确认登录态。
// 出现登录提示或关键cookie缺失视为会话失效，不参与重试。
func (g *Guard) probePage(ctx context.Context, bctx *browser.PooledContext) error {
	var expired error
	err := retry.RetryWithContext(ctx, g.opts.RetryCount, func() error {
		expired = nil
		page, err := bctx.GetPage()
		if err != nil {
			return fmt.Errorf("获取页面失败: %v", err)
		}

		if err := bctx.SafeGoto(uploadPageURL, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(g.opts.PageTimeout.Milliseconds())),
		}); err != nil {
			return fmt.Errorf("打开上传页失败: %v", err)
		}
		if err := bctx.WaitForPageLoad(); err != nil {
			debugLog("等待页面加载失败: %v", err)
		}

		if prompts, err := g.resolver.Resolve(locator.LoginPrompt); err == nil {
			if loc := locator.FirstVisible(page, prompts); loc != nil {
				expired = &types.SessionExpiredError{Account: g.account, Reason: "页面出现登录提示"}
				return nil
			}
		}

		if cookieConfig, ok := browser.GetCookieConfig(config.PlatformDouyin); ok {
			valid, err := bctx.ValidateLoginCookies(cookieConfig)
			if err != nil {
				return fmt.Errorf("校验登录cookie失败: %v", err)
			}
			if !valid {
				expired = &types.SessionExpiredError{Account: g.account, Reason: "关键cookie缺失"}
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return expired
}

// Refresh 把浏览器上下文当前的登录态写回凭证存储。
// 每次发布成功后调用，保持凭证文件与站点下发的最新cookie同步。
func (g *Guard) Refresh(bctx *browser.PooledContext) error {
	blob, err := bctx.ExportStorageState()
	if err != nil {
		return fmt.Errorf("导出登录态失败: %v", err)
	}
	if err := g.store.Save(g.account, blob); err != nil {
		return fmt.Errorf("保存凭证失败: %v", err)
	}
	debugLog("账号 %s 凭证已刷新", g.account)
	return nil
}
