package douyin

import (
	"context"
	"fmt"
	"time"

	"github.com/A2Data/auto-douyin/internal/platform/browser"
	"github.com/A2Data/auto-douyin/internal/platform/locator"
	"github.com/A2Data/auto-douyin/internal/types"

	"github.com/playwright-community/playwright-go"
)

// stageCheckSession 确认浏览器上下文仍处于登录态。
// cookie缺失直接报会话失效，重试换不来登录态。
func (u *Uploader) stageCheckSession(ctx context.Context, f *flow) error {
	if f.bctx.IsPageClosed() {
		return fmt.Errorf("浏览器已关闭")
	}

	cookieConfig, ok := browser.GetCookieConfig(u.platform)
	if !ok {
		return fmt.Errorf("获取Cookie配置失败")
	}
	valid, err := f.bctx.ValidateLoginCookies(cookieConfig)
	if err != nil {
		return fmt.Errorf("校验登录cookie失败: %v", err)
	}
	if !valid {
		return &types.SessionExpiredError{Account: u.account, Reason: "关键cookie缺失"}
	}
	debugLog("登录态确认通过")
	return nil
}

// stageNavigate 进入上传页，等文件输入框就位。
// 页面出现登录提示说明会话已失效。
func (u *Uploader) stageNavigate(ctx context.Context, f *flow) error {
	if err := f.bctx.SafeGoto(uploadPageURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(u.config.PageLoadTimeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("打开上传页面失败: %v", err)
	}
	if err := f.bctx.WaitForPageLoad(); err != nil {
		debugLog("等待页面加载失败: %v", err)
	}

	prompts, err := u.resolver.Resolve(locator.LoginPrompt)
	if err != nil {
		return err
	}
	if loc := locator.FirstVisible(f.page, prompts); loc != nil {
		return &types.SessionExpiredError{Account: u.account, Reason: "上传页出现登录提示"}
	}

	inputs, err := u.resolver.Resolve(locator.FileInput)
	if err != nil {
		return err
	}
	return waitUntil(ctx, u.clock, 500*time.Millisecond, u.config.ElementWaitTimeout, StateNavigated, func() (bool, error) {
		if f.bctx.IsPageClosed() {
			return false, fmt.Errorf("浏览器已关闭")
		}
		return locator.FirstPresent(f.page, inputs) != nil, nil
	})
}
