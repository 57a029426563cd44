package douyin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/A2Data/auto-douyin/internal/platform/locator"
	"github.com/A2Data/auto-douyin/internal/types"
	"github.com/A2Data/auto-douyin/internal/utils"
)

// stageSetLocation 在地理位置选择框输入地点并选中第一个候选。
// 候选列表一直不出现时退回回车确认。
func (u *Uploader) stageSetLocation(ctx context.Context, f *flow) error {
	selects, err := u.resolver.Resolve(locator.LocationSelect)
	if err != nil {
		return err
	}
	sel := locator.FirstVisible(f.page, selects)
	if sel == nil {
		return fmt.Errorf("未找到地理位置选择框")
	}
	if err := sel.Click(); err != nil {
		return fmt.Errorf("点击地理位置选择框失败: %v", err)
	}

	f.page.Keyboard().Press("Control+KeyA")
	f.page.Keyboard().Press("Delete")
	if err := f.bctx.HumanLikeTyping(f.task.Location); err != nil {
		return fmt.Errorf("输入地理位置失败: %v", err)
	}

	options, err := u.resolver.Resolve(locator.LocationOption)
	if err != nil {
		return err
	}
	err = waitUntil(ctx, u.clock, 500*time.Millisecond, u.config.ElementWaitTimeout, StateLocationSet, func() (bool, error) {
		if f.bctx.IsPageClosed() {
			return false, fmt.Errorf("浏览器已关闭")
		}
		return locator.FirstVisible(f.page, options) != nil, nil
	})
	if err != nil {
		var timeout *types.StageTimeoutError
		if errors.As(err, &timeout) {
			debugLog("未出现位置候选，改用回车确认")
			if pressErr := f.page.Keyboard().Press("Enter"); pressErr != nil {
				return fmt.Errorf("回车确认位置失败: %v", pressErr)
			}
			utils.InfoWithPlatform(u.platform, fmt.Sprintf("地理位置已设置: %s", f.task.Location))
			return nil
		}
		return err
	}

	opt := locator.FirstVisible(f.page, options)
	if opt == nil {
		return fmt.Errorf("位置候选列表已消失")
	}
	if err := opt.Click(); err != nil {
		return fmt.Errorf("选择位置候选失败: %v", err)
	}

	utils.InfoWithPlatform(u.platform, fmt.Sprintf("地理位置已设置: %s", f.task.Location))
	return u.clock.Sleep(ctx, 500*time.Millisecond)
}
