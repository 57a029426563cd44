package douyin

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/A2Data/auto-douyin/internal/platform/locator"
	"github.com/A2Data/auto-douyin/internal/utils"
)

// stageSetThumbnail 打开封面弹窗上传自定义封面并确认。
// 封面文件本身缺失不终止发布，站点会在提交时兜底推荐封面。
func (u *Uploader) stageSetThumbnail(ctx context.Context, f *flow) error {
	if _, err := os.Stat(f.task.Thumbnail); err != nil {
		utils.WarnWithPlatform(u.platform, fmt.Sprintf("封面文件不存在: %s", f.task.Thumbnail))
		f.warn(fmt.Errorf("封面文件不存在，未设置自定义封面: %s", f.task.Thumbnail))
		return nil
	}

	utils.InfoWithPlatform(u.platform, "设置封面...")

	buttons, err := u.resolver.Resolve(locator.CoverButton)
	if err != nil {
		return err
	}
	btn := locator.FirstVisible(f.page, buttons)
	if btn == nil {
		return fmt.Errorf("未找到封面设置按钮")
	}
	if err := btn.Click(); err != nil {
		return fmt.Errorf("点击封面设置按钮失败: %v", err)
	}
	if err := u.clock.Sleep(ctx, 2*time.Second); err != nil {
		return err
	}

	inputs, err := u.resolver.Resolve(locator.CoverFileInput)
	if err != nil {
		return err
	}
	input := locator.FirstPresent(f.page, inputs)
	if input == nil {
		return fmt.Errorf("未找到封面上传输入框")
	}
	if err := input.SetInputFiles(f.task.Thumbnail); err != nil {
		return fmt.Errorf("上传封面失败: %v", err)
	}
	utils.InfoWithPlatform(u.platform, "封面上传中...")
	if err := u.clock.Sleep(ctx, 3*time.Second); err != nil {
		return err
	}

	// 竖封面按钮不一定出现，缺席不算失败
	verticals, err := u.resolver.Resolve(locator.CoverVertical)
	if err != nil {
		return err
	}
	if vertical := locator.FirstVisible(f.page, verticals); vertical != nil {
		if err := vertical.Click(); err != nil {
			utils.WarnWithPlatform(u.platform, fmt.Sprintf("点击设置竖封面失败: %v", err))
		} else {
			utils.InfoWithPlatform(u.platform, "已切换到竖封面")
			if err := u.clock.Sleep(ctx, 2*time.Second); err != nil {
				return err
			}
		}
	}

	finishes, err := u.resolver.Resolve(locator.CoverFinish)
	if err != nil {
		return err
	}
	finish := locator.FirstVisible(f.page, finishes)
	if finish == nil {
		return fmt.Errorf("未找到封面完成按钮")
	}
	if err := finish.Click(); err != nil {
		return fmt.Errorf("点击完成按钮失败: %v", err)
	}
	if err := u.clock.Sleep(ctx, 2*time.Second); err != nil {
		return err
	}

	utils.InfoWithPlatform(u.platform, "封面设置完成")
	return nil
}
