package douyin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/A2Data/auto-douyin/internal/platform/locator"
	"github.com/A2Data/auto-douyin/internal/types"
	"github.com/A2Data/auto-douyin/internal/utils"

	"github.com/playwright-community/playwright-go"
)

// stageFillMetadata 填写标题、描述与话题标签。
// 描述填不上只记警告，标签接受数与期望不一致记 PartialMetadataWarning。
func (u *Uploader) stageFillMetadata(ctx context.Context, f *flow) error {
	if f.task.Title != "" {
		if err := u.fillTitle(ctx, f); err != nil {
			return fmt.Errorf("填写标题失败: %v", err)
		}
	}
	if f.task.Description != "" {
		if err := u.fillDescription(ctx, f); err != nil {
			utils.WarnWithPlatform(u.platform, fmt.Sprintf("填写描述失败: %v", err))
			f.warn(fmt.Errorf("描述未填写: %v", err))
		}
	}
	if len(f.task.Tags) > 0 {
		if err := u.addTags(ctx, f); err != nil {
			return fmt.Errorf("添加标签失败: %v", err)
		}
	}
	return nil
}

// fillTitle 填写标题，超长按字符截断
func (u *Uploader) fillTitle(ctx context.Context, f *flow) error {
	title := TruncateString(f.task.Title, u.config.TitleMaxLength)

	candidates, err := u.resolver.Resolve(locator.TitleInput)
	if err != nil {
		return err
	}
	input := locator.FirstPresent(f.page, candidates)
	if input == nil {
		return fmt.Errorf("未找到标题输入框")
	}

	if err := input.Fill(title); err != nil {
		// 兜底：键盘输入
		debugLog("Fill标题失败，改用键盘输入: %v", err)
		if err := input.Click(); err != nil {
			return fmt.Errorf("标题输入框不可点击: %v", err)
		}
		f.page.Keyboard().Press("Control+KeyA")
		f.page.Keyboard().Press("Delete")
		if err := f.page.Keyboard().Type(title); err != nil {
			return fmt.Errorf("键盘输入标题失败: %v", err)
		}
	}

	utils.InfoWithPlatform(u.platform, fmt.Sprintf("标题已填写: %s", title))
	return u.clock.Sleep(ctx, 500*time.Millisecond)
}

// fillDescription 把描述写进正文编辑区
func (u *Uploader) fillDescription(ctx context.Context, f *flow) error {
	zones, err := u.resolver.Resolve(locator.EditorZone)
	if err != nil {
		return err
	}
	zone := locator.FirstPresent(f.page, zones)
	if zone == nil {
		return fmt.Errorf("未找到描述输入区域")
	}

	if err := zone.Fill(f.task.Description); err != nil {
		debugLog("Fill描述失败，改用键盘输入: %v", err)
		if err := zone.Click(); err != nil {
			return fmt.Errorf("描述区域不可点击: %v", err)
		}
		if err := f.page.Keyboard().Type(f.task.Description); err != nil {
			return fmt.Errorf("键盘输入描述失败: %v", err)
		}
	}

	utils.InfoWithPlatform(u.platform, "描述已填写")
	return u.clock.Sleep(ctx, 500*time.Millisecond)
}

// addTags 逐个输入话题标签，输入完成后核对编辑器里实际生成的话题数
func (u *Uploader) addTags(ctx context.Context, f *flow) error {
	zones, err := u.resolver.Resolve(locator.EditorZone)
	if err != nil {
		return err
	}
	zone := locator.FirstPresent(f.page, zones)
	if zone == nil {
		return fmt.Errorf("未找到标签输入区域")
	}

	requested := 0
	for _, tag := range f.task.Tags {
		cleanTag := strings.TrimSpace(strings.ReplaceAll(tag, "#", ""))
		if cleanTag == "" {
			continue
		}
		requested++

		if err := zone.Type("#"+cleanTag, playwright.LocatorTypeOptions{Delay: playwright.Float(100)}); err != nil {
			return fmt.Errorf("输入标签 %s 失败: %v", cleanTag, err)
		}
		if err := zone.Press("Space"); err != nil {
			return fmt.Errorf("确认标签 %s 失败: %v", cleanTag, err)
		}
		if err := u.clock.Sleep(ctx, 300*time.Millisecond); err != nil {
			return err
		}
	}
	if requested == 0 {
		return nil
	}

	chips, err := u.resolver.Resolve(locator.TagChip)
	if err != nil {
		return err
	}
	accepted := locator.CountFirst(f.page, chips)
	if accepted != requested {
		f.warn(&types.PartialMetadataWarning{Requested: requested, Accepted: accepted})
		utils.WarnWithPlatform(u.platform, fmt.Sprintf("标签未全部生效: 期望 %d 个，实际 %d 个", requested, accepted))
		return nil
	}

	utils.InfoWithPlatform(u.platform, fmt.Sprintf("已添加%d个标签", requested))
	return nil
}
