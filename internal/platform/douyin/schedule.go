package douyin

import (
	"context"
	"fmt"
	"time"

	"github.com/A2Data/auto-douyin/internal/config"
	"github.com/A2Data/auto-douyin/internal/platform/locator"
	"github.com/A2Data/auto-douyin/internal/utils"
)

// stageSetSchedule 切换到定时发布并填入时间。
// 输入框接受「yyyy-MM-dd HH:mm」整串填入，不用逐级点日期面板。
func (u *Uploader) stageSetSchedule(ctx context.Context, f *flow) error {
	scheduleTime := *f.task.ScheduleTime
	if _, err := time.ParseInLocation(config.ScheduleTimeLayout, scheduleTime, time.Local); err != nil {
		return fmt.Errorf("定时发布时间格式不合法（应为 %s）: %v", config.ScheduleTimeLayout, err)
	}

	radios, err := u.resolver.Resolve(locator.ScheduleRadio)
	if err != nil {
		return err
	}
	radio := locator.FirstVisible(f.page, radios)
	if radio == nil {
		return fmt.Errorf("未找到定时发布选项")
	}
	if err := radio.Click(); err != nil {
		return fmt.Errorf("点击定时发布失败: %v", err)
	}
	if err := u.clock.Sleep(ctx, time.Second); err != nil {
		return err
	}

	inputs, err := u.resolver.Resolve(locator.ScheduleInput)
	if err != nil {
		return err
	}
	input := locator.FirstPresent(f.page, inputs)
	if input == nil {
		return fmt.Errorf("未找到时间输入框")
	}

	if err := input.Fill(scheduleTime); err != nil {
		debugLog("Fill定时时间失败，改用键盘输入: %v", err)
		if clickErr := input.Click(); clickErr != nil {
			return fmt.Errorf("时间输入框不可点击: %v", clickErr)
		}
		f.page.Keyboard().Press("Control+KeyA")
		if typeErr := f.page.Keyboard().Type(scheduleTime); typeErr != nil {
			return fmt.Errorf("键盘输入定时时间失败: %v", typeErr)
		}
	}
	if err := f.page.Keyboard().Press("Enter"); err != nil {
		debugLog("回车确认定时时间失败: %v", err)
	}

	utils.InfoWithPlatform(u.platform, fmt.Sprintf("定时发布时间已设置: %s", scheduleTime))
	return u.clock.Sleep(ctx, time.Second)
}
