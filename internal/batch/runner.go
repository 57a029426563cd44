// Package batch 按排期逐条驱动批量发布。
// 整批共用一个浏览器会话，单条失败不拖垮后续条目，账号级失败才终止整批。
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/A2Data/auto-douyin/internal/clock"
	"github.com/A2Data/auto-douyin/internal/config"
	"github.com/A2Data/auto-douyin/internal/schedule"
	"github.com/A2Data/auto-douyin/internal/types"
	"github.com/A2Data/auto-douyin/internal/utils"
)

const logSource = "batch"

// SessionKeeper 为批量发布供给登录会话
type SessionKeeper interface {
	// Acquire 校验登录态并占用一个浏览器会话
	Acquire(ctx context.Context) error
	// Alive 当前会话是否仍可用（页面被人关掉会失效）
	Alive() bool
	// Refresh 把会话里最新的登录态写回凭证存储
	Refresh() error
	// Release 归还会话资源，可重复调用
	Release()
}

// Publisher 在当前会话里发布单条视频
type Publisher interface {
	Publish(ctx context.Context, task *types.VideoTask) types.UploadOutcome
}

// Runner 批量发布执行器
type Runner struct {
	session   SessionKeeper
	publisher Publisher
	clock     clock.Clock
	itemGap   time.Duration // 相邻条目之间的间隔，连续提交容易触发风控
}

// NewRunner 创建批量执行器
func NewRunner(session SessionKeeper, publisher Publisher) *Runner {
	return &Runner{
		session:   session,
		publisher: publisher,
		clock:     clock.System(),
		itemGap:   2 * time.Second,
	}
}

// SetClock 替换时间源，测试用
func (r *Runner) SetClock(clk clock.Clock) {
	r.clock = clk
}

// SetItemGap 调整条目间隔
func (r *Runner) SetItemGap(gap time.Duration) {
	r.itemGap = gap
}

// Run 逐条执行排期内的发布。报告条目顺序与输入一致；
// 上下文取消只在条目边界生效，已完成的条目保留在报告里。
// 返回错误仅代表账号级失败（会话获取不到），单条失败体现在报告中。
func (r *Runner) Run(ctx context.Context, entries []schedule.Entry) (*types.BatchReport, error) {
	report := &types.BatchReport{Total: len(entries)}
	if len(entries) == 0 {
		return report, nil
	}

	if err := r.session.Acquire(ctx); err != nil {
		return nil, err
	}
	defer r.session.Release()

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if i > 0 {
			if err := r.clock.Sleep(ctx, r.itemGap); err != nil {
				return report, err
			}
		}

		if !r.session.Alive() {
			utils.WarnWithPlatform(logSource, "浏览器会话已失效，重新获取")
			r.session.Release()
			if err := r.session.Acquire(ctx); err != nil {
				return report, fmt.Errorf("重新获取会话失败: %v", err)
			}
		}

		task := entry.Task
		scheduleStr := entry.PublishAt.Format(config.ScheduleTimeLayout)
		task.ScheduleTime = &scheduleStr

		utils.InfoWithPlatform(logSource, fmt.Sprintf("批量发布 %d/%d: %s（定时 %s）", i+1, len(entries), task.Title, scheduleStr))
		outcome := r.publisher.Publish(ctx, task)
		report.Append(outcome)

		if outcome.Success() {
			// 站点会轮换cookie，发布成功后把最新登录态写回，降低后续条目掉登录的概率
			if err := r.session.Refresh(); err != nil {
				utils.WarnWithPlatform(logSource, fmt.Sprintf("回写凭证失败: %v", err))
			}
		} else {
			utils.WarnWithPlatform(logSource, fmt.Sprintf("第%d条发布失败: %s", i+1, outcome.Message))
		}
	}

	utils.InfoWithPlatform(logSource, fmt.Sprintf("批量发布完成: 成功 %d/%d", report.SuccessCount, report.Total))
	return report, nil
}
