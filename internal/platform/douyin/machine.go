package douyin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/A2Data/auto-douyin/internal/clock"
	"github.com/A2Data/auto-douyin/internal/platform/browser"
	"github.com/A2Data/auto-douyin/internal/types"
	"github.com/A2Data/auto-douyin/internal/utils"

	"github.com/playwright-community/playwright-go"
)

// State 发布流水线所处的阶段
type State string

const (
	StateIdle           State = "idle"
	StateSessionChecked State = "session_checked"
	StateNavigated      State = "navigated"
	StateFileUploading  State = "file_uploading"
	StateFileUploaded   State = "file_uploaded"
	StateMetadataFilled State = "metadata_filled"
	StateThumbnailSet   State = "thumbnail_set"
	StateLocationSet    State = "location_set"
	StateScheduleSet    State = "schedule_set"
	StatePublished      State = "published"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

var stateLabels = map[State]string{
	StateIdle:           "待开始",
	StateSessionChecked: "登录态已确认",
	StateNavigated:      "已进入上传页",
	StateFileUploading:  "视频上传中",
	StateFileUploaded:   "视频上传完成",
	StateMetadataFilled: "元数据已填写",
	StateThumbnailSet:   "封面已设置",
	StateLocationSet:    "位置已设置",
	StateScheduleSet:    "定时已设置",
	StatePublished:      "已提交发布",
	StateDone:           "发布完成",
	StateFailed:         "发布失败",
}

// Label 返回阶段的中文名称
func (s State) Label() string {
	if label, ok := stateLabels[s]; ok {
		return label
	}
	return string(s)
}

// flow 一次发布过程中各阶段共享的上下文
type flow struct {
	task     *types.VideoTask
	page     playwright.Page
	bctx     *browser.PooledContext
	title    string
	warnings []error
}

// warn 记录不影响发布结果的问题
func (f *flow) warn(err error) {
	f.warnings = append(f.warnings, err)
}

// stage 流水线中的一个阶段。skip 返回 true 时整个阶段跳过，
// running 非空时执行期间对外展示该状态（目前只有上传阶段用）。
type stage struct {
	state   State
	running State
	skip    func(task *types.VideoTask) bool
	run     func(ctx context.Context, f *flow) error
}

// PublishResult 一次发布的完整结果
type PublishResult struct {
	Title    string
	State    State               // 最终状态，done 或 failed
	Failed   State               // 失败时所处的阶段，成功为空
	Stages   []types.StageResult // 按执行顺序记录每个阶段
	Warnings []error
	Err      error
}

// Outcome 把发布结果折算成对外的任务结果。
// 仅有警告（如部分标签未生效）仍算成功。
func (r *PublishResult) Outcome() types.UploadOutcome {
	if r.State == StateDone {
		o := types.UploadOutcome{
			Status:  types.OutcomeSuccess,
			Title:   r.Title,
			Message: "发布成功",
		}
		for _, w := range r.Warnings {
			o.Warnings = append(o.Warnings, w.Error())
		}
		if len(o.Warnings) > 0 {
			o.Message = "发布成功，但部分元数据未完全生效"
		}
		return o
	}
	msg := fmt.Sprintf("在「%s」阶段失败", r.Failed.Label())
	if r.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, r.Err)
	}
	return types.UploadOutcome{
		Status:  types.OutcomeFailed,
		Title:   r.Title,
		Message: msg,
	}
}

// runPipeline 依次执行各阶段，每个阶段最多尝试 cfg.StageAttempts 次。
// 任一阶段耗尽尝试即终止流水线，不会跳过失败阶段继续后面的动作。
func runPipeline(ctx context.Context, clk clock.Clock, cfg Config, f *flow, stages []stage) *PublishResult {
	result := &PublishResult{Title: f.title, State: StateIdle}

	for _, st := range stages {
		if st.skip != nil && st.skip(f.task) {
			debugLog("跳过阶段: %s", st.state.Label())
			continue
		}
		if st.running != "" {
			result.State = st.running
		}

		var lastErr error
		succeeded := false
		attempts := 0
		for attempt := 1; attempt <= cfg.StageAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return failPipeline(result, st.state, attempts, err, f)
			}
			if attempt > 1 {
				utils.WarnWithPlatform(platformName, fmt.Sprintf("阶段「%s」第%d次尝试（上次: %v）", st.state.Label(), attempt, lastErr))
				if err := clk.Sleep(ctx, cfg.StageRetryInterval); err != nil {
					return failPipeline(result, st.state, attempts, err, f)
				}
			}

			attempts = attempt
			err := st.run(ctx, f)
			if err == nil {
				succeeded = true
				break
			}
			lastErr = err
			if !retryableStageErr(err) {
				break
			}
		}

		if !succeeded {
			return failPipeline(result, st.state, attempts, lastErr, f)
		}
		result.State = st.state
		result.Stages = append(result.Stages, types.StageResult{
			Stage:    string(st.state),
			OK:       true,
			Attempts: attempts,
		})
	}

	result.State = StateDone
	result.Warnings = f.warnings
	return result
}

// failPipeline 终结流水线并留存失败现场
func failPipeline(result *PublishResult, at State, attempts int, err error, f *flow) *PublishResult {
	result.State = StateFailed
	result.Failed = at
	result.Err = err
	result.Warnings = f.warnings
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	result.Stages = append(result.Stages, types.StageResult{
		Stage:    string(at),
		OK:       false,
		Attempts: attempts,
		Detail:   detail,
	})
	utils.ErrorWithPlatform(platformName, fmt.Sprintf("发布在「%s」阶段失败: %v", at.Label(), err))
	if f.page != nil {
		utils.Screenshot(f.page, fmt.Sprintf("douyin_fail_%s", at))
	}
	return result
}

// retryableStageErr 判断阶段错误是否值得重试。
// 会话失效、目标表缺项、浏览器被关、上下文取消这几类重试也无济于事。
func retryableStageErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var expired *types.SessionExpiredError
	if errors.As(err, &expired) {
		return false
	}
	var unknown *types.UnknownTargetError
	if errors.As(err, &unknown) {
		return false
	}
	if browser.IsBrowserClosedError(err) {
		return false
	}
	return true
}

// waitUntil 以固定间隔轮询探测函数，直到出现完成信号或预算耗尽。
// 上传耗时随文件大小和网络波动很大，固定长睡眠等不可靠也浪费时间。
func waitUntil(ctx context.Context, clk clock.Clock, interval, budget time.Duration, st State, probe func() (bool, error)) error {
	start := clk.Now()
	for {
		done, err := probe()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if clk.Since(start) >= budget {
			return types.NewStageTimeout(string(st), budget)
		}
		if err := clk.Sleep(ctx, interval); err != nil {
			return err
		}
	}
}
