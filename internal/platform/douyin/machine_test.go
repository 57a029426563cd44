package douyin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/A2Data/auto-douyin/internal/types"
)

// fakeClock 手动推进的时钟，Sleep只拨快时间不真正阻塞
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time                  { return c.now }
func (c *fakeClock) Since(t time.Time) time.Duration { return c.now.Sub(t) }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	return nil
}

func testPipelineConfig() Config {
	cfg := DefaultConfig()
	cfg.StageAttempts = 3
	cfg.StageRetryInterval = time.Second
	return cfg
}

func newTestFlow() *flow {
	return &flow{
		task:  &types.VideoTask{VideoPath: "/tmp/demo.mp4", Title: "测试视频"},
		title: "测试视频",
	}
}

func TestRunPipeline(t *testing.T) {
	// 测试1: 阶段失败后按上限重试，期间成功则流水线继续
	t.Run("stage_retries_until_success", func(t *testing.T) {
		calls := 0
		stages := []stage{{
			state: StateNavigated,
			run: func(ctx context.Context, f *flow) error {
				calls++
				if calls < 3 {
					return fmt.Errorf("页面还没好")
				}
				return nil
			},
		}}

		result := runPipeline(context.Background(), newFakeClock(), testPipelineConfig(), newTestFlow(), stages)
		if result.State != StateDone {
			t.Fatalf("期望流水线完成，实际状态: %s", result.State)
		}
		if calls != 3 {
			t.Errorf("期望执行3次，实际%d次", calls)
		}
		if len(result.Stages) != 1 || result.Stages[0].Attempts != 3 {
			t.Errorf("阶段记录不对: %+v", result.Stages)
		}
	})

	// 测试2: 尝试次数耗尽后流水线终止，失败阶段与次数都要留痕
	t.Run("exhausts_attempts_and_fails", func(t *testing.T) {
		calls := 0
		stages := []stage{
			{
				state: StateNavigated,
				run: func(ctx context.Context, f *flow) error {
					calls++
					return fmt.Errorf("一直失败")
				},
			},
			{
				state: StateFileUploaded,
				run: func(ctx context.Context, f *flow) error {
					t.Error("失败阶段之后的阶段不应执行")
					return nil
				},
			},
		}

		result := runPipeline(context.Background(), newFakeClock(), testPipelineConfig(), newTestFlow(), stages)
		if result.State != StateFailed {
			t.Fatalf("期望失败，实际状态: %s", result.State)
		}
		if result.Failed != StateNavigated {
			t.Errorf("失败阶段不对: 期望 %s，实际 %s", StateNavigated, result.Failed)
		}
		if calls != 3 {
			t.Errorf("期望尝试3次，实际%d次", calls)
		}
		last := result.Stages[len(result.Stages)-1]
		if last.OK || last.Attempts != 3 {
			t.Errorf("失败阶段记录不对: %+v", last)
		}
	})

	// 测试3: 会话失效这类错误不重试，第一次失败立即终止
	t.Run("non_retryable_error_stops_immediately", func(t *testing.T) {
		calls := 0
		stages := []stage{{
			state: StateSessionChecked,
			run: func(ctx context.Context, f *flow) error {
				calls++
				return &types.SessionExpiredError{Account: "tester", Reason: "cookie过期"}
			},
		}}

		result := runPipeline(context.Background(), newFakeClock(), testPipelineConfig(), newTestFlow(), stages)
		if result.State != StateFailed {
			t.Fatalf("期望失败，实际状态: %s", result.State)
		}
		if calls != 1 {
			t.Errorf("会话失效不应重试: 期望执行1次，实际%d次", calls)
		}
		var expired *types.SessionExpiredError
		if !errors.As(result.Err, &expired) {
			t.Errorf("期望 SessionExpiredError，实际: %v", result.Err)
		}
	})

	// 测试4: skip返回true的阶段整个跳过
	t.Run("optional_stage_skipped", func(t *testing.T) {
		executed := []State{}
		mark := func(s State) func(context.Context, *flow) error {
			return func(ctx context.Context, f *flow) error {
				executed = append(executed, s)
				return nil
			}
		}
		stages := []stage{
			{state: StateNavigated, run: mark(StateNavigated)},
			{
				state: StateThumbnailSet,
				skip:  func(task *types.VideoTask) bool { return task.Thumbnail == "" },
				run:   mark(StateThumbnailSet),
			},
			{state: StatePublished, run: mark(StatePublished)},
		}

		result := runPipeline(context.Background(), newFakeClock(), testPipelineConfig(), newTestFlow(), stages)
		if result.State != StateDone {
			t.Fatalf("期望完成，实际状态: %s", result.State)
		}
		if len(executed) != 2 || executed[0] != StateNavigated || executed[1] != StatePublished {
			t.Errorf("执行顺序不对: %v", executed)
		}
		for _, sr := range result.Stages {
			if sr.Stage == string(StateThumbnailSet) {
				t.Error("跳过的阶段不应出现在记录中")
			}
		}
	})

	// 测试5: 警告不影响完成状态
	t.Run("warnings_do_not_fail_pipeline", func(t *testing.T) {
		stages := []stage{{
			state: StateMetadataFilled,
			run: func(ctx context.Context, f *flow) error {
				f.warn(&types.PartialMetadataWarning{Requested: 3, Accepted: 2})
				return nil
			},
		}}

		result := runPipeline(context.Background(), newFakeClock(), testPipelineConfig(), newTestFlow(), stages)
		if result.State != StateDone {
			t.Fatalf("期望完成，实际状态: %s", result.State)
		}
		if len(result.Warnings) != 1 {
			t.Fatalf("期望1条警告，实际%d条", len(result.Warnings))
		}
	})

	// 测试6: 上下文取消后流水线在阶段边界终止
	t.Run("canceled_context_stops_pipeline", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		stages := []stage{
			{
				state: StateNavigated,
				run: func(ctx context.Context, f *flow) error {
					cancel()
					return nil
				},
			},
			{
				state: StateFileUploaded,
				run: func(ctx context.Context, f *flow) error {
					t.Error("取消后不应执行下一阶段")
					return nil
				},
			},
		}

		result := runPipeline(ctx, newFakeClock(), testPipelineConfig(), newTestFlow(), stages)
		if result.State != StateFailed {
			t.Fatalf("期望失败，实际状态: %s", result.State)
		}
		if !errors.Is(result.Err, context.Canceled) {
			t.Errorf("期望 context.Canceled，实际: %v", result.Err)
		}
	})

	// 测试7: 重试之间按配置的间隔等待
	t.Run("retry_waits_between_attempts", func(t *testing.T) {
		clk := newFakeClock()
		calls := 0
		stages := []stage{{
			state: StateNavigated,
			run: func(ctx context.Context, f *flow) error {
				calls++
				if calls < 2 {
					return fmt.Errorf("临时故障")
				}
				return nil
			},
		}}

		runPipeline(context.Background(), clk, testPipelineConfig(), newTestFlow(), stages)
		if len(clk.slept) != 1 || clk.slept[0] != time.Second {
			t.Errorf("期望重试前等待1秒，实际: %v", clk.slept)
		}
	})
}

func TestWaitUntil(t *testing.T) {
	// 测试1: 探测若干轮后出现完成信号
	t.Run("signal_appears_after_polls", func(t *testing.T) {
		clk := newFakeClock()
		calls := 0
		err := waitUntil(context.Background(), clk, 2*time.Second, 10*time.Second, StateFileUploading, func() (bool, error) {
			calls++
			return calls >= 3, nil
		})
		if err != nil {
			t.Fatalf("期望成功，实际: %v", err)
		}
		if calls != 3 {
			t.Errorf("期望探测3次，实际%d次", calls)
		}
		if clk.Since(time.Date(2025, 1, 1, 12, 0, 0, 0, time.Local)) != 4*time.Second {
			t.Errorf("时间推进不对: %v", clk.now)
		}
	})

	// 测试2: 预算耗尽返回阶段超时错误
	t.Run("budget_exhausted_returns_stage_timeout", func(t *testing.T) {
		clk := newFakeClock()
		err := waitUntil(context.Background(), clk, 2*time.Second, 10*time.Second, StateFileUploading, func() (bool, error) {
			return false, nil
		})
		var timeout *types.StageTimeoutError
		if !errors.As(err, &timeout) {
			t.Fatalf("期望 StageTimeoutError，实际: %v", err)
		}
		if timeout.Stage != string(StateFileUploading) {
			t.Errorf("超时错误的阶段不对: %s", timeout.Stage)
		}
		if timeout.Budget != 10*time.Second {
			t.Errorf("超时错误的预算不对: %v", timeout.Budget)
		}
	})

	// 测试3: 探测函数报错立即返回
	t.Run("probe_error_propagates", func(t *testing.T) {
		probeErr := fmt.Errorf("检测到上传失败提示")
		err := waitUntil(context.Background(), newFakeClock(), time.Second, 10*time.Second, StateFileUploading, func() (bool, error) {
			return false, probeErr
		})
		if !errors.Is(err, probeErr) {
			t.Errorf("期望探测错误原样返回，实际: %v", err)
		}
	})

	// 测试4: 上下文取消后等待终止
	t.Run("canceled_context_aborts_wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := waitUntil(ctx, newFakeClock(), time.Second, 10*time.Second, StateFileUploading, func() (bool, error) {
			return false, nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("期望 context.Canceled，实际: %v", err)
		}
	})
}

func TestPublishResultOutcome(t *testing.T) {
	t.Run("done_maps_to_success", func(t *testing.T) {
		r := &PublishResult{Title: "测试视频", State: StateDone}
		o := r.Outcome()
		if !o.Success() {
			t.Errorf("期望成功，实际: %+v", o)
		}
		if o.Title != "测试视频" {
			t.Errorf("标题不对: %s", o.Title)
		}
	})

	t.Run("warnings_keep_success_status", func(t *testing.T) {
		r := &PublishResult{
			Title:    "测试视频",
			State:    StateDone,
			Warnings: []error{&types.PartialMetadataWarning{Requested: 3, Accepted: 2}},
		}
		o := r.Outcome()
		if !o.Success() {
			t.Fatalf("有警告也应算成功，实际: %+v", o)
		}
		if len(o.Warnings) != 1 || !strings.Contains(o.Warnings[0], "标签未全部生效") {
			t.Errorf("警告内容不对: %v", o.Warnings)
		}
	})

	t.Run("failed_names_stage", func(t *testing.T) {
		r := &PublishResult{
			Title:  "测试视频",
			State:  StateFailed,
			Failed: StateFileUploading,
			Err:    fmt.Errorf("上传超时"),
		}
		o := r.Outcome()
		if o.Success() {
			t.Fatal("失败结果不应算成功")
		}
		if !strings.Contains(o.Message, StateFileUploading.Label()) {
			t.Errorf("失败消息应包含阶段名: %s", o.Message)
		}
	})
}

func TestRetryableStageErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"generic_error_retryable", fmt.Errorf("元素未找到"), true},
		{"stage_timeout_retryable", types.NewStageTimeout("file_uploading", time.Minute), true},
		{"wrapped_generic_retryable", fmt.Errorf("外层: %w", fmt.Errorf("里层")), true},
		{"session_expired_not_retryable", &types.SessionExpiredError{Account: "a"}, false},
		{"unknown_target_not_retryable", &types.UnknownTargetError{Target: "nope"}, false},
		{"context_canceled_not_retryable", context.Canceled, false},
		{"deadline_exceeded_not_retryable", context.DeadlineExceeded, false},
		{"browser_closed_not_retryable", fmt.Errorf("playwright: target closed"), false},
		{"nil_not_retryable", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryableStageErr(tt.err); got != tt.want {
				t.Errorf("retryableStageErr(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStateLabel(t *testing.T) {
	if StateFileUploading.Label() != "视频上传中" {
		t.Errorf("已登记状态应返回中文名: %s", StateFileUploading.Label())
	}
	if State("mystery").Label() != "mystery" {
		t.Errorf("未登记状态应原样返回: %s", State("mystery").Label())
	}
}
