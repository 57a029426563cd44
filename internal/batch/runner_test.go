package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/A2Data/auto-douyin/internal/schedule"
	"github.com/A2Data/auto-douyin/internal/types"
)

// fakeSession 可编排的会话供给方
type fakeSession struct {
	acquireErrs []error // 依次返回的Acquire结果，耗尽后返回nil
	acquires    int
	releases    int
	refreshes   int
	deadAfter   int // 第N次Alive检查开始返回false，0表示一直存活
	aliveChecks int
}

func (s *fakeSession) Acquire(ctx context.Context) error {
	s.acquires++
	if len(s.acquireErrs) > 0 {
		err := s.acquireErrs[0]
		s.acquireErrs = s.acquireErrs[1:]
		return err
	}
	return nil
}

func (s *fakeSession) Alive() bool {
	s.aliveChecks++
	if s.deadAfter > 0 && s.aliveChecks >= s.deadAfter {
		s.deadAfter = 0 // 重新获取后恢复存活
		return false
	}
	return true
}

func (s *fakeSession) Refresh() error { s.refreshes++; return nil }
func (s *fakeSession) Release()       { s.releases++ }

// fakePublisher 按标题决定成败，并记录执行顺序
type fakePublisher struct {
	failTitles map[string]bool
	published  []string
	cancelOn   string // 发布该标题时触发取消
	cancel     context.CancelFunc
}

func (p *fakePublisher) Publish(ctx context.Context, task *types.VideoTask) types.UploadOutcome {
	p.published = append(p.published, task.Title)
	if p.cancelOn != "" && task.Title == p.cancelOn {
		p.cancel()
	}
	if p.failTitles[task.Title] {
		return types.UploadOutcome{Status: types.OutcomeFailed, Title: task.Title, Message: "模拟失败"}
	}
	return types.UploadOutcome{Status: types.OutcomeSuccess, Title: task.Title, Message: "发布成功"}
}

// noopClock Sleep直接返回，测试里不等待
type noopClock struct{ now time.Time }

func (c *noopClock) Now() time.Time                  { return c.now }
func (c *noopClock) Since(t time.Time) time.Duration { return c.now.Sub(t) }
func (c *noopClock) Sleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func makeEntries(titles ...string) []schedule.Entry {
	base := time.Date(2025, 3, 11, 9, 0, 0, 0, time.Local)
	entries := make([]schedule.Entry, 0, len(titles))
	for i, title := range titles {
		entries = append(entries, schedule.Entry{
			Task:      &types.VideoTask{Title: title, VideoPath: "/tmp/" + title + ".mp4"},
			PublishAt: base.Add(time.Duration(i) * 6 * time.Hour),
		})
	}
	return entries
}

func newTestRunner(s SessionKeeper, p Publisher) *Runner {
	r := NewRunner(s, p)
	r.SetClock(&noopClock{now: time.Now()})
	return r
}

func TestRunnerRun(t *testing.T) {
	// 测试1: 全部成功，报告顺序与输入一致
	t.Run("report_preserves_input_order", func(t *testing.T) {
		session := &fakeSession{}
		publisher := &fakePublisher{}
		report, err := newTestRunner(session, publisher).Run(context.Background(), makeEntries("一", "二", "三"))
		if err != nil {
			t.Fatalf("期望成功，实际: %v", err)
		}
		if report.Total != 3 || report.SuccessCount != 3 {
			t.Errorf("报告计数不对: %+v", report)
		}
		for i, want := range []string{"一", "二", "三"} {
			if report.Results[i].Title != want {
				t.Errorf("第%d项标题不对: 期望 %s，实际 %s", i, want, report.Results[i].Title)
			}
		}
	})

	// 测试2: 单条失败不影响后续条目
	t.Run("item_failure_is_isolated", func(t *testing.T) {
		session := &fakeSession{}
		publisher := &fakePublisher{failTitles: map[string]bool{"二": true}}
		report, err := newTestRunner(session, publisher).Run(context.Background(), makeEntries("一", "二", "三"))
		if err != nil {
			t.Fatalf("单条失败不应返回错误: %v", err)
		}
		if report.SuccessCount != 2 {
			t.Errorf("期望成功2条，实际%d条", report.SuccessCount)
		}
		if len(publisher.published) != 3 {
			t.Errorf("失败条目后的条目也应执行: %v", publisher.published)
		}
		if report.Results[1].Success() {
			t.Error("第2项应为失败")
		}
	})

	// 测试3: 每次成功后回写凭证，失败不回写
	t.Run("refresh_only_after_success", func(t *testing.T) {
		session := &fakeSession{}
		publisher := &fakePublisher{failTitles: map[string]bool{"二": true}}
		_, err := newTestRunner(session, publisher).Run(context.Background(), makeEntries("一", "二", "三"))
		if err != nil {
			t.Fatalf("运行失败: %v", err)
		}
		if session.refreshes != 2 {
			t.Errorf("期望回写2次，实际%d次", session.refreshes)
		}
	})

	// 测试4: 取消只在条目边界生效，已完成条目保留
	t.Run("cancel_at_item_boundary", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		session := &fakeSession{}
		publisher := &fakePublisher{cancelOn: "二", cancel: cancel}
		report, err := newTestRunner(session, publisher).Run(ctx, makeEntries("一", "二", "三", "四"))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("期望返回取消错误，实际: %v", err)
		}
		if len(report.Results) != 2 {
			t.Errorf("期望保留2条结果，实际%d条: %+v", len(report.Results), report.Results)
		}
		if len(publisher.published) != 2 {
			t.Errorf("取消后不应发布第3条: %v", publisher.published)
		}
	})

	// 测试5: 会话获取失败属于账号级失败，不产生报告
	t.Run("account_failure_aborts_batch", func(t *testing.T) {
		session := &fakeSession{acquireErrs: []error{&types.NotLoggedInError{Account: "tester"}}}
		publisher := &fakePublisher{}
		report, err := newTestRunner(session, publisher).Run(context.Background(), makeEntries("一", "二"))
		var notLoggedIn *types.NotLoggedInError
		if !errors.As(err, &notLoggedIn) {
			t.Fatalf("期望 NotLoggedInError，实际: %v", err)
		}
		if report != nil {
			t.Errorf("账号级失败不应产生报告: %+v", report)
		}
		if len(publisher.published) != 0 {
			t.Errorf("不应发布任何条目: %v", publisher.published)
		}
	})

	// 测试6: 会话中途失效时重新获取并继续
	t.Run("reacquires_dead_session_mid_batch", func(t *testing.T) {
		session := &fakeSession{deadAfter: 2}
		publisher := &fakePublisher{}
		report, err := newTestRunner(session, publisher).Run(context.Background(), makeEntries("一", "二", "三"))
		if err != nil {
			t.Fatalf("重新获取后应继续: %v", err)
		}
		if session.acquires != 2 {
			t.Errorf("期望获取会话2次，实际%d次", session.acquires)
		}
		if report.SuccessCount != 3 {
			t.Errorf("期望3条全部成功，实际%d条", report.SuccessCount)
		}
	})

	// 测试7: 重新获取失败返回已完成部分
	t.Run("reacquire_failure_returns_partial_report", func(t *testing.T) {
		session := &fakeSession{
			deadAfter:   2,
			acquireErrs: []error{nil, fmt.Errorf("浏览器池已关闭")},
		}
		publisher := &fakePublisher{}
		report, err := newTestRunner(session, publisher).Run(context.Background(), makeEntries("一", "二", "三"))
		if err == nil {
			t.Fatal("重新获取失败应返回错误")
		}
		if report == nil || len(report.Results) != 1 {
			t.Fatalf("应保留已完成的1条结果: %+v", report)
		}
	})

	// 测试8: 所有路径都归还会话
	t.Run("session_released_on_all_paths", func(t *testing.T) {
		session := &fakeSession{}
		publisher := &fakePublisher{}
		_, _ = newTestRunner(session, publisher).Run(context.Background(), makeEntries("一"))
		if session.releases != 1 {
			t.Errorf("正常路径应释放1次，实际%d次", session.releases)
		}

		failSession := &fakeSession{acquireErrs: []error{fmt.Errorf("获取失败")}}
		_, _ = newTestRunner(failSession, publisher).Run(context.Background(), makeEntries("一"))
		if failSession.releases != 0 {
			t.Errorf("获取失败时没有会话可释放，实际释放%d次", failSession.releases)
		}
	})

	// 测试9: 空排期直接返回空报告
	t.Run("empty_entries_no_session", func(t *testing.T) {
		session := &fakeSession{}
		report, err := newTestRunner(session, &fakePublisher{}).Run(context.Background(), nil)
		if err != nil {
			t.Fatalf("空排期不应报错: %v", err)
		}
		if report.Total != 0 || session.acquires != 0 {
			t.Errorf("空排期不应获取会话: report=%+v acquires=%d", report, session.acquires)
		}
	})

	// 测试10: 定时时间写进任务
	t.Run("schedule_time_written_to_task", func(t *testing.T) {
		entries := makeEntries("一")
		_, err := newTestRunner(&fakeSession{}, &fakePublisher{}).Run(context.Background(), entries)
		if err != nil {
			t.Fatalf("运行失败: %v", err)
		}
		if entries[0].Task.ScheduleTime == nil {
			t.Fatal("任务的定时时间未设置")
		}
		if *entries[0].Task.ScheduleTime != "2025-03-11 09:00" {
			t.Errorf("定时时间格式不对: %s", *entries[0].Task.ScheduleTime)
		}
	})
}
