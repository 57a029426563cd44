package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/A2Data/auto-douyin/internal/database"
	"github.com/A2Data/auto-douyin/internal/types"

	"gorm.io/gorm"
)

type fakeExecutor struct {
	mu       sync.Mutex
	executed []string
	fail     bool
	message  string
}

func (f *fakeExecutor) ExecuteScheduled(ctx context.Context, task *database.ScheduledTask) types.UploadOutcome {
	f.mu.Lock()
	f.executed = append(f.executed, task.ID)
	f.mu.Unlock()

	if f.fail {
		return types.UploadOutcome{Status: types.OutcomeFailed, Title: task.Title, Message: f.message}
	}
	return types.UploadOutcome{Status: types.OutcomeSuccess, Title: task.Title}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Init(filepath.Join(t.TempDir(), "scheduler_test.db"))
	if err != nil {
		t.Fatalf("初始化测试数据库失败: %v", err)
	}
	return db
}

func newTask(id string, at time.Time) *database.ScheduledTask {
	return &database.ScheduledTask{
		ID:           id,
		Account:      "tester",
		Platform:     "douyin",
		VideoPath:    "/videos/" + id + ".mp4",
		Title:        "任务" + id,
		ScheduleTime: at,
		Status:       database.TaskStatusPending,
	}
}

func taskStatus(t *testing.T, db *gorm.DB, id string) database.ScheduledTask {
	t.Helper()
	var task database.ScheduledTask
	if err := db.First(&task, "id = ?", id).Error; err != nil {
		t.Fatalf("查询任务失败: %v", err)
	}
	return task
}

func TestSchedulerDispatch(t *testing.T) {
	// 测试1: 只派发到点的待执行任务，认领后状态变为执行中
	t.Run("dispatches_only_due_tasks", func(t *testing.T) {
		db := newTestDB(t)
		s := New(db, &fakeExecutor{}, 1)

		due := newTask("due-1", time.Now().Add(-time.Minute))
		future := newTask("future-1", time.Now().Add(time.Hour))
		if err := db.Create(due).Error; err != nil {
			t.Fatalf("插入任务失败: %v", err)
		}
		if err := db.Create(future).Error; err != nil {
			t.Fatalf("插入任务失败: %v", err)
		}

		s.dispatchDue()

		select {
		case queued := <-s.taskQueue:
			if queued.ID != "due-1" {
				t.Errorf("派发任务错误，期望 due-1，实际 %s", queued.ID)
			}
		default:
			t.Fatal("期望队列里有任务，实际为空")
		}

		if got := taskStatus(t, db, "due-1").Status; got != database.TaskStatusRunning {
			t.Errorf("认领后状态错误，期望 running，实际 %s", got)
		}
		if got := taskStatus(t, db, "future-1").Status; got != database.TaskStatusPending {
			t.Errorf("未到点任务状态错误，期望 pending，实际 %s", got)
		}
	})

	// 测试2: 已被认领的任务不会被二次派发
	t.Run("claim_is_exclusive", func(t *testing.T) {
		db := newTestDB(t)
		s := New(db, &fakeExecutor{}, 1)

		task := newTask("claim-1", time.Now().Add(-time.Minute))
		if err := db.Create(task).Error; err != nil {
			t.Fatalf("插入任务失败: %v", err)
		}

		s.dispatchDue()
		s.dispatchDue()

		count := 0
		for {
			select {
			case <-s.taskQueue:
				count++
				continue
			default:
			}
			break
		}
		if count != 1 {
			t.Errorf("派发次数错误，期望 1，实际 %d", count)
		}
	})

	// 测试3: 高优先级任务先派发
	t.Run("priority_order", func(t *testing.T) {
		db := newTestDB(t)
		s := New(db, &fakeExecutor{}, 1)

		low := newTask("low", time.Now().Add(-2*time.Minute))
		high := newTask("high", time.Now().Add(-time.Minute))
		high.Priority = 10
		if err := db.Create(low).Error; err != nil {
			t.Fatalf("插入任务失败: %v", err)
		}
		if err := db.Create(high).Error; err != nil {
			t.Fatalf("插入任务失败: %v", err)
		}

		s.dispatchDue()

		first := <-s.taskQueue
		if first.ID != "high" {
			t.Errorf("优先级排序错误，期望 high 先出队，实际 %s", first.ID)
		}
	})
}

func TestSchedulerRun(t *testing.T) {
	// 测试1: 执行成功后任务完成并记录完成时间
	t.Run("success_marks_completed", func(t *testing.T) {
		db := newTestDB(t)
		exec := &fakeExecutor{}
		s := New(db, exec, 1)

		task := newTask("ok-1", time.Now())
		task.Status = database.TaskStatusRunning
		if err := db.Create(task).Error; err != nil {
			t.Fatalf("插入任务失败: %v", err)
		}

		s.run(task)

		saved := taskStatus(t, db, "ok-1")
		if saved.Status != database.TaskStatusCompleted {
			t.Errorf("状态错误，期望 completed，实际 %s", saved.Status)
		}
		if saved.CompletedAt == nil {
			t.Error("完成时间未记录")
		}
		if len(exec.executed) != 1 {
			t.Errorf("执行次数错误，期望 1，实际 %d", len(exec.executed))
		}
	})

	// 测试2: 失败后回到待执行并累计重试次数
	t.Run("failure_requeues_with_retry_count", func(t *testing.T) {
		db := newTestDB(t)
		exec := &fakeExecutor{fail: true, message: "发布失败"}
		s := New(db, exec, 1)

		task := newTask("fail-1", time.Now())
		task.Status = database.TaskStatusRunning
		if err := db.Create(task).Error; err != nil {
			t.Fatalf("插入任务失败: %v", err)
		}

		s.run(task)

		saved := taskStatus(t, db, "fail-1")
		if saved.Status != database.TaskStatusPending {
			t.Errorf("状态错误，期望 pending，实际 %s", saved.Status)
		}
		if saved.Retries != 1 {
			t.Errorf("重试计数错误，期望 1，实际 %d", saved.Retries)
		}
		if saved.Error != "发布失败" {
			t.Errorf("错误信息未记录，实际 %q", saved.Error)
		}
	})

	// 测试3: 重试耗尽后终结为失败
	t.Run("exhausted_retries_mark_failed", func(t *testing.T) {
		db := newTestDB(t)
		exec := &fakeExecutor{fail: true, message: "发布失败"}
		s := New(db, exec, 1)

		task := newTask("fail-2", time.Now())
		task.Status = database.TaskStatusRunning
		task.Retries = maxRetries - 1
		if err := db.Create(task).Error; err != nil {
			t.Fatalf("插入任务失败: %v", err)
		}

		s.run(task)

		saved := taskStatus(t, db, "fail-2")
		if saved.Status != database.TaskStatusFailed {
			t.Errorf("状态错误，期望 failed，实际 %s", saved.Status)
		}
		if saved.Retries != maxRetries {
			t.Errorf("重试计数错误，期望 %d，实际 %d", maxRetries, saved.Retries)
		}
	})
}

func TestSchedulerRecoverStale(t *testing.T) {
	// 测试1: 启动时把滞留在执行中的任务拨回待执行
	t.Run("running_tasks_reset_to_pending", func(t *testing.T) {
		db := newTestDB(t)
		s := New(db, &fakeExecutor{}, 1)

		stale := newTask("stale-1", time.Now().Add(-time.Hour))
		stale.Status = database.TaskStatusRunning
		done := newTask("done-1", time.Now().Add(-time.Hour))
		done.Status = database.TaskStatusCompleted
		if err := db.Create(stale).Error; err != nil {
			t.Fatalf("插入任务失败: %v", err)
		}
		if err := db.Create(done).Error; err != nil {
			t.Fatalf("插入任务失败: %v", err)
		}

		s.recoverStale()

		if got := taskStatus(t, db, "stale-1").Status; got != database.TaskStatusPending {
			t.Errorf("滞留任务状态错误，期望 pending，实际 %s", got)
		}
		if got := taskStatus(t, db, "done-1").Status; got != database.TaskStatusCompleted {
			t.Errorf("已完成任务不应被改动，实际 %s", got)
		}
	})
}

func TestSchedulerAddTask(t *testing.T) {
	// 测试1: 到点的新任务立即派发
	t.Run("due_task_queued_immediately", func(t *testing.T) {
		db := newTestDB(t)
		s := New(db, &fakeExecutor{}, 1)

		if err := s.AddTask(newTask("now-1", time.Now().Add(-time.Second))); err != nil {
			t.Fatalf("添加任务失败: %v", err)
		}

		select {
		case queued := <-s.taskQueue:
			if queued.ID != "now-1" {
				t.Errorf("派发任务错误，期望 now-1，实际 %s", queued.ID)
			}
		default:
			t.Fatal("期望任务立即入队，实际队列为空")
		}
	})

	// 测试2: 未到点的新任务只落库
	t.Run("future_task_only_persisted", func(t *testing.T) {
		db := newTestDB(t)
		s := New(db, &fakeExecutor{}, 1)

		if err := s.AddTask(newTask("later-1", time.Now().Add(time.Hour))); err != nil {
			t.Fatalf("添加任务失败: %v", err)
		}

		select {
		case <-s.taskQueue:
			t.Error("未到点任务不应入队")
		default:
		}

		if got := taskStatus(t, db, "later-1").Status; got != database.TaskStatusPending {
			t.Errorf("状态错误，期望 pending，实际 %s", got)
		}
	})
}

func TestSchedulerCancelTask(t *testing.T) {
	// 测试1: 待执行的任务可以取消
	t.Run("pending_task_cancelled", func(t *testing.T) {
		db := newTestDB(t)
		s := New(db, &fakeExecutor{}, 1)

		if err := db.Create(newTask("c-1", time.Now().Add(time.Hour))).Error; err != nil {
			t.Fatalf("插入任务失败: %v", err)
		}

		if err := s.CancelTask(context.Background(), "c-1"); err != nil {
			t.Fatalf("期望取消成功，实际报错: %v", err)
		}
		if got := taskStatus(t, db, "c-1").Status; got != database.TaskStatusCancelled {
			t.Errorf("状态错误，期望 cancelled，实际 %s", got)
		}
	})

	// 测试2: 执行中的任务不能取消
	t.Run("running_task_not_cancellable", func(t *testing.T) {
		db := newTestDB(t)
		s := New(db, &fakeExecutor{}, 1)

		task := newTask("c-2", time.Now())
		task.Status = database.TaskStatusRunning
		if err := db.Create(task).Error; err != nil {
			t.Fatalf("插入任务失败: %v", err)
		}

		if err := s.CancelTask(context.Background(), "c-2"); err == nil {
			t.Error("期望报错，实际取消成功")
		}
	})

	// 测试3: 不存在的任务报错
	t.Run("missing_task_errors", func(t *testing.T) {
		db := newTestDB(t)
		s := New(db, &fakeExecutor{}, 1)

		if err := s.CancelTask(context.Background(), "ghost"); err == nil {
			t.Error("期望报错，实际取消成功")
		}
	})
}

func TestSchedulerTasks(t *testing.T) {
	// 测试1: 按状态筛选任务列表
	t.Run("filters_by_status", func(t *testing.T) {
		db := newTestDB(t)
		s := New(db, &fakeExecutor{}, 1)

		pending := newTask("p-1", time.Now())
		failed := newTask("f-1", time.Now())
		failed.Status = database.TaskStatusFailed
		if err := db.Create(pending).Error; err != nil {
			t.Fatalf("插入任务失败: %v", err)
		}
		if err := db.Create(failed).Error; err != nil {
			t.Fatalf("插入任务失败: %v", err)
		}

		got, err := s.Tasks(context.Background(), database.TaskStatusFailed, 10)
		if err != nil {
			t.Fatalf("查询失败: %v", err)
		}
		if len(got) != 1 || got[0].ID != "f-1" {
			t.Errorf("筛选结果错误，实际 %v", got)
		}

		all, err := s.Tasks(context.Background(), "", 10)
		if err != nil {
			t.Fatalf("查询失败: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("全量查询数量错误，期望 2，实际 %d", len(all))
		}
	})
}
