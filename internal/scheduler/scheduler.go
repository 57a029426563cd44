// Package scheduler 延迟发布调度：定时扫描到点任务，分发给工作协程执行。
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/A2Data/auto-douyin/internal/database"
	"github.com/A2Data/auto-douyin/internal/types"
	"github.com/A2Data/auto-douyin/internal/utils"
	"github.com/A2Data/auto-douyin/internal/utils/retry"

	"gorm.io/gorm"
)

const (
	queueSize     = 100
	checkInterval = 10 * time.Second
	taskTimeout   = 15 * time.Minute // 单任务执行上限，覆盖上传预算再留余量
	maxRetries    = 3
)

// Executor 到点任务的执行入口，由发布服务实现
type Executor interface {
	ExecuteScheduled(ctx context.Context, task *database.ScheduledTask) types.UploadOutcome
}

// Scheduler 从数据库取到点的延迟任务并执行。
// 任务用乐观更新认领，同一任务不会被重复派发；
// 连续失败触发熔断，熔断期间任务留在待执行状态等下一轮。
type Scheduler struct {
	db        *gorm.DB
	executor  Executor
	workers   int
	taskQueue chan *database.ScheduledTask
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
	breaker   *retry.CircuitBreaker
}

// New 创建调度器
func New(db *gorm.DB, executor Executor, workers int) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	return &Scheduler{
		db:        db,
		executor:  executor,
		workers:   workers,
		taskQueue: make(chan *database.ScheduledTask, queueSize),
		stopChan:  make(chan struct{}),
		breaker:   retry.NewCircuitBreaker(5, 2*time.Minute),
	}
}

// Start 启动轮询协程和工作协程，重复调用不生效
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.recoverStale()

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	s.wg.Add(1)
	go s.pollLoop()

	utils.Info(fmt.Sprintf("调度器已启动，工作协程数: %d", s.workers))
}

// Stop 停止调度器，等待在执行的任务结束
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()

	utils.Info("调度器已停止")
}

// AddTask 持久化一个延迟任务，到点的任务立即尝试派发
func (s *Scheduler) AddTask(task *database.ScheduledTask) error {
	task.Status = database.TaskStatusPending
	if err := s.db.Create(task).Error; err != nil {
		return fmt.Errorf("保存任务失败: %w", err)
	}

	if !task.ScheduleTime.After(time.Now()) {
		s.dispatch(task)
	}
	return nil
}

// CancelTask 取消一个尚未开始执行的任务
func (s *Scheduler) CancelTask(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).
		Model(&database.ScheduledTask{}).
		Where("id = ? AND status = ?", id, database.TaskStatusPending).
		Update("status", database.TaskStatusCancelled)
	if result.Error != nil {
		return fmt.Errorf("取消任务失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("任务 %s 不存在或已开始执行", id)
	}
	utils.Info(fmt.Sprintf("延迟任务 %s 已取消", id))
	return nil
}

// Tasks 按状态列出任务，status为空返回全部
func (s *Scheduler) Tasks(ctx context.Context, status database.TaskStatus, limit int) ([]database.ScheduledTask, error) {
	if limit <= 0 {
		limit = 100
	}
	query := s.db.WithContext(ctx).Order("schedule_time asc").Limit(limit)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var tasks []database.ScheduledTask
	if err := query.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("查询任务列表失败: %w", err)
	}
	return tasks, nil
}

// recoverStale 把上次进程退出时滞留在执行中的任务拨回待执行
func (s *Scheduler) recoverStale() {
	result := s.db.Model(&database.ScheduledTask{}).
		Where("status = ?", database.TaskStatusRunning).
		Update("status", database.TaskStatusPending)
	if result.Error != nil {
		utils.Warn(fmt.Sprintf("恢复滞留任务失败: %v", result.Error))
		return
	}
	if result.RowsAffected > 0 {
		utils.Info(fmt.Sprintf("恢复了 %d 个滞留任务", result.RowsAffected))
	}
}

func (s *Scheduler) pollLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.dispatchDue()
		}
	}
}

// dispatchDue 扫描到点的待执行任务并派发
func (s *Scheduler) dispatchDue() {
	var tasks []database.ScheduledTask
	err := s.db.
		Where("status = ? AND schedule_time <= ?", database.TaskStatusPending, time.Now()).
		Order("priority DESC, schedule_time ASC").
		Limit(queueSize).
		Find(&tasks).Error
	if err != nil {
		utils.Warn(fmt.Sprintf("扫描到点任务失败: %v", err))
		return
	}

	for i := range tasks {
		if !s.dispatch(&tasks[i]) {
			// 队列满，这一轮不再继续
			return
		}
	}
}

// dispatch 认领任务并入队。返回false表示队列已满。
// 认领用「仍是待执行才改为执行中」的条件更新，避免同一任务被派发两次。
func (s *Scheduler) dispatch(task *database.ScheduledTask) bool {
	result := s.db.Model(&database.ScheduledTask{}).
		Where("id = ? AND status = ?", task.ID, database.TaskStatusPending).
		Update("status", database.TaskStatusRunning)
	if result.Error != nil || result.RowsAffected == 0 {
		return true
	}
	task.Status = database.TaskStatusRunning

	select {
	case s.taskQueue <- task:
		return true
	default:
		s.markPending(task, "任务队列已满，等待下一轮")
		return false
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			return
		case task := <-s.taskQueue:
			s.run(task)
		}
	}
}

// run 执行单个任务并记录结果
func (s *Scheduler) run(task *database.ScheduledTask) {
	utils.Info(fmt.Sprintf("开始执行延迟任务 %s: %s", task.ID, task.Title))

	err := s.breaker.Execute(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()

		outcome := s.executor.ExecuteScheduled(ctx, task)
		if !outcome.Success() {
			return fmt.Errorf("%s", outcome.Message)
		}
		return nil
	})

	switch {
	case err == nil:
		s.markCompleted(task)
		utils.Success(fmt.Sprintf("延迟任务 %s 完成", task.ID))
	case errors.Is(err, retry.ErrCircuitOpen):
		// 熔断不消耗任务的重试次数
		s.markPending(task, err.Error())
	default:
		s.markFailure(task, err)
	}
}

// markFailure 失败后决定重试还是终结
func (s *Scheduler) markFailure(task *database.ScheduledTask, err error) {
	task.Retries++
	if task.Retries < maxRetries {
		utils.Warn(fmt.Sprintf("延迟任务 %s 第 %d 次失败: %v，等待重试", task.ID, task.Retries, err))
		s.update(task, database.TaskStatusPending, err.Error())
		return
	}
	utils.Error(fmt.Sprintf("延迟任务 %s 重试 %d 次后仍失败: %v", task.ID, task.Retries, err))
	s.update(task, database.TaskStatusFailed, err.Error())
}

func (s *Scheduler) markPending(task *database.ScheduledTask, reason string) {
	s.update(task, database.TaskStatusPending, reason)
}

func (s *Scheduler) markCompleted(task *database.ScheduledTask) {
	now := time.Now()
	task.CompletedAt = &now
	s.update(task, database.TaskStatusCompleted, "")
}

func (s *Scheduler) update(task *database.ScheduledTask, status database.TaskStatus, errMsg string) {
	task.Status = status
	task.Error = errMsg
	if err := s.db.Save(task).Error; err != nil {
		utils.Warn(fmt.Sprintf("更新任务状态失败: %v", err))
	}
}
