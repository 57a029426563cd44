package service

import (
	"strings"
	"sync"
	"time"

	"github.com/A2Data/auto-douyin/internal/types"
)

// LogService 内存日志环，供查询接口读取最近日志
type LogService struct {
	logs         []types.SimpleLog
	mutex        sync.RWMutex
	limit        int // 最大保留条数
	deduplicator *LogDeduplicator
	enableDedup  bool
	stop         chan struct{}
	stopOnce     sync.Once
}

// NewLogService 创建日志服务，默认启用归并
func NewLogService() *LogService {
	s := &LogService{
		logs:         make([]types.SimpleLog, 0, 500),
		limit:        500,
		deduplicator: NewLogDeduplicator(),
		enableDedup:  true,
		stop:         make(chan struct{}),
	}
	go s.flushLoop()
	return s
}

// Close 停止后台刷新协程并输出剩余的归并日志
func (s *LogService) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.flushPending()
	})
}

// flushLoop 定时把窗口内攒下的归并日志刷出来
func (s *LogService) flushLoop() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flushPending()
		case <-s.stop:
			return
		}
	}
}

// flushPending 刷新待归并的日志
func (s *LogService) flushPending() {
	if !s.IsDedupEnabled() {
		return
	}

	merged := s.deduplicator.FlushAll()
	if len(merged) == 0 {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.appendMerged(merged)
}

// appendMerged 追加归并结果并裁剪到上限，调用方需持有写锁
func (s *LogService) appendMerged(merged []MergedLog) {
	for _, m := range merged {
		s.logs = append(s.logs, m.SimpleLog)
	}
	if len(s.logs) > s.limit {
		s.logs = s.logs[len(s.logs)-s.limit:]
	}
}

// Add 添加日志，实现 utils.LogServiceInterface
func (s *LogService) Add(log types.SimpleLog) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.enableDedup {
		s.appendMerged(s.deduplicator.Process(log))
		return
	}

	s.logs = append(s.logs, log)
	if len(s.logs) > s.limit {
		s.logs = s.logs[len(s.logs)-s.limit:]
	}
}

// Query 按关键词、平台、级别筛选日志，最新的在前
func (s *LogService) Query(query types.LogQuery) []types.SimpleLog {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}

	result := make([]types.SimpleLog, 0, limit)
	for i := len(s.logs) - 1; i >= 0 && len(result) < limit; i-- {
		log := s.logs[i]

		if query.Keyword != "" && !strings.Contains(log.Message, query.Keyword) {
			continue
		}
		if query.Platform != "" && log.Platform != query.Platform {
			continue
		}
		if query.Level != "" && log.Level != query.Level {
			continue
		}
		result = append(result, log)
	}
	return result
}

// GetAll 获取最近的日志
func (s *LogService) GetAll(limit int) []types.SimpleLog {
	if limit <= 0 {
		limit = 100
	}
	return s.Query(types.LogQuery{Limit: limit})
}

// Clear 清空日志和归并器里的暂存
func (s *LogService) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.logs = make([]types.SimpleLog, 0, s.limit)
	if s.deduplicator != nil {
		s.deduplicator.FlushAll()
	}
}

// Count 当前日志数量
func (s *LogService) Count() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.logs)
}

// SetDedupEnabled 开关日志归并，关闭时先刷出暂存的归并日志
func (s *LogService) SetDedupEnabled(enabled bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !enabled && s.enableDedup {
		s.appendMerged(s.deduplicator.FlushAll())
	}
	s.enableDedup = enabled
}

// IsDedupEnabled 归并是否启用
func (s *LogService) IsDedupEnabled() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.enableDedup
}

// GetPendingDedupCount 待归并的日志组数量
func (s *LogService) GetPendingDedupCount() int {
	if s.deduplicator == nil {
		return 0
	}
	return s.deduplicator.GetPendingCount()
}

// GetPlatforms 有日志记录的平台列表
func (s *LogService) GetPlatforms() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	seen := make(map[string]bool)
	for _, log := range s.logs {
		if log.Platform != "" {
			seen[log.Platform] = true
		}
	}

	platforms := make([]string, 0, len(seen))
	for platform := range seen {
		platforms = append(platforms, platform)
	}
	return platforms
}
