package service

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/A2Data/auto-douyin/internal/types"
)

// MergeRule 日志归并规则
type MergeRule struct {
	Pattern    *regexp.Regexp // 匹配模式
	TimeWindow time.Duration  // 时间窗口
	MaxCount   int            // 最大归并数
	ShowFirst  bool           // 是否显示第一条
	ShowLast   bool           // 是否显示最后一条
}

// MergedLog 归并后的日志
type MergedLog struct {
	types.SimpleLog
	IsMerged    bool   `json:"isMerged"`
	RepeatCount int    `json:"repeatCount"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
}

// logGroup 归并组
type logGroup struct {
	key      string
	level    string
	message  string
	firstLog types.SimpleLog
	lastLog  types.SimpleLog
	count    int
	lastTime time.Time
}

// LogDeduplicator 日志去重归并器。
// 上传等待和重试这类轮询会在几秒内打出大量雷同日志，按规则折叠。
type LogDeduplicator struct {
	rules       []MergeRule
	groups      map[string]*logGroup
	mutex       sync.RWMutex
	maxWaitTime time.Duration
}

// NewLogDeduplicator 创建日志归并器
func NewLogDeduplicator() *LogDeduplicator {
	return &LogDeduplicator{
		rules:       defaultRules(),
		groups:      make(map[string]*logGroup),
		maxWaitTime: 500 * time.Millisecond,
	}
}

// defaultRules 默认归并规则
func defaultRules() []MergeRule {
	return []MergeRule{
		// cookie校验类日志
		{
			Pattern:    regexp.MustCompile(`(?i)cookie.*校验|校验登录cookie|target closed`),
			TimeWindow: 30 * time.Second,
			MaxCount:   100,
			ShowFirst:  true,
			ShowLast:   false,
		},
		// 上传进度轮询类日志
		{
			Pattern:    regexp.MustCompile(`上传进度|视频上传中|等待上传完成`),
			TimeWindow: 20 * time.Second,
			MaxCount:   100,
			ShowFirst:  true,
			ShowLast:   true,
		},
		// 页面加载等待类日志
		{
			Pattern:    regexp.MustCompile(`等待页面加载|页面未就绪`),
			TimeWindow: 10 * time.Second,
			MaxCount:   50,
			ShowFirst:  false,
			ShowLast:   false,
		},
		// 重试类日志
		{
			Pattern:    regexp.MustCompile(`(?i)重试|retry|次尝试`),
			TimeWindow: 15 * time.Second,
			MaxCount:   30,
			ShowFirst:  false,
			ShowLast:   false,
		},
	}
}

// extractLevel 从日志消息中提取级别
func extractLevel(message string) string {
	message = strings.ToLower(message)
	switch {
	case strings.Contains(message, "[error]"):
		return "error"
	case strings.Contains(message, "[warn]"):
		return "warn"
	case strings.Contains(message, "[info]"):
		return "info"
	case strings.Contains(message, "[debug]"):
		return "debug"
	case strings.Contains(message, "[success]"):
		return "success"
	default:
		return "info"
	}
}

// normalizeMessage 归一化消息用于比较，抹掉时间戳、百分比、次数等变化部分
func normalizeMessage(message string) string {
	re := regexp.MustCompile(`\d{2}:\d{2}:\d{2}|\d+%|\d+次|第\d+次`)
	return re.ReplaceAllString(message, "")
}

// matchRule 匹配归并规则
func (d *LogDeduplicator) matchRule(message string) *MergeRule {
	for i := range d.rules {
		if d.rules[i].Pattern.MatchString(message) {
			return &d.rules[i]
		}
	}
	return nil
}

// generateKey 生成归并键，平台参与区分
func generateKey(level, platform, normalizedMsg string) string {
	if platform != "" {
		return level + "|" + platform + "|" + normalizedMsg
	}
	return level + "|" + normalizedMsg
}

// Process 处理单条日志，返回需要立即输出的日志
func (d *LogDeduplicator) Process(log types.SimpleLog) []MergedLog {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	level := extractLevel(log.Message)
	normalized := normalizeMessage(log.Message)
	key := generateKey(level, log.Platform, normalized)

	logTime, _ := time.Parse("15:04:05", log.Time)
	if logTime.IsZero() {
		logTime = time.Now()
	}

	rule := d.matchRule(log.Message)
	if rule == nil {
		// 不匹配任何规则，直接输出
		return []MergedLog{{SimpleLog: log, IsMerged: false}}
	}

	group, exists := d.groups[key]
	if exists {
		if logTime.Sub(group.lastTime) <= rule.TimeWindow && group.count < rule.MaxCount {
			// 窗口内累加，暂不输出
			group.count++
			group.lastTime = logTime
			group.lastLog = log
			return nil
		}
		// 超出窗口或达到上限，刷新旧组再开新组
		result := d.flushGroup(key)
		d.createGroup(key, log, logTime)
		return result
	}

	d.createGroup(key, log, logTime)
	return nil
}

// createGroup 创建新的归并组
func (d *LogDeduplicator) createGroup(key string, log types.SimpleLog, logTime time.Time) {
	d.groups[key] = &logGroup{
		key:      key,
		level:    extractLevel(log.Message),
		message:  normalizeMessage(log.Message),
		firstLog: log,
		lastLog:  log,
		count:    1,
		lastTime: logTime,
	}
}

// flushGroup 刷新指定归并组，调用方需持有写锁
func (d *LogDeduplicator) flushGroup(key string) []MergedLog {
	group, exists := d.groups[key]
	if !exists || group.count == 0 {
		return nil
	}

	delete(d.groups, key)

	rule := d.matchRule(group.firstLog.Message)
	if rule == nil {
		return []MergedLog{{SimpleLog: group.firstLog, IsMerged: false}}
	}

	var results []MergedLog

	if rule.ShowFirst && group.count > 0 {
		results = append(results, MergedLog{
			SimpleLog:   group.firstLog,
			IsMerged:    false,
			RepeatCount: 1,
		})
	}

	if group.count > 1 {
		if !rule.ShowFirst {
			// 不显示第一条时，用第一条充当归并消息
			results = append(results, MergedLog{
				SimpleLog: types.SimpleLog{
					Date:     group.firstLog.Date,
					Time:     group.firstLog.Time,
					Platform: group.firstLog.Platform,
					Message:  group.firstLog.Message,
					Level:    group.firstLog.Level,
				},
				IsMerged:    true,
				RepeatCount: group.count,
				StartTime:   group.firstLog.Time,
				EndTime:     group.lastLog.Time,
			})
		} else {
			results = append(results, MergedLog{
				SimpleLog: types.SimpleLog{
					Date:     group.firstLog.Date,
					Time:     group.firstLog.Time,
					Platform: group.firstLog.Platform,
					Message:  "  ↳ 该消息在后续 " + rule.TimeWindow.String() + " 内重复出现 " + strconv.Itoa(group.count) + " 次 (" + group.firstLog.Time + " ~ " + group.lastLog.Time + ")",
					Level:    group.firstLog.Level,
				},
				IsMerged:    true,
				RepeatCount: group.count,
				StartTime:   group.firstLog.Time,
				EndTime:     group.lastLog.Time,
			})
		}
	}

	if rule.ShowLast && group.count > 1 {
		results = append(results, MergedLog{
			SimpleLog:   group.lastLog,
			IsMerged:    false,
			RepeatCount: 1,
		})
	}

	return results
}

// FlushAll 刷新所有待归并的日志
func (d *LogDeduplicator) FlushAll() []MergedLog {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	var results []MergedLog
	for key := range d.groups {
		if groupResults := d.flushGroup(key); len(groupResults) > 0 {
			results = append(results, groupResults...)
		}
	}
	return results
}

// GetPendingCount 待归并的日志组数量
func (d *LogDeduplicator) GetPendingCount() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return len(d.groups)
}
