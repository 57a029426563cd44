// Package schedule 计算批量发布的排期时间，纯函数，不碰浏览器和数据库。
package schedule

import (
	"time"

	"github.com/A2Data/auto-douyin/internal/types"
)

// Entry 排期结果中的一项
type Entry struct {
	Task      *types.VideoTask
	PublishAt time.Time
}

// Timestamps 生成 n 个发布时间点。
// 第 i 项落在第 startDays + i/perDay 天（startDays=0 即当天起排），
// 时刻取 dailyTimes[(i%perDay)%len(dailyTimes)] 点整，分秒为零。
// perDay 超过 dailyTimes 长度时时刻按模循环使用。
func Timestamps(n, perDay int, dailyTimes []int, startDays int, now time.Time) ([]time.Time, error) {
	if perDay <= 0 {
		return nil, &types.InvalidPlanError{Reason: "videos_per_day 必须大于0"}
	}
	if len(dailyTimes) == 0 {
		return nil, &types.InvalidPlanError{Reason: "daily_times 不能为空"}
	}
	if n <= 0 {
		return []time.Time{}, nil
	}

	base := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		day := startDays + i/perDay
		hour := dailyTimes[(i%perDay)%len(dailyTimes)]
		out = append(out, base.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour))
	}
	return out, nil
}

// Plan 为一组任务生成排期，结果顺序与输入一致
func Plan(tasks []*types.VideoTask, perDay int, dailyTimes []int, startDays int, now time.Time) ([]Entry, error) {
	stamps, err := Timestamps(len(tasks), perDay, dailyTimes, startDays, now)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(tasks))
	for i, task := range tasks {
		entries = append(entries, Entry{Task: task, PublishAt: stamps[i]})
	}
	return entries, nil
}
