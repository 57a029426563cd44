package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/A2Data/auto-douyin/internal/types"
)

var planNow = time.Date(2025, 3, 10, 16, 45, 30, 0, time.Local)

func TestTimestamps(t *testing.T) {
	// 测试1: 每天2条，4条视频排满两天，当天时刻只用前两个
	t.Run("fills_days_in_order", func(t *testing.T) {
		stamps, err := Timestamps(4, 2, []int{9, 15, 21}, 1, planNow)
		if err != nil {
			t.Fatalf("排期失败: %v", err)
		}
		want := []time.Time{
			time.Date(2025, 3, 11, 9, 0, 0, 0, time.Local),
			time.Date(2025, 3, 11, 15, 0, 0, 0, time.Local),
			time.Date(2025, 3, 12, 9, 0, 0, 0, time.Local),
			time.Date(2025, 3, 12, 15, 0, 0, 0, time.Local),
		}
		if len(stamps) != len(want) {
			t.Fatalf("期望%d个时间点，实际%d个", len(want), len(stamps))
		}
		for i := range want {
			if !stamps[i].Equal(want[i]) {
				t.Errorf("第%d项不对: 期望 %v，实际 %v", i, want[i], stamps[i])
			}
		}
	})

	// 测试2: start_days=0 从当天开始排，不隐式顺延一天
	t.Run("start_days_zero_means_today", func(t *testing.T) {
		stamps, err := Timestamps(1, 1, []int{9}, 0, planNow)
		if err != nil {
			t.Fatalf("排期失败: %v", err)
		}
		want := time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)
		if !stamps[0].Equal(want) {
			t.Errorf("期望 %v，实际 %v", want, stamps[0])
		}
	})

	// 测试3: 每日条数超过时刻数时时刻按模循环，不崩溃
	t.Run("slots_wrap_when_per_day_exceeds_times", func(t *testing.T) {
		stamps, err := Timestamps(3, 3, []int{9, 15}, 0, planNow)
		if err != nil {
			t.Fatalf("排期失败: %v", err)
		}
		hours := []int{stamps[0].Hour(), stamps[1].Hour(), stamps[2].Hour()}
		if hours[0] != 9 || hours[1] != 15 || hours[2] != 9 {
			t.Errorf("时刻循环不对: %v", hours)
		}
		for i, s := range stamps {
			if s.Day() != 10 {
				t.Errorf("第%d项应排在当天: %v", i, s)
			}
		}
	})

	// 测试4: 分秒必须清零
	t.Run("minute_and_second_are_zero", func(t *testing.T) {
		stamps, err := Timestamps(1, 1, []int{21}, 2, planNow)
		if err != nil {
			t.Fatalf("排期失败: %v", err)
		}
		if stamps[0].Minute() != 0 || stamps[0].Second() != 0 {
			t.Errorf("分秒应为0: %v", stamps[0])
		}
	})

	// 测试5: 时间点使用now所在时区
	t.Run("uses_location_of_now", func(t *testing.T) {
		zone := time.FixedZone("UTC+8", 8*3600)
		now := time.Date(2025, 3, 10, 23, 59, 0, 0, zone)
		stamps, err := Timestamps(1, 1, []int{9}, 1, now)
		if err != nil {
			t.Fatalf("排期失败: %v", err)
		}
		if stamps[0].Location() != zone {
			t.Errorf("时区不对: %v", stamps[0].Location())
		}
		if stamps[0].Day() != 11 || stamps[0].Hour() != 9 {
			t.Errorf("时间点不对: %v", stamps[0])
		}
	})

	// 测试6: 只有两种参数形状算计划不合法
	t.Run("invalid_per_day", func(t *testing.T) {
		_, err := Timestamps(2, 0, []int{9}, 0, planNow)
		var invalid *types.InvalidPlanError
		if !errors.As(err, &invalid) {
			t.Errorf("期望 InvalidPlanError，实际: %v", err)
		}
	})

	t.Run("empty_daily_times", func(t *testing.T) {
		_, err := Timestamps(2, 2, nil, 0, planNow)
		var invalid *types.InvalidPlanError
		if !errors.As(err, &invalid) {
			t.Errorf("期望 InvalidPlanError，实际: %v", err)
		}
	})

	// 测试7: 没有视频返回空排期而非错误
	t.Run("zero_items_returns_empty", func(t *testing.T) {
		stamps, err := Timestamps(0, 2, []int{9}, 0, planNow)
		if err != nil {
			t.Fatalf("空输入不应报错: %v", err)
		}
		if len(stamps) != 0 {
			t.Errorf("期望空结果，实际: %v", stamps)
		}
	})
}

func TestPlan(t *testing.T) {
	t.Run("preserves_task_order", func(t *testing.T) {
		tasks := []*types.VideoTask{
			{Title: "一"},
			{Title: "二"},
			{Title: "三"},
		}
		entries, err := Plan(tasks, 2, []int{9, 15}, 0, planNow)
		if err != nil {
			t.Fatalf("排期失败: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("期望3项，实际%d项", len(entries))
		}
		for i, e := range entries {
			if e.Task != tasks[i] {
				t.Errorf("第%d项任务顺序不对: %s", i, e.Task.Title)
			}
		}
		if !entries[0].PublishAt.Before(entries[2].PublishAt) {
			t.Errorf("时间应递增: %v vs %v", entries[0].PublishAt, entries[2].PublishAt)
		}
	})

	t.Run("invalid_plan_passes_through", func(t *testing.T) {
		_, err := Plan([]*types.VideoTask{{Title: "一"}}, -1, []int{9}, 0, planNow)
		var invalid *types.InvalidPlanError
		if !errors.As(err, &invalid) {
			t.Errorf("期望 InvalidPlanError，实际: %v", err)
		}
	})
}
