package service

import (
	"testing"
	"time"

	"github.com/A2Data/auto-douyin/internal/database"
	"github.com/A2Data/auto-douyin/internal/schedule"
	"github.com/A2Data/auto-douyin/internal/types"
)

func TestValidatePlanSpec(t *testing.T) {
	validSpec := func() types.BatchPlanSpec {
		return types.BatchPlanSpec{
			Videos:       []*types.VideoTask{{VideoPath: "/tmp/a.mp4"}},
			VideosPerDay: 2,
			DailyTimes:   []int{9, 15, 21},
			StartDays:    1,
		}
	}

	// 测试1: 合法计划通过校验
	t.Run("valid_spec_passes", func(t *testing.T) {
		if err := validatePlanSpec(validSpec()); err != nil {
			t.Errorf("期望通过校验，实际报错: %v", err)
		}
	})

	// 测试2: 空任务列表被拒绝
	t.Run("empty_videos_rejected", func(t *testing.T) {
		spec := validSpec()
		spec.Videos = nil
		if err := validatePlanSpec(spec); err == nil {
			t.Error("期望报错，实际通过")
		}
	})

	// 测试3: 小时越界被拒绝
	t.Run("hour_out_of_range_rejected", func(t *testing.T) {
		for _, hour := range []int{-1, 24, 100} {
			spec := validSpec()
			spec.DailyTimes = []int{hour}
			if err := validatePlanSpec(spec); err == nil {
				t.Errorf("小时 %d 期望报错，实际通过", hour)
			}
		}
	})

	// 测试4: 负的起始天数被拒绝
	t.Run("negative_start_days_rejected", func(t *testing.T) {
		spec := validSpec()
		spec.StartDays = -1
		if err := validatePlanSpec(spec); err == nil {
			t.Error("期望报错，实际通过")
		}
	})
}

func TestDeferredRows(t *testing.T) {
	// 测试1: 计划条目逐字段转成延迟任务记录，标签空格连接
	t.Run("builds_rows_from_entries", func(t *testing.T) {
		at := time.Date(2025, 3, 11, 9, 0, 0, 0, time.Local)
		entries := []schedule.Entry{
			{
				Task: &types.VideoTask{
					VideoPath:   "/videos/a.mp4",
					Title:       "视频A",
					Description: "描述A",
					Tags:        []string{"旅行", "美食"},
					Thumbnail:   "/covers/a.png",
					Location:    "杭州",
				},
				PublishAt: at,
			},
			{
				Task:      &types.VideoTask{VideoPath: "/videos/b.mp4", Title: "视频B"},
				PublishAt: at.Add(6 * time.Hour),
			},
		}

		rows, err := deferredRows("tester", entries)
		if err != nil {
			t.Fatalf("期望成功，实际报错: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("记录数量错误，期望 2，实际 %d", len(rows))
		}

		first := rows[0]
		if first.ID == "" {
			t.Error("任务ID不应为空")
		}
		if first.Account != "tester" {
			t.Errorf("账号错误，期望 tester，实际 %s", first.Account)
		}
		if first.Tags != "旅行 美食" {
			t.Errorf("标签连接错误，期望 旅行 美食，实际 %s", first.Tags)
		}
		if !first.ScheduleTime.Equal(at) {
			t.Errorf("计划时间错误，期望 %v，实际 %v", at, first.ScheduleTime)
		}
		if first.Status != database.TaskStatusPending {
			t.Errorf("初始状态错误，期望 pending，实际 %s", first.Status)
		}
		if rows[0].ID == rows[1].ID {
			t.Error("任务ID应唯一")
		}
	})
}

func TestScheduledToTask(t *testing.T) {
	// 测试1: 延迟任务记录还原成发布任务，标签按空格拆分
	t.Run("restores_task_fields", func(t *testing.T) {
		st := &database.ScheduledTask{
			VideoPath:   "/videos/a.mp4",
			Title:       "视频A",
			Description: "描述A",
			Tags:        "旅行 美食",
			Thumbnail:   "/covers/a.png",
			Location:    "杭州",
		}

		task := scheduledToTask(st)
		if task.VideoPath != st.VideoPath {
			t.Errorf("视频路径错误，期望 %s，实际 %s", st.VideoPath, task.VideoPath)
		}
		if len(task.Tags) != 2 || task.Tags[0] != "旅行" || task.Tags[1] != "美食" {
			t.Errorf("标签拆分错误，实际 %v", task.Tags)
		}
		if task.ScheduleTime != nil {
			t.Error("延迟任务执行时不应再带站点定时，期望 ScheduleTime 为空")
		}
	})

	// 测试2: 空标签字段不产生空标签
	t.Run("empty_tags_stay_empty", func(t *testing.T) {
		task := scheduledToTask(&database.ScheduledTask{VideoPath: "/v.mp4"})
		if len(task.Tags) != 0 {
			t.Errorf("期望无标签，实际 %v", task.Tags)
		}
	})
}
