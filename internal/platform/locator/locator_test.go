package locator

import (
	"errors"
	"testing"

	"github.com/A2Data/auto-douyin/internal/types"
)

func TestResolve(t *testing.T) {
	r := NewResolver()

	t.Run("known_target_returns_ordered_candidates", func(t *testing.T) {
		candidates, err := r.Resolve(FileInput)
		if err != nil {
			t.Fatalf("已登记目标不应报错: %v", err)
		}
		if len(candidates) == 0 {
			t.Fatal("候选选择器不应为空")
		}
		// 属性定位应排在最前
		if candidates[0] != `div[class^='container'] input[type='file']` {
			t.Errorf("候选顺序应按优先级排列，首个实际为: %s", candidates[0])
		}
	})

	t.Run("unknown_target_returns_typed_error", func(t *testing.T) {
		_, err := r.Resolve(Target("不存在的目标"))
		var unknownErr *types.UnknownTargetError
		if !errors.As(err, &unknownErr) {
			t.Fatalf("应返回 UnknownTargetError，实际: %v", err)
		}
		if unknownErr.Target != "不存在的目标" {
			t.Errorf("错误应携带目标名，实际: %s", unknownErr.Target)
		}
	})

	t.Run("resolve_returns_copy", func(t *testing.T) {
		first, _ := r.Resolve(PublishButton)
		first[0] = "被篡改"
		second, _ := r.Resolve(PublishButton)
		if second[0] == "被篡改" {
			t.Error("Resolve 应返回副本，内部表不允许被调用方修改")
		}
	})

	t.Run("pipeline_targets_all_registered", func(t *testing.T) {
		required := []Target{
			FileInput, UploadProgress, UploadSuccess, UploadError, VideoPreview,
			TitleInput, EditorZone, TagChip,
			CoverButton, CoverFileInput, CoverFinish,
			LocationSelect, LocationOption,
			ScheduleRadio, ScheduleInput,
			PublishButton, PublishSuccess,
			AuthMarker, LoginPrompt,
		}
		for _, target := range required {
			if !r.Known(target) {
				t.Errorf("发布流水线依赖的目标未登记: %s", target)
			}
		}
	})
}
