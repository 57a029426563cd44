package douyin

import (
	"context"
	"fmt"

	"github.com/A2Data/auto-douyin/internal/platform/locator"
	"github.com/A2Data/auto-douyin/internal/utils"
)

// stageUploadFile 注入视频文件并等待上传完成
func (u *Uploader) stageUploadFile(ctx context.Context, f *flow) error {
	inputs, err := u.resolver.Resolve(locator.FileInput)
	if err != nil {
		return err
	}
	// 文件输入框是隐藏元素，只按存在性找
	input := locator.FirstPresent(f.page, inputs)
	if input == nil {
		return fmt.Errorf("未找到文件输入框")
	}

	if err := input.SetInputFiles(f.task.VideoPath); err != nil {
		return fmt.Errorf("设置视频文件失败: %v", err)
	}

	utils.InfoWithPlatform(u.platform, "等待视频上传完成...")
	return u.waitForUploadDone(ctx, f)
}

// waitForUploadDone 轮询上传完成信号，按可靠程度依次检测：
// 重新上传标记、视频预览区、进度条消失且出现视频信息、成功文本。
// 出现失败文本立即报错，交给阶段重试。
func (u *Uploader) waitForUploadDone(ctx context.Context, f *flow) error {
	targets := make(map[locator.Target][]string)
	for _, t := range []locator.Target{
		locator.ReuploadMark,
		locator.VideoPreview,
		locator.UploadProgress,
		locator.VideoInfo,
		locator.UploadSuccess,
		locator.UploadError,
	} {
		candidates, err := u.resolver.Resolve(t)
		if err != nil {
			return err
		}
		targets[t] = candidates
	}

	return waitUntil(ctx, u.clock, u.config.UploadCheckInterval, u.config.UploadTimeout, StateFileUploading, func() (bool, error) {
		if f.bctx.IsPageClosed() {
			return false, fmt.Errorf("浏览器已关闭")
		}

		if locator.CountFirst(f.page, targets[locator.ReuploadMark]) > 0 {
			utils.InfoWithPlatform(u.platform, "视频上传完成（检测到重新上传标记）")
			return true, nil
		}
		if loc := locator.FirstVisible(f.page, targets[locator.VideoPreview]); loc != nil {
			utils.InfoWithPlatform(u.platform, "视频上传完成（检测到预览）")
			return true, nil
		}
		if locator.CountFirst(f.page, targets[locator.UploadProgress]) == 0 &&
			locator.CountFirst(f.page, targets[locator.VideoInfo]) > 0 {
			utils.InfoWithPlatform(u.platform, "视频上传完成")
			return true, nil
		}
		if loc := locator.FirstVisible(f.page, targets[locator.UploadSuccess]); loc != nil {
			utils.InfoWithPlatform(u.platform, "视频上传完成（检测到成功文本）")
			return true, nil
		}
		if locator.CountFirst(f.page, targets[locator.UploadError]) > 0 {
			return false, fmt.Errorf("检测到上传失败提示")
		}
		return false, nil
	})
}
