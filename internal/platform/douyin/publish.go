package douyin

import (
	"context"
	"fmt"
	"strings"

	"github.com/A2Data/auto-douyin/internal/platform/locator"
	"github.com/A2Data/auto-douyin/internal/utils"
)

const manageURLMark = "creator-micro/content/manage"

// stageSubmit 点击发布并轮询结果信号：跳转到作品管理页或出现成功提示。
// 站点偶尔弹「请设置封面后再发布」，顺手选推荐封面再继续。
func (u *Uploader) stageSubmit(ctx context.Context, f *flow) error {
	targets := make(map[locator.Target][]string)
	for _, t := range []locator.Target{
		locator.PublishButton,
		locator.PublishSuccess,
		locator.CoverPrompt,
		locator.RecommendCover,
		locator.ConfirmButton,
	} {
		candidates, err := u.resolver.Resolve(t)
		if err != nil {
			return err
		}
		targets[t] = candidates
	}

	utils.InfoWithPlatform(u.platform, "准备发布...")
	return waitUntil(ctx, u.clock, u.config.SubmitCheckInterval, u.config.SubmitCheckTimeout, StatePublished, func() (bool, error) {
		if f.bctx.IsPageClosed() {
			return false, fmt.Errorf("浏览器已关闭")
		}

		if btn := locator.FirstVisible(f.page, targets[locator.PublishButton]); btn != nil {
			if err := btn.Click(); err != nil {
				utils.WarnWithPlatform(u.platform, fmt.Sprintf("点击发布按钮失败: %v", err))
			}
		}

		if strings.Contains(f.page.URL(), manageURLMark) {
			utils.InfoWithPlatform(u.platform, "发布成功，页面已跳转")
			return true, nil
		}

		if prompt := locator.FirstVisible(f.page, targets[locator.CoverPrompt]); prompt != nil {
			utils.InfoWithPlatform(u.platform, "检测到封面未设置，选择推荐封面")
			if cover := locator.FirstVisible(f.page, targets[locator.RecommendCover]); cover != nil {
				if err := cover.Click(); err == nil {
					if confirm := locator.FirstVisible(f.page, targets[locator.ConfirmButton]); confirm != nil {
						if err := confirm.Click(); err != nil {
							utils.WarnWithPlatform(u.platform, fmt.Sprintf("点击确定失败: %v", err))
						}
					}
				}
			}
		}

		if success := locator.FirstVisible(f.page, targets[locator.PublishSuccess]); success != nil {
			utils.InfoWithPlatform(u.platform, "发布成功")
			return true, nil
		}
		return false, nil
	})
}
