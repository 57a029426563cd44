// Package locator 把发布流程里用到的页面元素收敛成一张逻辑目标表。
// 创作者后台改版时只需要改这里的候选选择器，各阶段代码不用动。
package locator

import (
	"github.com/A2Data/auto-douyin/internal/types"
)

// Target 页面元素的逻辑名称
type Target string

const (
	// 上传页
	FileInput      Target = "file_input"
	UploadProgress Target = "upload_progress"
	UploadSuccess  Target = "upload_success"
	UploadError    Target = "upload_error"
	VideoPreview   Target = "video_preview"
	VideoInfo      Target = "video_info"
	ReuploadMark   Target = "reupload_mark"

	// 元数据编辑区
	TitleInput  Target = "title_input"
	EditorZone  Target = "editor_zone"
	TagChip     Target = "tag_chip"
	TitleLabel  Target = "title_label"

	// 封面
	CoverButton    Target = "cover_button"
	CoverFileInput Target = "cover_file_input"
	CoverVertical  Target = "cover_vertical"
	CoverFinish    Target = "cover_finish"
	CoverPrompt    Target = "cover_prompt"
	RecommendCover Target = "recommend_cover"

	// 地理位置
	LocationSelect Target = "location_select"
	LocationOption Target = "location_option"

	// 定时发布
	ScheduleRadio Target = "schedule_radio"
	ScheduleInput Target = "schedule_input"

	// 发布确认
	PublishButton  Target = "publish_button"
	PublishSuccess Target = "publish_success"
	ConfirmButton  Target = "confirm_button"

	// 登录态标记
	AuthMarker  Target = "auth_marker"
	LoginPrompt Target = "login_prompt"
)

// douyinTable 抖音创作者后台的候选选择器，按优先级排列：
// 属性定位在前，文本定位次之，结构定位兜底。
var douyinTable = map[Target][]string{
	FileInput: {
		`div[class^='container'] input[type='file']`,
		`input[type="file"][accept*="video"]`,
		`input[type='file']`,
	},
	UploadProgress: {
		`[class*="progress"]`,
		`[class*="uploading"]`,
		`text=上传中`,
	},
	UploadSuccess: {
		`text=/上传成功|上传完成/`,
	},
	UploadError: {
		`text=/上传失败|上传出错/`,
	},
	VideoPreview: {
		`video`,
		`[class*="videoPreview"]`,
		`div[class*="player"]`,
	},
	VideoInfo: {
		`div[class*="video-info"]`,
		`div[class*="mediaInfo"]`,
	},
	ReuploadMark: {
		`[class^="long-card"] div:has-text("重新上传")`,
		`div:has-text("重新上传")`,
	},
	TitleInput: {
		`input[placeholder="填写作品标题，为作品获得更多流量"]`,
		`input[placeholder*="标题"]`,
		`.notranslate`,
	},
	TitleLabel: {
		`text=作品标题`,
	},
	EditorZone: {
		`.zone-container`,
		`div[data-placeholder*="简介"]`,
		`div[contenteditable="true"]`,
	},
	TagChip: {
		`.zone-container [class*="topic"]`,
		`.zone-container [class*="hash"]`,
		`.zone-container span[data-topic]`,
	},
	CoverButton: {
		`text="选择封面"`,
		`button:has-text("选择封面")`,
		`div[class^="cover"] div[class^="select"]`,
	},
	CoverFileInput: {
		`input[type="file"][accept^="image/"].semi-upload-hidden-input`,
		`input.semi-upload-hidden-input[type="file"]`,
		`div[class*="cover"] input[type="file"]`,
	},
	CoverVertical: {
		`button:has-text("设置竖封面")`,
		`text=设置竖封面`,
	},
	CoverFinish: {
		`div#tooltip-container button:visible:has-text("完成")`,
		`div[class^="extractFooter"] button:visible:has-text("完成")`,
		`button:has-text("完成")`,
	},
	CoverPrompt: {
		`text="请设置封面后再发布"`,
	},
	RecommendCover: {
		`[class^='recommendCover-']`,
	},
	LocationSelect: {
		`div.semi-select span:has-text("输入地理位置")`,
		`span:has-text("输入地理位置")`,
		`[placeholder*="地理位置"]`,
	},
	LocationOption: {
		`div[role="listbox"] [role="option"]`,
		`.semi-select-option`,
		`div[class*="option"]`,
	},
	ScheduleRadio: {
		`label:has-text("定时发布")`,
		`span:has-text("定时发布")`,
		`[class^='radio']:has-text('定时发布')`,
	},
	ScheduleInput: {
		`input[format="yyyy-MM-dd HH:mm"]`,
		`.semi-input[placeholder="日期和时间"]`,
		`input[placeholder*="日期"]`,
	},
	PublishButton: {
		`button:text-is("发布")`,
		`button:has-text("发布"):visible`,
	},
	PublishSuccess: {
		`text=/发布成功|提交成功/`,
	},
	ConfirmButton: {
		`button:text-is("确定")`,
		`button:has-text("确定")`,
	},
	AuthMarker: {
		`div[class^='container'] input[type='file']`,
		`[class*="semi-avatar"]`,
		`.user-avatar`,
	},
	LoginPrompt: {
		`text=手机号登录`,
		`text=扫码登录`,
	},
}

// Resolver 逻辑目标到候选选择器的解析器
type Resolver struct {
	table map[Target][]string
}

// NewResolver 返回抖音创作者后台的解析器
func NewResolver() *Resolver {
	return &Resolver{table: douyinTable}
}

// Resolve 返回目标的候选选择器，按优先级排列。
// 未登记的目标返回 UnknownTargetError。
func (r *Resolver) Resolve(target Target) ([]string, error) {
	candidates, ok := r.table[target]
	if !ok || len(candidates) == 0 {
		return nil, &types.UnknownTargetError{Target: string(target)}
	}
	out := make([]string, len(candidates))
	copy(out, candidates)
	return out, nil
}

// Known 目标是否已登记
func (r *Resolver) Known(target Target) bool {
	_, ok := r.table[target]
	return ok
}
