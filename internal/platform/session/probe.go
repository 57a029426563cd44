package session

import (
	"context"
	"fmt"
	"time"

	"github.com/A2Data/auto-douyin/internal/config"
	"github.com/A2Data/auto-douyin/internal/types"
	"github.com/A2Data/auto-douyin/internal/utils"
	"github.com/A2Data/auto-douyin/internal/utils/retry"

	"github.com/imroc/req/v3"
	"github.com/tidwall/gjson"
)

// ProbeResult API探测的三态结果
type ProbeResult int

const (
	// ProbeInconclusive 网络异常或响应无法识别，不能据此判定凭证状态
	ProbeInconclusive ProbeResult = iota
	ProbeValid
	ProbeInvalid
)

const (
	userInfoURL  = "https://creator.douyin.com/web/api/media/user/info/"
	probeTimeout = 10 * time.Second
	probeUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// ProbeSessionAPI 用创作者中心的用户信息接口快速校验凭证
// 登录有效时返回 ProbeValid 和昵称；接口明确返回未登录时返回 ProbeInvalid；
// 网络失败或响应格式不认识时返回 ProbeInconclusive，由调用方继续页面级校验
func ProbeSessionAPI(ctx context.Context, blob []byte) (ProbeResult, string, error) {
	cookieStr, err := CookieHeader(blob)
	if err != nil {
		return ProbeInconclusive, "", err
	}

	client := req.C().
		SetTimeout(probeTimeout).
		SetCommonHeaders(map[string]string{
			"user-agent": probeUA,
			"cookie":     cookieStr,
			"Referer":    "https://creator.douyin.com",
		})

	probeConfig := &retry.Config{
		MaxRetries:   1,
		InitialDelay: time.Second,
		Strategy:     retry.FixedInterval,
	}
	body, err := retry.DoWithResult(ctx, probeConfig, func() ([]byte, error) {
		resp, err := client.R().SetContext(ctx).Get(userInfoURL)
		if err != nil {
			return nil, types.NewNetworkError("请求用户信息接口", err)
		}
		return resp.Bytes(), nil
	})
	if err != nil {
		debugLog("用户信息接口请求失败: %v", err)
		return ProbeInconclusive, "", err
	}

	statusCode := gjson.GetBytes(body, "status_code")
	if !statusCode.Exists() {
		debugLog("用户信息接口响应缺少status_code字段")
		return ProbeInconclusive, "", nil
	}

	switch statusCode.Int() {
	case 8:
		return ProbeInvalid, "", nil
	case 0:
		nickname := gjson.GetBytes(body, "user.nick_name").String()
		if nickname == "" {
			nickname = gjson.GetBytes(body, "user.nickname").String()
		}
		if nickname != "" {
			utils.InfoWithPlatform(config.PlatformDouyin, fmt.Sprintf("接口校验通过，账号昵称: %s", nickname))
			return ProbeValid, nickname, nil
		}
		debugLog("status_code为0但未取到昵称，继续页面级校验")
		return ProbeInconclusive, "", nil
	default:
		debugLog("用户信息接口返回未知status_code: %d", statusCode.Int())
		return ProbeInconclusive, "", nil
	}
}

func debugLog(format string, args ...interface{}) {
	if config.Config != nil && config.Config.DebugMode {
		utils.InfoWithPlatform(config.PlatformDouyin, fmt.Sprintf("[调试] "+format, args...))
	}
}
