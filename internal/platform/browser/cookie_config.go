package browser

// CookieDomainConfig 单个域名的Cookie配置
type CookieDomainConfig struct {
	Domain          string   // Cookie域名，空表示当前页面全量
	RequiredCookies []string // 必需Cookie名称列表
	ExtendedCookies []string // 扩展Cookie名称列表
}

// PlatformCookieConfig 平台Cookie检测配置
type PlatformCookieConfig struct {
	Domains         []CookieDomainConfig // 多域名Cookie配置
	RequiredCookies []string             // 必需Cookie名称列表（单域名简写）
	ExtendedCookies []string             // 扩展Cookie名称列表（单域名简写）
}

// platformCookieConfigs 登录态判定所需的Cookie清单。
// 必需Cookie缺失即视为登录失效；扩展Cookie只影响风控，缺失不拦截。
var platformCookieConfigs = map[string]PlatformCookieConfig{
	"douyin": {
		RequiredCookies: []string{"sessionid"},
		ExtendedCookies: []string{"ttwid", "odin_tt"},
	},
}

// GetCookieConfig 获取指定平台的Cookie配置
func GetCookieConfig(platform string) (PlatformCookieConfig, bool) {
	config, ok := platformCookieConfigs[platform]
	return config, ok
}

// GetAllCookies 获取所有参与检测的Cookie（必需+扩展）
func (config PlatformCookieConfig) GetAllCookies() []string {
	if len(config.Domains) > 0 {
		allCookies := make([]string, 0)
		for _, domain := range config.Domains {
			allCookies = append(allCookies, domain.RequiredCookies...)
			allCookies = append(allCookies, domain.ExtendedCookies...)
		}
		return allCookies
	}
	allCookies := make([]string, 0, len(config.RequiredCookies)+len(config.ExtendedCookies))
	allCookies = append(allCookies, config.RequiredCookies...)
	allCookies = append(allCookies, config.ExtendedCookies...)
	return allCookies
}
