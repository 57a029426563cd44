package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/A2Data/auto-douyin/internal/utils"

	"github.com/playwright-community/playwright-go"
)

// CookieChecker Cookie检测器
type CookieChecker struct {
	checkInterval time.Duration // 检测间隔
	timeout       time.Duration // 超时时间
}

// NewCookieChecker 创建Cookie检测器
func NewCookieChecker() *CookieChecker {
	return &CookieChecker{
		checkInterval: 2 * time.Second, // 检测间隔：2秒/次
		timeout:       5 * time.Minute, // 超时保护：5分钟
	}
}

// WaitForLoginCookies 等待登录Cookie出现
// 循环检测：「全量获取→映射判空→全量满足即返回」
func (cc *CookieChecker) WaitForLoginCookies(
	ctx context.Context,
	page playwright.Page,
	config PlatformCookieConfig,
) error {
	timeout := time.After(cc.timeout)
	ticker := time.NewTicker(cc.checkInterval)
	defer ticker.Stop()

	domains := cc.getCheckDomains(config)
	utils.Info(fmt.Sprintf("[-] 开始检测登录Cookie，必需字段: %v", config.GetAllCookies()))

	for {
		select {
		case <-timeout:
			return fmt.Errorf("登录Cookie检测超时（%v），未检测到必需Cookie", cc.timeout)
		case <-ctx.Done():
			return fmt.Errorf("context取消: %w", ctx.Err())
		case <-ticker.C:
			if page == nil {
				return fmt.Errorf("页面已关闭")
			}

			allValid := true
			for _, domainConfig := range domains {
				valid, err := cc.checkDomainCookies(page, domainConfig)
				if err != nil {
					if IsBrowserClosedError(err) {
						return fmt.Errorf("浏览器已关闭，终止Cookie检测: %w", err)
					}
					utils.Warn(fmt.Sprintf("[-] 检测域名 %s Cookie失败: %v", domainConfig.Domain, err))
					allValid = false
					break
				}
				if !valid {
					allValid = false
					break
				}
			}

			if allValid {
				utils.Info("[-] 检测到所有必需Cookie")
				return nil
			}
		}
	}
}

// getCheckDomains 获取需要检测的域名配置列表
func (cc *CookieChecker) getCheckDomains(config PlatformCookieConfig) []CookieDomainConfig {
	if len(config.Domains) > 0 {
		return config.Domains
	}
	return []CookieDomainConfig{
		{
			Domain:          "", // 使用当前页面域名
			RequiredCookies: config.RequiredCookies,
			ExtendedCookies: config.ExtendedCookies,
		},
	}
}

// checkDomainCookies 检测单个域名的Cookie
func (cc *CookieChecker) checkDomainCookies(
	page playwright.Page,
	config CookieDomainConfig,
) (bool, error) {
	domainStr := config.Domain
	if domainStr == "" {
		domainStr = "当前页面"
	}

	// Domain为空时全量获取
	var cookies []playwright.Cookie
	var err error
	if config.Domain == "" {
		cookies, err = page.Context().Cookies()
	} else {
		cookies, err = page.Context().Cookies(config.Domain)
	}
	if err != nil {
		return false, err
	}

	// 转为map方便查询，同时建一份小写键映射防大小写差异
	cookieMap := make(map[string]string, len(cookies))
	cookieMapLower := make(map[string]string, len(cookies))
	for _, cookie := range cookies {
		cookieMap[cookie.Name] = cookie.Value
		cookieMapLower[strings.ToLower(cookie.Name)] = cookie.Value
	}

	allRequiredExist := true
	for _, name := range config.RequiredCookies {
		if value, exists := cookieMap[name]; exists {
			utils.Info(fmt.Sprintf("    ✓ %s: 存在 (值长度=%d)", name, len(value)))
		} else if value, exists := cookieMapLower[strings.ToLower(name)]; exists {
			utils.Info(fmt.Sprintf("    ✓ %s: 存在 (大小写不同,值长度=%d)", name, len(value)))
		} else {
			utils.Info(fmt.Sprintf("    ✗ %s: 不存在", name))
			allRequiredExist = false
		}
	}

	if len(config.ExtendedCookies) > 0 {
		for _, name := range config.ExtendedCookies {
			if _, exists := cookieMap[name]; exists {
				continue
			}
			if _, exists := cookieMapLower[strings.ToLower(name)]; !exists {
				utils.Debug(fmt.Sprintf("    扩展Cookie缺失: %s", name))
			}
		}
	}

	if allRequiredExist {
		utils.Info(fmt.Sprintf("[-] 域名 [%s] 所有必需Cookie已检测到", domainStr))
	} else {
		utils.Info(fmt.Sprintf("[-] 域名 [%s] 缺少必需Cookie", domainStr))
	}

	return allRequiredExist, nil
}

// ValidateLoginCookies 验证当前Cookie是否有效（单次检测）
func (cc *CookieChecker) ValidateLoginCookies(
	page playwright.Page,
	config PlatformCookieConfig,
) (bool, error) {
	if page == nil {
		return false, fmt.Errorf("页面为空")
	}

	domains := cc.getCheckDomains(config)

	for _, domainConfig := range domains {
		valid, err := cc.checkDomainCookies(page, domainConfig)
		if err != nil {
			return false, fmt.Errorf("验证域名 %s Cookie失败: %w", domainConfig.Domain, err)
		}
		if !valid {
			return false, nil
		}
	}

	return true, nil
}

// IsBrowserClosedError 判断错误是否由浏览器关闭引起
func IsBrowserClosedError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "target closed") ||
		strings.Contains(errMsg, "browser has been closed") ||
		strings.Contains(errMsg, "context or browser has been closed") ||
		strings.Contains(errMsg, "page has been closed") ||
		strings.Contains(errMsg, "connection closed")
}
