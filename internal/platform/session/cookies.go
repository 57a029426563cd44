package session

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PlaywrightCookie 存储状态文件里的单个Cookie
type PlaywrightCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HttpOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

// PlaywrightStorageState playwright 导出的存储状态
type PlaywrightStorageState struct {
	Cookies []PlaywrightCookie `json:"cookies"`
	Origins []struct {
		Origin       string `json:"origin"`
		LocalStorage []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"localStorage"`
	} `json:"origins"`
}

// CookieHeader 把存储状态JSON转成HTTP请求用的Cookie头
func CookieHeader(blob []byte) (string, error) {
	var state PlaywrightStorageState
	if err := json.Unmarshal(blob, &state); err != nil {
		return "", fmt.Errorf("解析凭证文件失败: %w", err)
	}
	if len(state.Cookies) == 0 {
		return "", fmt.Errorf("凭证文件中没有cookie")
	}
	parts := make([]string, 0, len(state.Cookies))
	for _, c := range state.Cookies {
		parts = append(parts, fmt.Sprintf("%s=%s", c.Name, c.Value))
	}
	return strings.Join(parts, "; "), nil
}

// HasCookie 判断存储状态里是否存在指定名称的Cookie
func HasCookie(blob []byte, name string) bool {
	var state PlaywrightStorageState
	if err := json.Unmarshal(blob, &state); err != nil {
		return false
	}
	for _, c := range state.Cookies {
		if c.Name == name {
			return true
		}
	}
	return false
}
