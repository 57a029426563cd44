package locator

import (
	"github.com/playwright-community/playwright-go"
)

// FirstVisible 依次探测候选选择器，返回第一个存在且可见的定位器；都不可见返回 nil
func FirstVisible(page playwright.Page, candidates []string) playwright.Locator {
	for _, selector := range candidates {
		loc := page.Locator(selector)
		if count, _ := loc.Count(); count > 0 {
			if visible, _ := loc.First().IsVisible(); visible {
				return loc.First()
			}
		}
	}
	return nil
}

// FirstPresent 返回第一个在DOM中存在的定位器，不要求可见。
// 文件上传用的 input 通常是隐藏元素，只能用这个找。
func FirstPresent(page playwright.Page, candidates []string) playwright.Locator {
	for _, selector := range candidates {
		loc := page.Locator(selector)
		if count, _ := loc.Count(); count > 0 {
			return loc.First()
		}
	}
	return nil
}

// CountFirst 返回第一个有匹配的候选选择器的匹配数量，全部无匹配返回 0
func CountFirst(page playwright.Page, candidates []string) int {
	for _, selector := range candidates {
		loc := page.Locator(selector)
		if count, _ := loc.Count(); count > 0 {
			return count
		}
	}
	return 0
}
