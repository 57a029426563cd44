package douyin

// TruncateString 按字符数截断，中文标题按rune算长度
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
