package keyword

import "strings"

// separatorReplacer 去除关键词中常见的分隔符：空格、连字符、下划线、点
var separatorReplacer = strings.NewReplacer(" ", "", "-", "", "_", "", ".", "")

// Normalize 将关键词规范化为比较用的键：去除首尾空白并转为小写。
// 原始大小写仅用于展示，比较时一律使用该键。
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// StripSeparators 返回去掉分隔符后的变体，例如 "node.js" -> "nodejs"
func StripSeparators(normalized string) string {
	return separatorReplacer.Replace(normalized)
}
