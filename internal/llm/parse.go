package llm

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// ParseJSON 从模型回复中解析 JSON 对象到 out。
//
// 第一阶段严格解析完整对象；失败时第二阶段用 gjson 逐个顶层字段恢复，
// 能解析的字段写入 out，并返回 partial=true。一个字段都恢复不了时返回 ErrNoJSON。
func ParseJSON(text string, out interface{}) (partial bool, err error) {
	candidate := extractJSONObject(text)
	if candidate == "" {
		return false, ErrNoJSON
	}
	if err := json.Unmarshal([]byte(candidate), out); err == nil {
		return false, nil
	}

	recovered := 0
	gjson.Parse(candidate).ForEach(func(key, value gjson.Result) bool {
		if value.Raw == "" {
			return true
		}
		field, err := json.Marshal(map[string]json.RawMessage{key.String(): json.RawMessage(value.Raw)})
		if err != nil {
			return true
		}
		if json.Unmarshal(field, out) == nil {
			recovered++
		}
		return true
	})
	if recovered == 0 {
		return false, fmt.Errorf("%w: 无法恢复任何字段", ErrNoJSON)
	}
	return true, nil
}

// extractJSONObject 取第一个 '{' 开始的平衡对象，忽略字符串内的括号。
// 对象未闭合（输出被截断）时返回从 '{' 到结尾的内容。
func extractJSONObject(text string) string {
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == '{' {
			start = i
			break
		}
	}
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text[start:]
}
