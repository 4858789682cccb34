package keyword

import "strings"

// CandidateSet 简历侧的候选关键词集合，元素均已规范化
type CandidateSet struct {
	exact    map[string]struct{}
	stripped map[string]struct{}
}

// NewCandidateSet 以给定文本构造候选集合，空字符串会被忽略
func NewCandidateSet(items ...string) *CandidateSet {
	cs := &CandidateSet{
		exact:    make(map[string]struct{}, len(items)),
		stripped: make(map[string]struct{}, len(items)),
	}
	cs.Add(items...)
	return cs
}

// Add 规范化并加入候选
func (cs *CandidateSet) Add(items ...string) {
	for _, item := range items {
		key := Normalize(item)
		if key == "" {
			continue
		}
		cs.exact[key] = struct{}{}
		if s := StripSeparators(key); s != "" {
			cs.stripped[s] = struct{}{}
		}
	}
}

// Len 候选数量
func (cs *CandidateSet) Len() int {
	return len(cs.exact)
}

// Contains 精确成员判断（参数需已规范化）
func (cs *CandidateSet) Contains(normalized string) bool {
	_, ok := cs.exact[normalized]
	return ok
}

// IsPresent 判断关键词是否出现在候选集合中，依次尝试：
//  1. 精确匹配
//  2. 子串匹配（任一方向）
//  3. 去分隔符后的精确匹配
//
// 结果与候选的插入顺序无关。
func IsPresent(keyword string, cs *CandidateSet) bool {
	if cs == nil {
		return false
	}
	key := Normalize(keyword)
	if key == "" {
		return false
	}

	if cs.Contains(key) {
		return true
	}

	for candidate := range cs.exact {
		if strings.Contains(candidate, key) || strings.Contains(key, candidate) {
			return true
		}
	}

	if s := StripSeparators(key); s != "" {
		if _, ok := cs.stripped[s]; ok {
			return true
		}
	}
	return false
}
