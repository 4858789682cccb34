package types

import "strings"

// ReferenceDocument 检索语料中的一条参考文档（历史岗位或成功简历）
type ReferenceDocument struct {
	ID    string   `json:"id" yaml:"id"`
	Title string   `json:"title,omitempty" yaml:"title,omitempty"`
	Text  string   `json:"text" yaml:"text"`
	Tags  []string `json:"tags" yaml:"tags"`
}

// IndexText 建索引时使用的文本：正文 + 标签
func (d ReferenceDocument) IndexText() string {
	if len(d.Tags) == 0 {
		return d.Text
	}
	return d.Text + " " + strings.Join(d.Tags, " ")
}

// ScoredDocument 相似度查询结果中的一项
type ScoredDocument struct {
	DocumentID string   `json:"document_id"`
	Title      string   `json:"title,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Score      float64  `json:"score"`
}

// Corpus 参考语料：岗位与成功简历示例
type Corpus struct {
	Jobs    []ReferenceDocument `json:"jobs" yaml:"jobs"`
	Resumes []ReferenceDocument `json:"resumes" yaml:"resumes"`
}
