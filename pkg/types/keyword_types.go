package types

// Category 关键词类别
type Category string

const (
	CategoryTechnicalSkill Category = "technical_skills"
	CategorySoftSkill      Category = "soft_skills"
	CategoryToolTechnology Category = "tools_technologies"
)

// Categories 按分析顺序列出全部类别
var Categories = []Category{CategoryTechnicalSkill, CategorySoftSkill, CategoryToolTechnology}

// JobKeywords 从岗位描述中抽取出的分类关键词
type JobKeywords struct {
	TechnicalSkills   []string       `json:"technical_skills" yaml:"technical_skills"`
	SoftSkills        []string       `json:"soft_skills" yaml:"soft_skills"`
	ToolsTechnologies []string       `json:"tools_technologies" yaml:"tools_technologies"`
	KeywordsFrequency map[string]int `json:"keywords_frequency" yaml:"keywords_frequency"`
}

// Normalize 为缺失字段填充空值，返回新的副本
func (j JobKeywords) Normalize() JobKeywords {
	freq := make(map[string]int, len(j.KeywordsFrequency))
	for k, v := range j.KeywordsFrequency {
		// 出现次数不可能为负
		if v < 0 {
			v = 0
		}
		freq[k] = v
	}
	return JobKeywords{
		TechnicalSkills:   cloneStrings(j.TechnicalSkills),
		SoftSkills:        cloneStrings(j.SoftSkills),
		ToolsTechnologies: cloneStrings(j.ToolsTechnologies),
		KeywordsFrequency: freq,
	}
}

// ByCategory 返回指定类别的关键词列表
func (j JobKeywords) ByCategory(c Category) []string {
	switch c {
	case CategoryTechnicalSkill:
		return j.TechnicalSkills
	case CategorySoftSkill:
		return j.SoftSkills
	case CategoryToolTechnology:
		return j.ToolsTechnologies
	}
	return nil
}

// Total 三个类别的关键词总数（未去重）
func (j JobKeywords) Total() int {
	return len(j.TechnicalSkills) + len(j.SoftSkills) + len(j.ToolsTechnologies)
}

// KeywordMatch 单个岗位关键词在简历中的匹配结果
type KeywordMatch struct {
	Keyword           string   `json:"keyword"`
	Category          Category `json:"category"`
	FoundInResume     bool     `json:"found_in_resume"`
	FrequencyInJD     int      `json:"frequency_in_jd"`
	FrequencyInResume int      `json:"frequency_in_resume"` // 只记录是否出现：0 或 1
	RelevanceScore    float64  `json:"relevance_score"`
}

// GapAnalysis 一次 (岗位, 简历) 关键词差距分析的结果
type GapAnalysis struct {
	CoveredKeywords    []KeywordMatch `json:"covered_keywords"`
	MissingKeywords    []KeywordMatch `json:"missing_keywords"`
	CoveragePercentage float64        `json:"coverage_percentage"`
	Recommendations    []string       `json:"recommendations"`
	PriorityKeywords   []string       `json:"priority_keywords"`
}

// MissingIn 返回指定类别下的缺失关键词，保持原始顺序
func (g GapAnalysis) MissingIn(c Category) []KeywordMatch {
	var out []KeywordMatch
	for _, m := range g.MissingKeywords {
		if m.Category == c {
			out = append(out, m)
		}
	}
	return out
}

// SectionSuggestions 针对简历各章节的改进建议
type SectionSuggestions struct {
	SkillsSection       []string `json:"skills_section"`
	ExperienceSection   []string `json:"experience_section"`
	ProjectsSection     []string `json:"projects_section"`
	OverallImprovements []string `json:"overall_improvements"`
}
