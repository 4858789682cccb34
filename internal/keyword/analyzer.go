package keyword

import (
	"sort"

	"resume-gap-go/pkg/types"
)

// Analyzer 关键词差距分析器。
// 每次调用只读写自己的输入输出，可被多个 goroutine 并发使用。
type Analyzer struct {
	scorer        Scorer
	priorityLimit int
	topMissing    int
	vocabulary    []string
}

// NewAnalyzer 创建分析器
func NewAnalyzer(opts ...AnalyzerOpt) *Analyzer {
	a := &Analyzer{
		scorer:        NewScorer(DefaultSaturation),
		priorityLimit: DefaultPriorityLimit,
		topMissing:    DefaultTopMissingPerCategory,
		vocabulary:    TechVocabulary,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BuildCandidates 汇总简历中的候选关键词：技能、抽取关键词、项目技术栈、成就描述中的技术词
func (a *Analyzer) BuildCandidates(resume types.ResumeData) *CandidateSet {
	cs := NewCandidateSet(resume.TechnicalSkills...)
	cs.Add(resume.SoftSkills...)
	cs.Add(resume.ExtractedKeywords...)
	for _, p := range resume.Projects {
		cs.Add(p.Technologies...)
	}
	for _, exp := range resume.WorkExperience {
		for _, achievement := range exp.Achievements {
			cs.Add(ExtractTerms(achievement, a.vocabulary)...)
		}
	}
	return cs
}

// Analyze 对岗位关键词与简历做差距分析。
// 纯函数：不修改输入，不做 I/O；缺失字段一律按空处理。
func (a *Analyzer) Analyze(job types.JobKeywords, resume types.ResumeData) types.GapAnalysis {
	job = job.Normalize()
	resume = resume.Normalize()

	candidates := a.BuildCandidates(resume)
	freq := newFrequencyLookup(job.KeywordsFrequency)

	covered := make([]types.KeywordMatch, 0)
	missing := make([]types.KeywordMatch, 0)

	for _, category := range types.Categories {
		seen := make(map[string]struct{})
		for _, kw := range job.ByCategory(category) {
			key := Normalize(kw)
			if key == "" {
				continue
			}
			// 同一类别内按规范化文本去重
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			match := a.newMatch(kw, category, freq.get(kw), candidates)
			if match.FoundInResume {
				covered = append(covered, match)
			} else {
				missing = append(missing, match)
			}
		}
	}

	gap := types.GapAnalysis{
		CoveredKeywords:    covered,
		MissingKeywords:    missing,
		CoveragePercentage: coverage(len(covered), len(missing)),
	}
	gap.Recommendations = a.recommendations(gap, resume)
	gap.PriorityKeywords = a.priorityKeywords(missing)
	return gap
}

func (a *Analyzer) newMatch(kw string, category types.Category, frequency int, candidates *CandidateSet) types.KeywordMatch {
	found := IsPresent(kw, candidates)
	inResume := 0
	if found {
		inResume = 1
	}
	return types.KeywordMatch{
		Keyword:           kw,
		Category:          category,
		FoundInResume:     found,
		FrequencyInJD:     frequency,
		FrequencyInResume: inResume,
		RelevanceScore:    a.scorer.Score(frequency),
	}
}

// priorityKeywords 按 (相关度 desc, 岗位频次 desc) 稳定排序后取前 N 个
func (a *Analyzer) priorityKeywords(missing []types.KeywordMatch) []string {
	sorted := make([]types.KeywordMatch, len(missing))
	copy(sorted, missing)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].RelevanceScore != sorted[j].RelevanceScore {
			return sorted[i].RelevanceScore > sorted[j].RelevanceScore
		}
		return sorted[i].FrequencyInJD > sorted[j].FrequencyInJD
	})

	n := len(sorted)
	if n > a.priorityLimit {
		n = a.priorityLimit
	}
	out := make([]string, 0, n)
	for _, m := range sorted[:n] {
		out = append(out, m.Keyword)
	}
	return out
}

// topByRelevance 按相关度降序取前 n 个，同分保持原顺序
func topByRelevance(matches []types.KeywordMatch, n int) []types.KeywordMatch {
	sorted := make([]types.KeywordMatch, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RelevanceScore > sorted[j].RelevanceScore
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func coverage(covered, missing int) float64 {
	total := covered + missing
	if total == 0 {
		return 0
	}
	return float64(covered) / float64(total) * 100
}

// frequencyLookup 先按原文查找频次，再按规范化文本查找，都缺失时取默认值
type frequencyLookup struct {
	raw        map[string]int
	normalized map[string]int
}

func newFrequencyLookup(freq map[string]int) frequencyLookup {
	fl := frequencyLookup{raw: freq, normalized: make(map[string]int, len(freq))}
	for k, v := range freq {
		key := Normalize(k)
		if _, exists := fl.normalized[key]; !exists || v > fl.normalized[key] {
			fl.normalized[key] = v
		}
	}
	return fl
}

func (fl frequencyLookup) get(kw string) int {
	if v, ok := fl.raw[kw]; ok {
		return v
	}
	if v, ok := fl.normalized[Normalize(kw)]; ok {
		return v
	}
	return DefaultFrequency
}
