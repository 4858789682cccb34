package keyword

const (
	// DefaultPriorityLimit 优先关键词列表的最大长度
	DefaultPriorityLimit = 10
	// DefaultTopMissingPerCategory 每个类别建议中列出的缺失关键词数量
	DefaultTopMissingPerCategory = 3
)

// AnalyzerOpt 分析器的可选配置
type AnalyzerOpt func(*Analyzer)

// WithSaturation 设置相关度饱和频次
func WithSaturation(saturation float64) AnalyzerOpt {
	return func(a *Analyzer) {
		a.scorer = NewScorer(saturation)
	}
}

// WithPriorityLimit 设置优先关键词数量上限
func WithPriorityLimit(n int) AnalyzerOpt {
	return func(a *Analyzer) {
		if n > 0 {
			a.priorityLimit = n
		}
	}
}

// WithTopMissingPerCategory 设置分类建议中列出的缺失关键词数量
func WithTopMissingPerCategory(n int) AnalyzerOpt {
	return func(a *Analyzer) {
		if n > 0 {
			a.topMissing = n
		}
	}
}

// WithVocabulary 替换成就描述扫描使用的技术词表
func WithVocabulary(terms []string) AnalyzerOpt {
	return func(a *Analyzer) {
		if len(terms) == 0 {
			return
		}
		vocab := make([]string, 0, len(terms))
		for _, t := range terms {
			if n := Normalize(t); n != "" {
				vocab = append(vocab, n)
			}
		}
		a.vocabulary = vocab
	}
}
