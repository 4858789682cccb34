package retrieval

import (
	"math"
	"sort"
)

const (
	// DefaultMaxFeatures 词表上限（按文档频次保留）
	DefaultMaxFeatures = 1000
	// DefaultMaxNGram 使用 unigram + bigram
	DefaultMaxNGram = 2
)

// SparseVector 稀疏向量，按 Index 升序
type SparseVector []Entry

// Entry 稀疏向量中的一个非零分量
type Entry struct {
	Index  int
	Weight float64
}

// Norm L2 范数
func (v SparseVector) Norm() float64 {
	var sum float64
	for _, e := range v {
		sum += e.Weight * e.Weight
	}
	return math.Sqrt(sum)
}

// Dot 两个有序稀疏向量的点积
func (v SparseVector) Dot(o SparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v) && j < len(o) {
		switch {
		case v[i].Index == o[j].Index:
			sum += v[i].Weight * o[j].Weight
			i++
			j++
		case v[i].Index < o[j].Index:
			i++
		default:
			j++
		}
	}
	return sum
}

// Cosine 余弦相似度，任一向量为零向量时返回 0
func Cosine(a, b SparseVector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	sim := a.Dot(b) / (na * nb)
	// 浮点误差截断到 [0,1]
	if sim > 1 {
		return 1
	}
	if sim < 0 {
		return 0
	}
	return sim
}

// Vectorizer 已拟合的 TF-IDF 向量化器。拟合后只读，可并发使用。
type Vectorizer struct {
	vocabulary map[string]int
	terms      []string
	idf        []float64
	maxNGram   int
}

// Fit 在给定文本上拟合词表与 IDF 权重。
// 词表按文档频次降序截取 maxFeatures 个（同频按字典序），最终按字典序编号；
// IDF 使用平滑公式 ln((1+n)/(1+df)) + 1。
func Fit(texts []string, maxFeatures, maxNGram int) *Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	if maxNGram <= 0 {
		maxNGram = DefaultMaxNGram
	}

	df := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]struct{})
		for _, term := range Terms(text, maxNGram) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	candidates := make([]string, 0, len(df))
	for term := range df {
		candidates = append(candidates, term)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if df[candidates[i]] != df[candidates[j]] {
			return df[candidates[i]] > df[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})
	if len(candidates) > maxFeatures {
		candidates = candidates[:maxFeatures]
	}
	sort.Strings(candidates)

	n := float64(len(texts))
	v := &Vectorizer{
		vocabulary: make(map[string]int, len(candidates)),
		terms:      candidates,
		idf:        make([]float64, len(candidates)),
		maxNGram:   maxNGram,
	}
	for i, term := range candidates {
		v.vocabulary[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return v
}

// VocabularySize 词表大小
func (v *Vectorizer) VocabularySize() int {
	return len(v.terms)
}

// Term 返回编号对应的词项
func (v *Vectorizer) Term(i int) string {
	return v.terms[i]
}

// Transform 将文本投影到已拟合的向量空间并做 L2 归一化。词表外的词项直接丢弃。
func (v *Vectorizer) Transform(text string) SparseVector {
	counts := make(map[int]float64)
	for _, term := range Terms(text, v.maxNGram) {
		if idx, ok := v.vocabulary[term]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return SparseVector{}
	}

	vec := make(SparseVector, 0, len(counts))
	for idx, tf := range counts {
		vec = append(vec, Entry{Index: idx, Weight: tf * v.idf[idx]})
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].Index < vec[j].Index })

	if norm := vec.Norm(); norm > 0 {
		for i := range vec {
			vec[i].Weight /= norm
		}
	}
	return vec
}
