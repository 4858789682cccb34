package retrieval

import (
	"sort"

	"resume-gap-go/pkg/types"
)

// IndexOpt 建索引的可选配置
type IndexOpt func(*indexOptions)

type indexOptions struct {
	maxFeatures int
	maxNGram    int
}

// WithMaxFeatures 设置词表上限
func WithMaxFeatures(n int) IndexOpt {
	return func(o *indexOptions) { o.maxFeatures = n }
}

// WithMaxNGram 设置最大 n-gram 长度
func WithMaxNGram(n int) IndexOpt {
	return func(o *indexOptions) { o.maxNGram = n }
}

// VectorIndex 参考语料的 TF-IDF 索引。
// 构建后不再修改，可被任意多个 goroutine 并发查询；重建需重新 Build。
type VectorIndex struct {
	vectorizer *Vectorizer
	docs       []types.ReferenceDocument
	vectors    []SparseVector
}

// Build 在整个参考语料上拟合向量化器并生成文档矩阵。空语料返回 ConfigurationError。
func Build(docs []types.ReferenceDocument, opts ...IndexOpt) (*VectorIndex, error) {
	if len(docs) == 0 {
		return nil, newEmptyCorpusError("build")
	}
	o := indexOptions{maxFeatures: DefaultMaxFeatures, maxNGram: DefaultMaxNGram}
	for _, opt := range opts {
		opt(&o)
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.IndexText()
	}
	vectorizer := Fit(texts, o.maxFeatures, o.maxNGram)
	return newIndex(vectorizer, docs), nil
}

func newIndex(vectorizer *Vectorizer, docs []types.ReferenceDocument) *VectorIndex {
	ix := &VectorIndex{
		vectorizer: vectorizer,
		docs:       make([]types.ReferenceDocument, len(docs)),
		vectors:    make([]SparseVector, len(docs)),
	}
	for i, d := range docs {
		d.Tags = append([]string(nil), d.Tags...)
		ix.docs[i] = d
		ix.vectors[i] = vectorizer.Transform(d.IndexText())
	}
	return ix
}

// Project 使用同一个已拟合的向量化器（不重新拟合）为另一批文档建立索引
func (ix *VectorIndex) Project(docs []types.ReferenceDocument) *VectorIndex {
	return newIndex(ix.vectorizer, docs)
}

// Len 文档数量
func (ix *VectorIndex) Len() int {
	return len(ix.docs)
}

// Vectorizer 返回已拟合的向量化器
func (ix *VectorIndex) Vectorizer() *Vectorizer {
	return ix.vectorizer
}

// Document 按语料顺序返回文档
func (ix *VectorIndex) Document(i int) types.ReferenceDocument {
	d := ix.docs[i]
	d.Tags = append([]string(nil), d.Tags...)
	return d
}

// Query 返回与 text 最相似的前 k 篇文档，按分数降序，同分保持语料顺序。
// k 超过语料数量时返回全部；零向量查询得到全 0 分，不视为错误。
func (ix *VectorIndex) Query(text string, k int) ([]types.ScoredDocument, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	q := ix.vectorizer.Transform(text)

	order := make([]int, len(ix.docs))
	scores := make([]float64, len(ix.docs))
	for i := range ix.docs {
		order[i] = i
		scores[i] = Cosine(q, ix.vectors[i])
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	out := make([]types.ScoredDocument, 0, k)
	for _, i := range order[:k] {
		d := ix.docs[i]
		out = append(out, types.ScoredDocument{
			DocumentID: d.ID,
			Title:      d.Title,
			Tags:       append([]string(nil), d.Tags...),
			Score:      scores[i],
		})
	}
	return out, nil
}
