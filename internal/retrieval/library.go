package retrieval

import (
	"strings"

	"resume-gap-go/pkg/types"
)

const (
	// DefaultSimilarJobs 相似岗位默认数量
	DefaultSimilarJobs = 3
	// DefaultExampleResumes 成功简历示例默认数量
	DefaultExampleResumes = 2
)

// Library 岗位索引 + 示例简历集合。
// 向量空间只在岗位语料上拟合，示例简历通过同一个向量化器投影。
type Library struct {
	jobs     *VectorIndex
	examples *VectorIndex
}

// NewLibrary 从语料构建检索库，岗位语料为空时返回 ConfigurationError
func NewLibrary(corpus types.Corpus, opts ...IndexOpt) (*Library, error) {
	jobs, err := Build(corpus.Jobs, opts...)
	if err != nil {
		return nil, err
	}
	return &Library{
		jobs:     jobs,
		examples: jobs.Project(corpus.Resumes),
	}, nil
}

// Jobs 岗位索引
func (l *Library) Jobs() *VectorIndex { return l.jobs }

// Examples 示例简历索引
func (l *Library) Examples() *VectorIndex { return l.examples }

// SimilarJobs 查找与岗位描述最相似的历史岗位
func (l *Library) SimilarJobs(jobDescription string, k int) ([]types.ScoredDocument, error) {
	return l.jobs.Query(jobDescription, k)
}

// ExampleResumes 以相似岗位的标题和技能标签拼成查询，检索成功简历示例
func (l *Library) ExampleResumes(similarJobs []types.ScoredDocument, k int) ([]types.ScoredDocument, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	parts := make([]string, 0, len(similarJobs))
	for _, job := range similarJobs {
		parts = append(parts, strings.TrimSpace(job.Title+" "+strings.Join(job.Tags, " ")))
	}
	return l.examples.Query(strings.Join(parts, " "), k)
}

// ExamplesForJob 先找相似岗位，再据此检索示例简历
func (l *Library) ExamplesForJob(jobDescription string, jobK, k int) ([]types.ScoredDocument, []types.ScoredDocument, error) {
	jobs, err := l.SimilarJobs(jobDescription, jobK)
	if err != nil {
		return nil, nil, err
	}
	examples, err := l.ExampleResumes(jobs, k)
	if err != nil {
		return nil, nil, err
	}
	return jobs, examples, nil
}
