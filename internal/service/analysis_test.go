package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-gap-go/internal/config"
	"resume-gap-go/internal/constants"
	"resume-gap-go/internal/storage"
	"resume-gap-go/pkg/types"
)

func sampleRequest() *types.AnalysisRequest {
	return &types.AnalysisRequest{
		JobKeywords: types.JobKeywords{
			TechnicalSkills:   []string{"Go", "Kubernetes"},
			SoftSkills:        []string{"communication"},
			ToolsTechnologies: []string{"Docker"},
			KeywordsFrequency: map[string]int{"Kubernetes": 5, "Docker": 2},
		},
		Resume: types.ResumeData{
			TechnicalSkills: []string{"Go"},
			SoftSkills:      []string{"Communication"},
			WorkExperience: []types.WorkExperience{
				{Title: "Engineer", Achievements: []string{"Reduced latency by 30%"}},
			},
		},
	}
}

func TestFingerprintStable(t *testing.T) {
	a := sampleRequest()
	b := sampleRequest()
	b.JobDescription = "   "
	b.JobKeywords.KeywordsFrequency = map[string]int{"Docker": 2, "Kubernetes": 5}

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
	assert.Len(t, fa, 64)

	b.Resume.TechnicalSkills = append(b.Resume.TechnicalSkills, "Kubernetes")
	fc, err := Fingerprint(b)
	require.NoError(t, err)
	assert.NotEqual(t, fa, fc)
}

func TestAnalyzeStandalone(t *testing.T) {
	s := NewAnalysisService(nil)
	res, err := s.Analyze(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, res.AnalysisID)
	assert.Equal(t, types.AnalysisStatusCompleted, res.Status)
	assert.InDelta(t, 50.0, res.GapAnalysis.CoveragePercentage, 1e-9)
	assert.Equal(t, []string{"Kubernetes", "Docker"}, res.GapAnalysis.PriorityKeywords)
	assert.NotEmpty(t, res.Suggestions.SkillsSection)
	assert.Empty(t, res.SimilarJobs, "没有岗位描述时不检索")

	_, err = s.Analyze(context.Background(), nil)
	assert.Error(t, err)
}

func TestAnalyzeWithCacheRepoAndRetrieval(t *testing.T) {
	rdb, _ := newTestRedis(t)
	repo := newMemoryRepo()
	retr := NewRetrievalService(&staticLoader{}, WithResultCounts(2, 1))
	requireReady(t, retr)

	s := NewAnalysisService(AnalyzerFromConfig(config.DefaultConfig().Engine),
		WithCache(rdb), WithRepository(repo), WithRetrieval(retr),
		WithEventRouting(EventRouting{Exchange: "ex", RequestKey: "req", CompletedKey: "done"}))

	req := sampleRequest()
	req.JobDescription = "Backend engineer building Golang services on Kubernetes"

	first, err := s.Analyze(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, first.SimilarJobs, 2)
	assert.Equal(t, "job-backend", first.SimilarJobs[0].DocumentID)
	require.Len(t, first.ExampleResumes, 1)
	assert.Equal(t, []string{storage.EventAnalysisCompleted}, repo.eventTypes())

	var event types.AnalysisCompletedEvent
	require.NoError(t, json.Unmarshal([]byte(repo.outbox[0].Payload), &event))
	assert.Equal(t, first.AnalysisID, event.AnalysisID)
	assert.Equal(t, "done", repo.outbox[0].TargetRoutingKey)
	assert.Equal(t, "ex", repo.outbox[0].TargetExchange)

	second, err := s.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.AnalysisID, second.AnalysisID, "相同请求命中指纹缓存")
	assert.Len(t, repo.eventTypes(), 1)

	got, err := s.Get(context.Background(), first.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, first.GapAnalysis.CoveragePercentage, got.GapAnalysis.CoveragePercentage)
}

func TestAnalyzeRepoFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.failErr = errBoom
	s := NewAnalysisService(nil, WithRepository(repo))
	_, err := s.Analyze(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, errBoom)
}

func TestAnalyzeExtractsKeywordsFromDescription(t *testing.T) {
	kw := &stubKeywords{keywords: types.JobKeywords{TechnicalSkills: []string{"Go", "Rust"}}}
	s := NewAnalysisService(nil, WithKeywordSource(kw))

	req := &types.AnalysisRequest{
		Resume:         types.ResumeData{TechnicalSkills: []string{"go"}},
		JobDescription: "We need Go and Rust",
	}
	res, err := s.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, kw.calls)
	assert.InDelta(t, 50.0, res.GapAnalysis.CoveragePercentage, 1e-9)

	kw.err = errBoom
	_, err = s.Analyze(context.Background(), req)
	assert.ErrorIs(t, err, errBoom)

	// 请求自带关键词时不调用抽取
	kw.err = nil
	_, err = s.Analyze(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, kw.calls)
}

func TestSubmitAndProcess(t *testing.T) {
	rdb, _ := newTestRedis(t)
	repo := newMemoryRepo()
	s := NewAnalysisService(nil, WithCache(rdb), WithRepository(repo), WithLocker(rdb))
	ctx := context.Background()

	id, err := s.Submit(ctx, sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{storage.EventAnalysisRequested}, repo.eventTypes())

	var msg storage.AnalysisRequestedMessage
	require.NoError(t, json.Unmarshal([]byte(repo.outbox[0].Payload), &msg))
	assert.Equal(t, id, msg.AnalysisID)
	assert.NotEmpty(t, msg.Fingerprint)

	pending, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisStatusPending, pending.Status)

	require.NoError(t, s.Process(ctx, id))
	done, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisStatusCompleted, done.Status)
	assert.Equal(t, msg.Fingerprint, done.Fingerprint)
	assert.InDelta(t, 50.0, done.GapAnalysis.CoveragePercentage, 1e-9)
	assert.Equal(t, []string{storage.EventAnalysisRequested, storage.EventAnalysisCompleted}, repo.eventTypes())

	// 重复投递不会再次处理
	require.NoError(t, s.Process(ctx, id))
	assert.Len(t, repo.eventTypes(), 2)

	// 已有结果的相同请求直接返回原ID
	again, err := s.Submit(ctx, sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestProcessSkipsLockedAndMissing(t *testing.T) {
	rdb, _ := newTestRedis(t)
	repo := newMemoryRepo()
	s := NewAnalysisService(nil, WithRepository(repo), WithLocker(rdb))
	ctx := context.Background()

	require.NoError(t, s.Process(ctx, "missing"))

	id, err := s.Submit(ctx, sampleRequest())
	require.NoError(t, err)

	token, err := rdb.AcquireLock(ctx, fmt.Sprintf(constants.KeyAnalysisLock, id), constants.AnalysisLockTTL)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, s.Process(ctx, id))
	res, err := repo.GetAnalysis(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisStatusPending, res.Status, "持锁期间不处理")
}

func TestProcessMarksFailed(t *testing.T) {
	repo := newMemoryRepo()
	kw := &stubKeywords{err: errBoom}
	s := NewAnalysisService(nil, WithRepository(repo), WithKeywordSource(kw))
	ctx := context.Background()

	id, err := s.Submit(ctx, &types.AnalysisRequest{JobDescription: "Go engineer"})
	require.NoError(t, err)
	require.NoError(t, s.Process(ctx, id))

	res, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisStatusFailed, res.Status)
	assert.Contains(t, res.Error, "boom")
}

func TestAsyncRequiresRepository(t *testing.T) {
	s := NewAnalysisService(nil)
	assert.False(t, s.AsyncEnabled())
	_, err := s.Submit(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, ErrAsyncUnavailable)
	assert.ErrorIs(t, s.Process(context.Background(), "x"), ErrAsyncUnavailable)

	_, err = s.Get(context.Background(), "x")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
