package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"resume-gap-go/internal/llm"
	"resume-gap-go/internal/storage"
	"resume-gap-go/internal/storage/models"
	"resume-gap-go/pkg/types"
)

type memoryRecord struct {
	result  types.AnalysisResult
	request *types.AnalysisRequest
}

// memoryRepo 内存实现的分析仓库
type memoryRepo struct {
	mu      sync.Mutex
	records map[string]*memoryRecord
	outbox  []*models.OutboxMessage
	failErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: map[string]*memoryRecord{}}
}

func (m *memoryRepo) CreatePendingAnalysis(_ context.Context, id, fingerprint string, req *types.AnalysisRequest, outbox *models.OutboxMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	// 模拟数据库中存储的是 JSON
	data, _ := json.Marshal(req)
	var stored types.AnalysisRequest
	_ = json.Unmarshal(data, &stored)
	m.records[id] = &memoryRecord{
		result:  types.AnalysisResult{AnalysisID: id, Status: types.AnalysisStatusPending, Fingerprint: fingerprint},
		request: &stored,
	}
	m.outbox = append(m.outbox, outbox)
	return nil
}

func (m *memoryRepo) CompleteAnalysis(_ context.Context, result *types.AnalysisResult, outbox *models.OutboxMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	rec, ok := m.records[result.AnalysisID]
	if !ok {
		rec = &memoryRecord{}
		m.records[result.AnalysisID] = rec
	}
	rec.result = *result
	m.outbox = append(m.outbox, outbox)
	return nil
}

func (m *memoryRepo) FailAnalysis(_ context.Context, id string, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return storage.ErrNotFound
	}
	rec.result.Status = types.AnalysisStatusFailed
	rec.result.Error = cause.Error()
	return nil
}

func (m *memoryRepo) GetAnalysis(_ context.Context, id string) (*types.AnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	res := rec.result
	return &res, nil
}

func (m *memoryRepo) GetAnalysisRequest(_ context.Context, id string) (*types.AnalysisRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok || rec.request == nil {
		return nil, storage.ErrNotFound
	}
	req := *rec.request
	req.AnalysisID = id
	return &req, nil
}

func (m *memoryRepo) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.outbox))
	for _, msg := range m.outbox {
		out = append(out, msg.EventType)
	}
	return out
}

// staticLoader 固定语料
type staticLoader struct {
	corpus types.Corpus
	err    error
	calls  int
}

func (l *staticLoader) Source() string { return "static" }

func (l *staticLoader) Load(context.Context) (types.Corpus, error) {
	l.calls++
	if l.err != nil {
		return types.Corpus{}, l.err
	}
	return l.corpus, nil
}

// blockingLoader 在 release 关闭前阻塞 Load
type blockingLoader struct {
	corpus  types.Corpus
	started chan struct{}
	release chan struct{}
}

func newBlockingLoader(corpus types.Corpus) *blockingLoader {
	return &blockingLoader{corpus: corpus, started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (l *blockingLoader) Source() string { return "blocking" }

func (l *blockingLoader) Load(ctx context.Context) (types.Corpus, error) {
	l.started <- struct{}{}
	select {
	case <-l.release:
		return l.corpus, nil
	case <-ctx.Done():
		return types.Corpus{}, ctx.Err()
	}
}

// stubKeywords 固定的关键词抽取结果
type stubKeywords struct {
	keywords types.JobKeywords
	err      error
	calls    int
}

func (s *stubKeywords) Extract(_ context.Context, _ string) (*llm.KeywordExtraction, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &llm.KeywordExtraction{Keywords: s.keywords}, nil
}

var errBoom = errors.New("boom")

func newTestRedis(t *testing.T) (*storage.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return storage.NewRedisFromClient(client, time.Hour), mr
}

func testCorpus() types.Corpus {
	return types.Corpus{
		Jobs: []types.ReferenceDocument{
			{ID: "job-backend", Title: "Backend Engineer", Text: "Design distributed services and REST APIs in Go", Tags: []string{"Golang", "Kubernetes"}},
			{ID: "job-frontend", Title: "Frontend Engineer", Text: "Build responsive web interfaces", Tags: []string{"React", "TypeScript"}},
			{ID: "job-data", Title: "Data Engineer", Text: "Build data pipelines with Spark", Tags: []string{"Spark", "Python"}},
		},
		Resumes: []types.ReferenceDocument{
			{ID: "cv-go", Title: "Go Developer", Text: "Built Golang microservices on Kubernetes", Tags: []string{"Backend Engineer"}},
			{ID: "cv-web", Title: "Web Developer", Text: "Shipped React TypeScript apps", Tags: []string{"Frontend Engineer"}},
		},
	}
}

func requireReady(t *testing.T, r *RetrievalService) {
	t.Helper()
	_, err := r.Install(testCorpus())
	require.NoError(t, err)
}
