package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"resume-gap-go/internal/config"
	"resume-gap-go/internal/constants"
	"resume-gap-go/internal/logger"
	"resume-gap-go/internal/retrieval"
	"resume-gap-go/internal/tracing"
	"resume-gap-go/pkg/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("resume-gap/service")

// Locker 分布式锁
type Locker interface {
	AcquireLock(ctx context.Context, key string, expiration time.Duration) (string, error)
	ReleaseLock(ctx context.Context, key, token string) (bool, error)
}

// ReloadStats 一次语料重载的统计
type ReloadStats struct {
	Source         string    `json:"source"`
	Jobs           int       `json:"jobs"`
	Resumes        int       `json:"resumes"`
	VocabularySize int       `json:"vocabulary_size"`
	LoadedAt       time.Time `json:"loaded_at"`
}

// RetrievalService 持有当前检索库。
// 重载时在后台构建新库，构建成功后整体替换，查询不会看到半成品。
type RetrievalService struct {
	library atomic.Pointer[retrieval.Library]
	stats   atomic.Pointer[ReloadStats]

	loader    CorpusLoader
	locker    Locker
	indexOpts []retrieval.IndexOpt
	jobK      int
	exampleK  int

	reloadMu sync.Mutex
}

// RetrievalOption 配置项
type RetrievalOption func(*RetrievalService)

// WithReloadLocker 多实例部署时用分布式锁串行化重载
func WithReloadLocker(l Locker) RetrievalOption {
	return func(s *RetrievalService) { s.locker = l }
}

// WithIndexOptions 透传给向量化器
func WithIndexOptions(opts ...retrieval.IndexOpt) RetrievalOption {
	return func(s *RetrievalService) { s.indexOpts = append(s.indexOpts, opts...) }
}

// WithResultCounts 默认返回的相似岗位数与示例简历数
func WithResultCounts(jobK, exampleK int) RetrievalOption {
	return func(s *RetrievalService) {
		if jobK > 0 {
			s.jobK = jobK
		}
		if exampleK > 0 {
			s.exampleK = exampleK
		}
	}
}

// NewRetrievalService 创建服务，此时库为空，需调用 Reload
func NewRetrievalService(loader CorpusLoader, opts ...RetrievalOption) *RetrievalService {
	s := &RetrievalService{
		loader:   loader,
		jobK:     retrieval.DefaultSimilarJobs,
		exampleK: retrieval.DefaultExampleResumes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RetrievalOptionsFromConfig 由引擎配置生成选项
func RetrievalOptionsFromConfig(cfg config.EngineConfig) []RetrievalOption {
	opts := []RetrievalOption{WithResultCounts(cfg.SimilarJobs, cfg.ExampleResumes)}
	if cfg.MaxFeatures > 0 {
		opts = append(opts, WithIndexOptions(retrieval.WithMaxFeatures(cfg.MaxFeatures)))
	}
	return opts
}

// Ready 检索库是否已加载
func (s *RetrievalService) Ready() bool {
	return s.library.Load() != nil
}

// Stats 最近一次成功重载的统计，未加载时返回 nil
func (s *RetrievalService) Stats() *ReloadStats {
	return s.stats.Load()
}

// Library 当前检索库
func (s *RetrievalService) Library() (*retrieval.Library, error) {
	lib := s.library.Load()
	if lib == nil {
		return nil, ErrIndexNotReady
	}
	return lib, nil
}

// DefaultCounts 默认结果数量
func (s *RetrievalService) DefaultCounts() (jobK, exampleK int) {
	return s.jobK, s.exampleK
}

// Reload 从语料来源重新构建检索库
func (s *RetrievalService) Reload(ctx context.Context) (*ReloadStats, error) {
	if s.loader == nil {
		return nil, errors.New("未配置语料来源")
	}
	ctx, span := tracer.Start(ctx, "RetrievalService.Reload")
	defer span.End()
	span.SetAttributes(attribute.String("corpus.source", s.loader.Source()))

	// 本进程已有重载在进行时直接拒绝，不排队重复构建
	if !s.reloadMu.TryLock() {
		return nil, ErrReloadInProgress
	}
	defer s.reloadMu.Unlock()

	if s.locker != nil {
		token, err := s.locker.AcquireLock(ctx, constants.KeyCorpusReloadLock, constants.CorpusReloadLockTTL)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeRedis)
			return nil, fmt.Errorf("获取重载锁失败: %w", err)
		}
		if token == "" {
			return nil, ErrReloadInProgress
		}
		defer func() {
			if _, err := s.locker.ReleaseLock(context.WithoutCancel(ctx), constants.KeyCorpusReloadLock, token); err != nil {
				logger.Ctx(ctx).Warn().Err(err).Msg("释放语料重载锁失败")
			}
		}()
	}

	corpus, err := s.loader.Load(ctx)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return nil, fmt.Errorf("加载语料失败: %w", err)
	}
	stats, err := s.install(corpus)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}
	stats.Source = s.loader.Source()
	span.SetAttributes(
		attribute.Int("corpus.jobs", stats.Jobs),
		attribute.Int("corpus.resumes", stats.Resumes),
		attribute.Int("corpus.vocabulary", stats.VocabularySize),
	)
	logger.Ctx(ctx).Info().
		Str("source", stats.Source).
		Int("jobs", stats.Jobs).
		Int("resumes", stats.Resumes).
		Int("vocabulary", stats.VocabularySize).
		Msg("检索库已重载")
	return stats, nil
}

// Install 直接用给定语料构建并替换检索库
func (s *RetrievalService) Install(corpus types.Corpus) (*ReloadStats, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	return s.install(corpus)
}

func (s *RetrievalService) install(corpus types.Corpus) (*ReloadStats, error) {
	corpus = NormalizeCorpus(corpus)
	lib, err := retrieval.NewLibrary(corpus, s.indexOpts...)
	if err != nil {
		// 构建失败时保留旧库
		return nil, err
	}
	stats := &ReloadStats{
		Jobs:           lib.Jobs().Len(),
		Resumes:        lib.Examples().Len(),
		VocabularySize: lib.Jobs().Vectorizer().VocabularySize(),
		LoadedAt:       time.Now(),
	}
	s.library.Store(lib)
	s.stats.Store(stats)
	return stats, nil
}

// SimilarJobs 查询相似岗位，k <= 0 时使用默认数量
func (s *RetrievalService) SimilarJobs(ctx context.Context, jobDescription string, k int) ([]types.ScoredDocument, error) {
	lib, err := s.Library()
	if err != nil {
		return nil, err
	}
	if k == 0 {
		k = s.jobK
	}
	_, span := tracer.Start(ctx, "RetrievalService.SimilarJobs")
	defer span.End()
	span.SetAttributes(attribute.Int("retrieval.k", k), attribute.String("retrieval.query", tracing.SafeText(jobDescription)))

	res, err := lib.SimilarJobs(jobDescription, k)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}
	return res, nil
}

// ExampleResumes 先检索相似岗位，再据此检索示例简历
func (s *RetrievalService) ExampleResumes(ctx context.Context, jobDescription string, jobK, k int) ([]types.ScoredDocument, []types.ScoredDocument, error) {
	lib, err := s.Library()
	if err != nil {
		return nil, nil, err
	}
	if jobK == 0 {
		jobK = s.jobK
	}
	if k == 0 {
		k = s.exampleK
	}
	_, span := tracer.Start(ctx, "RetrievalService.ExampleResumes")
	defer span.End()
	span.SetAttributes(
		attribute.Int("retrieval.job_k", jobK),
		attribute.Int("retrieval.k", k),
		attribute.String("retrieval.query", tracing.SafeText(jobDescription)),
	)

	jobs, examples, err := lib.ExamplesForJob(jobDescription, jobK, k)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, nil, err
	}
	return jobs, examples, nil
}
