package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel/attribute"

	"resume-gap-go/internal/config"
	"resume-gap-go/internal/constants"
	"resume-gap-go/internal/keyword"
	"resume-gap-go/internal/llm"
	"resume-gap-go/internal/logger"
	"resume-gap-go/internal/storage"
	"resume-gap-go/internal/storage/models"
	"resume-gap-go/internal/tracing"
	"resume-gap-go/pkg/types"
)

// AnalysisCache 分析结果缓存
type AnalysisCache interface {
	CacheAnalysis(ctx context.Context, result *types.AnalysisResult) error
	GetAnalysis(ctx context.Context, analysisID string) (*types.AnalysisResult, error)
	GetAnalysisByFingerprint(ctx context.Context, fingerprint string) (*types.AnalysisResult, error)
}

// AnalysisRepository 分析记录持久化
type AnalysisRepository interface {
	CreatePendingAnalysis(ctx context.Context, analysisID, fingerprint string, req *types.AnalysisRequest, outbox *models.OutboxMessage) error
	CompleteAnalysis(ctx context.Context, result *types.AnalysisResult, outbox *models.OutboxMessage) error
	FailAnalysis(ctx context.Context, analysisID string, cause error) error
	GetAnalysis(ctx context.Context, analysisID string) (*types.AnalysisResult, error)
	GetAnalysisRequest(ctx context.Context, analysisID string) (*types.AnalysisRequest, error)
}

// KeywordSource 从岗位描述中抽取关键词
type KeywordSource interface {
	Extract(ctx context.Context, jobDescription string) (*llm.KeywordExtraction, error)
}

// EventRouting 发件箱事件的目标交换机与路由键
type EventRouting struct {
	Exchange     string
	RequestKey   string
	CompletedKey string
}

// EventRoutingFromConfig 从 RabbitMQ 配置读取路由
func EventRoutingFromConfig(cfg config.RabbitMQConfig) EventRouting {
	return EventRouting{
		Exchange:     cfg.AnalysisExchange,
		RequestKey:   cfg.AnalysisRequestKey,
		CompletedKey: cfg.AnalysisCompletedKey,
	}
}

// AnalysisService 差距分析编排：缓存、关键词分析、章节建议、检索上下文、持久化与事件
type AnalysisService struct {
	analyzer  *keyword.Analyzer
	cache     AnalysisCache
	repo      AnalysisRepository
	locker    Locker
	retrieval *RetrievalService
	keywords  KeywordSource
	routing   EventRouting
	now       func() time.Time
}

// AnalysisOption 配置项
type AnalysisOption func(*AnalysisService)

// WithCache 启用结果缓存
func WithCache(c AnalysisCache) AnalysisOption {
	return func(s *AnalysisService) { s.cache = c }
}

// WithRepository 启用持久化与异步分析
func WithRepository(r AnalysisRepository) AnalysisOption {
	return func(s *AnalysisService) { s.repo = r }
}

// WithLocker 异步处理时用分布式锁避免重复消费
func WithLocker(l Locker) AnalysisOption {
	return func(s *AnalysisService) { s.locker = l }
}

// WithRetrieval 请求带岗位描述时附带相似岗位与示例简历
func WithRetrieval(r *RetrievalService) AnalysisOption {
	return func(s *AnalysisService) { s.retrieval = r }
}

// WithKeywordSource 请求只带岗位描述时用它补齐关键词
func WithKeywordSource(k KeywordSource) AnalysisOption {
	return func(s *AnalysisService) { s.keywords = k }
}

// WithEventRouting 设置发件箱事件路由
func WithEventRouting(r EventRouting) AnalysisOption {
	return func(s *AnalysisService) { s.routing = r }
}

// NewAnalysisService 创建服务。analyzer 为 nil 时使用默认参数。
func NewAnalysisService(analyzer *keyword.Analyzer, opts ...AnalysisOption) *AnalysisService {
	if analyzer == nil {
		analyzer = keyword.NewAnalyzer()
	}
	s := &AnalysisService{
		analyzer: analyzer,
		routing:  EventRoutingFromConfig(config.DefaultConfig().RabbitMQ),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzerFromConfig 按引擎配置创建分析器
func AnalyzerFromConfig(cfg config.EngineConfig) *keyword.Analyzer {
	opts := make([]keyword.AnalyzerOpt, 0, 3)
	if cfg.RelevanceSaturation > 0 {
		opts = append(opts, keyword.WithSaturation(cfg.RelevanceSaturation))
	}
	if cfg.PriorityLimit > 0 {
		opts = append(opts, keyword.WithPriorityLimit(cfg.PriorityLimit))
	}
	if cfg.TopMissingPerCategory > 0 {
		opts = append(opts, keyword.WithTopMissingPerCategory(cfg.TopMissingPerCategory))
	}
	return keyword.NewAnalyzer(opts...)
}

// AsyncEnabled 是否可以受理异步分析
func (s *AnalysisService) AsyncEnabled() bool {
	return s.repo != nil
}

// Fingerprint 规范化请求的 SHA-256，相同输入得到相同指纹
func Fingerprint(req *types.AnalysisRequest) (string, error) {
	canonical := struct {
		JobKeywords    types.JobKeywords `json:"job_keywords"`
		Resume         types.ResumeData  `json:"resume"`
		JobDescription string            `json:"job_description"`
	}{
		JobKeywords:    req.JobKeywords.Normalize(),
		Resume:         req.Resume.Normalize(),
		JobDescription: strings.TrimSpace(req.JobDescription),
	}
	// encoding/json 对 map 键排序，输出稳定
	data, err := json.Marshal(canonical)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Analyze 同步分析。命中缓存时直接返回之前的结果。
func (s *AnalysisService) Analyze(ctx context.Context, req *types.AnalysisRequest) (*types.AnalysisResult, error) {
	ctx, span := tracer.Start(ctx, "AnalysisService.Analyze")
	defer span.End()

	if req == nil {
		return nil, errors.New("分析请求为空")
	}
	// 指纹基于原始输入，命中缓存时不再调用关键词抽取
	fingerprint, err := Fingerprint(req)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return nil, fmt.Errorf("计算请求指纹失败: %w", err)
	}
	span.SetAttributes(attribute.String("analysis.fingerprint", fingerprint))

	if cached := s.lookupFingerprint(ctx, fingerprint); cached != nil {
		span.SetAttributes(attribute.Bool("analysis.cache_hit", true))
		return cached, nil
	}

	prepared, err := s.prepare(ctx, req)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成分析ID失败: %w", err)
	}
	result := s.compute(ctx, id.String(), fingerprint, prepared)
	span.SetAttributes(attribute.String("analysis.id", result.AnalysisID))

	if err := s.persist(ctx, result); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, err
	}
	s.store(ctx, result)
	return result, nil
}

// Submit 登记异步分析并通过发件箱投递请求事件，返回分析ID。
// 相同请求已有缓存结果时直接返回该结果的ID。
func (s *AnalysisService) Submit(ctx context.Context, req *types.AnalysisRequest) (string, error) {
	if s.repo == nil {
		return "", ErrAsyncUnavailable
	}
	if req == nil {
		return "", errors.New("分析请求为空")
	}
	ctx, span := tracer.Start(ctx, "AnalysisService.Submit")
	defer span.End()

	fingerprint, err := Fingerprint(req)
	if err != nil {
		return "", fmt.Errorf("计算请求指纹失败: %w", err)
	}
	if cached := s.lookupFingerprint(ctx, fingerprint); cached != nil {
		return cached.AnalysisID, nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("生成分析ID失败: %w", err)
	}
	analysisID := id.String()
	span.SetAttributes(attribute.String("analysis.id", analysisID))

	msg, err := models.NewOutboxMessage(analysisID, storage.EventAnalysisRequested, s.routing.Exchange, s.routing.RequestKey,
		storage.AnalysisRequestedMessage{AnalysisID: analysisID, Fingerprint: fingerprint, RequestedAt: s.now()})
	if err != nil {
		return "", fmt.Errorf("构造请求事件失败: %w", err)
	}
	if err := s.repo.CreatePendingAnalysis(ctx, analysisID, fingerprint, req, msg); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return "", err
	}
	logger.Ctx(ctx).Info().Str("analysis_id", analysisID).Msg("异步分析已受理")
	return analysisID, nil
}

// Process 处理一条已登记的异步分析，由消费者调用。
// 返回的错误表示应重试；请求本身有问题时记为失败并返回 nil。
func (s *AnalysisService) Process(ctx context.Context, analysisID string) error {
	if s.repo == nil {
		return ErrAsyncUnavailable
	}
	ctx, span := tracer.Start(ctx, "AnalysisService.Process")
	defer span.End()
	span.SetAttributes(attribute.String("analysis.id", analysisID))
	log := logger.Ctx(ctx).With().Str("analysis_id", analysisID).Logger()

	if s.locker != nil {
		lockKey := fmt.Sprintf(constants.KeyAnalysisLock, analysisID)
		token, err := s.locker.AcquireLock(ctx, lockKey, constants.AnalysisLockTTL)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeRedis)
			return fmt.Errorf("获取分析锁失败: %w", err)
		}
		if token == "" {
			log.Info().Msg("分析正在被其他消费者处理，跳过")
			return nil
		}
		defer func() {
			if _, err := s.locker.ReleaseLock(context.WithoutCancel(ctx), lockKey, token); err != nil {
				log.Warn().Err(err).Msg("释放分析锁失败")
			}
		}()
	}

	existing, err := s.repo.GetAnalysis(ctx, analysisID)
	if errors.Is(err, storage.ErrNotFound) {
		log.Warn().Msg("分析记录不存在，丢弃消息")
		return nil
	}
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return err
	}
	if existing.Status != types.AnalysisStatusPending {
		log.Debug().Str("status", string(existing.Status)).Msg("分析已结束，跳过")
		return nil
	}

	req, err := s.repo.GetAnalysisRequest(ctx, analysisID)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return err
	}
	prepared, err := s.prepare(ctx, req)
	if err != nil {
		log.Warn().Err(err).Msg("分析请求无法处理，标记失败")
		if ferr := s.repo.FailAnalysis(ctx, analysisID, err); ferr != nil {
			return ferr
		}
		return nil
	}

	result := s.compute(ctx, analysisID, existing.Fingerprint, prepared)
	if err := s.persist(ctx, result); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return err
	}
	s.store(ctx, result)
	log.Info().Float64("coverage", result.GapAnalysis.CoveragePercentage).Msg("异步分析完成")
	return nil
}

// Get 按ID读取分析，先查缓存再查数据库
func (s *AnalysisService) Get(ctx context.Context, analysisID string) (*types.AnalysisResult, error) {
	if s.cache != nil {
		res, err := s.cache.GetAnalysis(ctx, analysisID)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Ctx(ctx).Warn().Err(err).Str("analysis_id", analysisID).Msg("读取分析缓存失败")
		}
	}
	if s.repo == nil {
		return nil, storage.ErrNotFound
	}
	res, err := s.repo.GetAnalysis(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	if res.Status == types.AnalysisStatusCompleted {
		s.store(ctx, res)
	}
	return res, nil
}

// prepare 规范化请求，必要时从岗位描述补齐关键词
func (s *AnalysisService) prepare(ctx context.Context, req *types.AnalysisRequest) (*types.AnalysisRequest, error) {
	if req == nil {
		return nil, errors.New("分析请求为空")
	}
	out := &types.AnalysisRequest{
		AnalysisID:     req.AnalysisID,
		JobKeywords:    req.JobKeywords.Normalize(),
		Resume:         req.Resume.Normalize(),
		JobDescription: strings.TrimSpace(req.JobDescription),
	}
	if out.JobKeywords.Total() == 0 && out.JobDescription != "" && s.keywords != nil {
		extracted, err := s.keywords.Extract(ctx, out.JobDescription)
		if err != nil {
			return nil, fmt.Errorf("从岗位描述抽取关键词失败: %w", err)
		}
		out.JobKeywords = extracted.Keywords
	}
	return out, nil
}

func (s *AnalysisService) compute(ctx context.Context, analysisID, fingerprint string, req *types.AnalysisRequest) *types.AnalysisResult {
	gap := s.analyzer.Analyze(req.JobKeywords, req.Resume)
	result := &types.AnalysisResult{
		AnalysisID:  analysisID,
		Status:      types.AnalysisStatusCompleted,
		Fingerprint: fingerprint,
		GapAnalysis: gap,
		Suggestions: keyword.Suggest(gap, req.Resume),
		CreatedAt:   s.now().UTC(),
	}

	// 检索上下文是附加信息，失败不影响主结果
	if req.JobDescription != "" && s.retrieval != nil && s.retrieval.Ready() {
		jobs, examples, err := s.retrieval.ExampleResumes(ctx, req.JobDescription, 0, 0)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("analysis_id", analysisID).Msg("检索相似岗位失败")
		} else {
			result.SimilarJobs = jobs
			result.ExampleResumes = examples
		}
	}
	return result
}

func (s *AnalysisService) persist(ctx context.Context, result *types.AnalysisResult) error {
	if s.repo == nil {
		return nil
	}
	event := types.AnalysisCompletedEvent{
		AnalysisID:         result.AnalysisID,
		Status:             result.Status,
		CoveragePercentage: result.GapAnalysis.CoveragePercentage,
		PriorityKeywords:   result.GapAnalysis.PriorityKeywords,
		CompletedAt:        result.CreatedAt,
	}
	msg, err := models.NewOutboxMessage(result.AnalysisID, storage.EventAnalysisCompleted, s.routing.Exchange, s.routing.CompletedKey, event)
	if err != nil {
		return fmt.Errorf("构造完成事件失败: %w", err)
	}
	if err := s.repo.CompleteAnalysis(ctx, result, msg); err != nil {
		return fmt.Errorf("保存分析结果失败: %w", err)
	}
	return nil
}

func (s *AnalysisService) lookupFingerprint(ctx context.Context, fingerprint string) *types.AnalysisResult {
	if s.cache == nil {
		return nil
	}
	res, err := s.cache.GetAnalysisByFingerprint(ctx, fingerprint)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Ctx(ctx).Warn().Err(err).Msg("读取指纹缓存失败")
		}
		return nil
	}
	return res
}

func (s *AnalysisService) store(ctx context.Context, result *types.AnalysisResult) {
	if s.cache == nil {
		return
	}
	if err := s.cache.CacheAnalysis(ctx, result); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("analysis_id", result.AnalysisID).Msg("写入分析缓存失败")
	}
}
