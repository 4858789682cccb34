package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resume-gap-go/internal/config"
	"resume-gap-go/internal/logger"
	"resume-gap-go/internal/storage"
	"resume-gap-go/internal/tracing"
)

var tracer = otel.Tracer("resume-gap/worker")

// Consumer 消息消费端
type Consumer interface {
	StartConsumer(ctx context.Context, queueName string, prefetchCount int, handler storage.DeliveryHandler) (<-chan struct{}, error)
}

// Processor 执行一条异步分析
type Processor interface {
	Process(ctx context.Context, analysisID string) error
}

// AnalysisWorker 消费分析请求队列
type AnalysisWorker struct {
	consumer      Consumer
	processor     Processor
	queue         string
	prefetch      int
	workers       int
	retryInterval time.Duration
}

// NewAnalysisWorker 按 RabbitMQ 配置创建消费者
func NewAnalysisWorker(consumer Consumer, processor Processor, cfg config.RabbitMQConfig) *AnalysisWorker {
	w := &AnalysisWorker{
		consumer:      consumer,
		processor:     processor,
		queue:         cfg.AnalysisRequestQueue,
		prefetch:      cfg.PrefetchCount,
		workers:       cfg.ConsumerWorkers,
		retryInterval: config.GetDuration(cfg.RetryInterval, 5*time.Second),
	}
	if w.prefetch <= 0 {
		w.prefetch = 1
	}
	if w.workers <= 0 {
		w.workers = 1
	}
	return w
}

// Start 启动 workers 个消费协程，返回的通道在全部停止后关闭
func (w *AnalysisWorker) Start(ctx context.Context) (<-chan struct{}, error) {
	dones := make([]<-chan struct{}, 0, w.workers)
	for i := 0; i < w.workers; i++ {
		done, err := w.consumer.StartConsumer(ctx, w.queue, w.prefetch, w.HandleDelivery)
		if err != nil {
			return nil, fmt.Errorf("启动第 %d 个分析消费者失败: %w", i+1, err)
		}
		dones = append(dones, done)
	}
	logger.Info().Str("queue", w.queue).Int("workers", w.workers).Msg("分析消费者已启动")

	all := make(chan struct{})
	var wg sync.WaitGroup
	for _, d := range dones {
		wg.Add(1)
		go func(d <-chan struct{}) {
			defer wg.Done()
			<-d
		}(d)
	}
	go func() {
		wg.Wait()
		close(all)
	}()
	return all, nil
}

// HandleDelivery 处理单条消息。无法解析的消息直接确认丢弃；处理失败时等待重试间隔后重新入队。
func (w *AnalysisWorker) HandleDelivery(ctx context.Context, body []byte) bool {
	ctx, span := tracer.Start(ctx, "AnalysisWorker.HandleDelivery")
	defer span.End()

	var msg storage.AnalysisRequestedMessage
	if err := json.Unmarshal(body, &msg); err != nil || msg.AnalysisID == "" {
		logger.Ctx(ctx).Error().Err(err).Int("body_length", len(body)).Msg("无法解析分析请求消息，丢弃")
		tracing.RecordError(span, fmt.Errorf("invalid analysis message: %v", err), tracing.ErrorTypeValidation)
		return true
	}
	span.SetAttributes(attribute.String("analysis.id", msg.AnalysisID))

	if err := w.processor.Process(ctx, msg.AnalysisID); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		logger.Ctx(ctx).Warn().Err(err).Str("analysis_id", msg.AnalysisID).Dur("retry_in", w.retryInterval).Msg("处理分析失败，稍后重试")
		select {
		case <-ctx.Done():
		case <-time.After(w.retryInterval):
		}
		return false
	}
	return true
}
