package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-gap-go/internal/config"
	"resume-gap-go/internal/storage"
)

type recordingProcessor struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (p *recordingProcessor) Process(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
	return p.err
}

// chanConsumer 把每个消费者的 handler 记录下来，ctx 取消时结束
type chanConsumer struct {
	mu       sync.Mutex
	handlers []storage.DeliveryHandler
	queues   []string
	failAt   int
}

func (c *chanConsumer) StartConsumer(ctx context.Context, queue string, _ int, h storage.DeliveryHandler) (<-chan struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAt > 0 && len(c.handlers)+1 == c.failAt {
		return nil, errors.New("channel closed")
	}
	c.handlers = append(c.handlers, h)
	c.queues = append(c.queues, queue)
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(done)
	}()
	return done, nil
}

func testRabbitConfig() config.RabbitMQConfig {
	cfg := config.DefaultConfig().RabbitMQ
	cfg.RetryInterval = "1ms"
	cfg.ConsumerWorkers = 3
	return cfg
}

func TestHandleDelivery(t *testing.T) {
	proc := &recordingProcessor{}
	w := NewAnalysisWorker(&chanConsumer{}, proc, testRabbitConfig())

	assert.True(t, w.HandleDelivery(context.Background(), []byte(`{"analysis_id":"a-1"}`)))
	assert.Equal(t, []string{"a-1"}, proc.ids)

	assert.True(t, w.HandleDelivery(context.Background(), []byte(`not json`)), "无法解析的消息应被确认丢弃")
	assert.True(t, w.HandleDelivery(context.Background(), []byte(`{}`)))
	assert.Len(t, proc.ids, 1)

	proc.err = errors.New("db down")
	assert.False(t, w.HandleDelivery(context.Background(), []byte(`{"analysis_id":"a-2"}`)), "处理失败应重新入队")
}

func TestStartAndStop(t *testing.T) {
	consumer := &chanConsumer{}
	w := NewAnalysisWorker(consumer, &recordingProcessor{}, testRabbitConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done, err := w.Start(ctx)
	require.NoError(t, err)
	assert.Len(t, consumer.handlers, 3)
	assert.Equal(t, "q.gap_analysis_requests", consumer.queues[0])

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("消费者未在取消后停止")
	}
}

func TestStartFailure(t *testing.T) {
	w := NewAnalysisWorker(&chanConsumer{failAt: 2}, &recordingProcessor{}, testRabbitConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := w.Start(ctx)
	assert.Error(t, err)
}

func TestNewAnalysisWorkerDefaults(t *testing.T) {
	cfg := config.RabbitMQConfig{AnalysisRequestQueue: "q"}
	w := NewAnalysisWorker(&chanConsumer{}, &recordingProcessor{}, cfg)
	assert.Equal(t, 1, w.prefetch)
	assert.Equal(t, 1, w.workers)
	assert.Equal(t, 5*time.Second, w.retryInterval)
}
