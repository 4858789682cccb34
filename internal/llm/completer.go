package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resume-gap-go/internal/config"
	"resume-gap-go/internal/logger"
	"resume-gap-go/internal/tracing"
	"resume-gap-go/pkg/ratelimit"
)

var llmTracer = otel.Tracer("resume-gap-go/llm")

// Completer 文本补全能力，抽取器只依赖这个接口
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ChatModelCompleter 把 eino 聊天模型适配成 Completer
type ChatModelCompleter struct {
	model        model.BaseChatModel
	systemPrompt string
	opts         []model.Option
}

// NewChatModelCompleter 创建适配器，opts 在每次调用时透传给模型
func NewChatModelCompleter(m model.BaseChatModel, systemPrompt string, opts ...model.Option) *ChatModelCompleter {
	return &ChatModelCompleter{model: m, systemPrompt: systemPrompt, opts: opts}
}

// Complete 发送 system + user 两条消息并返回回复文本
func (c *ChatModelCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := llmTracer.Start(ctx, "llm.Complete")
	defer span.End()
	span.SetAttributes(attribute.Int("llm.prompt_length", len(prompt)))

	messages := make([]*schema.Message, 0, 2)
	if c.systemPrompt != "" {
		messages = append(messages, schema.SystemMessage(c.systemPrompt))
	}
	messages = append(messages, schema.UserMessage(prompt))

	start := time.Now()
	resp, err := c.model.Generate(ctx, messages, c.opts...)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return "", fmt.Errorf("LLM生成失败: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		tracing.RecordError(span, ErrEmptyResponse, tracing.ErrorTypeLLM)
		return "", ErrEmptyResponse
	}
	span.SetAttributes(attribute.Int("llm.response_length", len(resp.Content)))
	logger.Ctx(ctx).Debug().Dur("latency", time.Since(start)).Int("response_length", len(resp.Content)).Msg("LLM调用完成")
	return resp.Content, nil
}

// Factory 按配置构造 Completer
type Factory func(cfg config.LLMConfig) (Completer, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register 注册实现，同名覆盖
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = f
}

// Providers 已注册的实现名称
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New 按 cfg.Provider 从注册表创建 Completer
func New(cfg config.LLMConfig) (Completer, error) {
	registryMu.RLock()
	f, ok := registry[strings.ToLower(cfg.Provider)]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (可用: %s)", ErrUnknownProvider, cfg.Provider, strings.Join(Providers(), ", "))
	}
	return f(cfg)
}

func newOpenAICompatCompleter(cfg config.LLMConfig) (Completer, error) {
	chatModel, err := NewOpenAICompatModel(cfg.APIKey, cfg.Model, cfg.BaseURL,
		WithHTTPTimeout(config.GetDuration(cfg.Timeout, defaultHTTPTimeout)))
	if err != nil {
		return nil, err
	}

	var m model.BaseChatModel = chatModel
	if cfg.QPM > 0 {
		m = ratelimit.NewRateLimitedChatModel(chatModel, cfg.QPM).
			WithRetryPolicy(time.Duration(cfg.RetryWaitSeconds)*time.Second, cfg.MaxRetries)
	}

	opts := []model.Option{model.WithTemperature(float32(cfg.Temperature))}
	if cfg.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(cfg.MaxTokens))
	}
	return NewChatModelCompleter(m, defaultSystemPrompt, opts...), nil
}

func init() {
	Register("qwen", newOpenAICompatCompleter)
	Register("openai", newOpenAICompatCompleter)
	Register("mock", func(config.LLMConfig) (Completer, error) {
		return NewMockCompleter(), nil
	})
}
