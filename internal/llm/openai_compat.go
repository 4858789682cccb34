package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"resume-gap-go/internal/logger"
	"resume-gap-go/internal/tracing"
)

const (
	// DashScope 的 OpenAI 兼容接口
	defaultCompatAPIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	defaultCompatModel  = "qwen-turbo"
	defaultHTTPTimeout  = 60 * time.Second
)

// OpenAICompatModel 调用 OpenAI 兼容 chat/completions 接口的 eino 聊天模型
type OpenAICompatModel struct {
	apiKey     string
	modelName  string
	apiURL     string
	httpClient *http.Client
}

var _ model.BaseChatModel = (*OpenAICompatModel)(nil)

// CompatOption 构造选项
type CompatOption func(*OpenAICompatModel)

// WithHTTPTimeout 设置单次请求超时
func WithHTTPTimeout(d time.Duration) CompatOption {
	return func(m *OpenAICompatModel) {
		if d > 0 {
			m.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient 替换 HTTP 客户端
func WithHTTPClient(c *http.Client) CompatOption {
	return func(m *OpenAICompatModel) {
		if c != nil {
			m.httpClient = c
		}
	}
}

// NewOpenAICompatModel 创建模型，modelName/apiURL 为空时使用默认值
func NewOpenAICompatModel(apiKey, modelName, apiURL string, opts ...CompatOption) (*OpenAICompatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultCompatModel
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = defaultCompatAPIURL
	}

	m := &OpenAICompatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(m)
	}
	logger.Info().Str("api_url", apiURL).Str("model", modelName).Msg("使用OpenAI兼容LLM客户端")
	return m, nil
}

type compatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type compatRequest struct {
	Model       string          `json:"model"`
	Messages    []compatMessage `json:"messages"`
	Temperature *float32        `json:"temperature,omitempty"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	TopP        *float32        `json:"top_p,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
}

type compatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string  `json:"role"`
		Content *string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type compatResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []compatChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate 实现 model.BaseChatModel
func (m *OpenAICompatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	modelName := m.modelName
	common := model.GetCommonOptions(&model.Options{Model: &modelName}, opts...)

	req := compatRequest{
		Model:       *common.Model,
		Messages:    make([]compatMessage, 0, len(messages)),
		Temperature: common.Temperature,
		MaxTokens:   common.MaxTokens,
		TopP:        common.TopP,
		Stop:        common.Stop,
	}
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		req.Messages = append(req.Messages, compatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		// 状态文本里带 429 等信息，限流器据此判断是否重试
		return nil, fmt.Errorf("API 请求失败，状态 %s: %s", httpResp.Status, tracing.TruncateString(string(respBody), 512))
	}

	var parsed compatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := parsed.Choices[0]
	content := ""
	if choice.Message.Content != nil {
		content = *choice.Message.Content
	}
	role := schema.RoleType(choice.Message.Role)
	if role == "" {
		role = schema.Assistant
	}

	logger.Ctx(ctx).Debug().
		Str("model", parsed.Model).
		Int("prompt_tokens", parsed.Usage.PromptTokens).
		Int("completion_tokens", parsed.Usage.CompletionTokens).
		Str("finish_reason", choice.FinishReason).
		Msg("LLM响应")

	return &schema.Message{Role: role, Content: content}, nil
}

// Stream 接口不支持流式，整条结果作为单帧返回
func (m *OpenAICompatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}
