package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-gap-go/internal/config"
)

func TestKeywordExtractor(t *testing.T) {
	mock := NewMockCompleter(`{"technical_skills": ["Python", "SQL"], "soft_skills": ["Communication"], "tools_technologies": ["AWS"], "keywords_frequency": {"Python": 4}}`)
	res, err := NewKeywordExtractor(mock).Extract(context.Background(), "We need Python and SQL on AWS.")
	require.NoError(t, err)
	assert.False(t, res.Partial)
	assert.Equal(t, []string{"Python", "SQL"}, res.Keywords.TechnicalSkills)
	assert.Equal(t, 4, res.Keywords.KeywordsFrequency["Python"])
	assert.True(t, mock.LastPromptContains("We need Python and SQL on AWS."))
}

func TestKeywordExtractorPartialAndDefaults(t *testing.T) {
	mock := NewMockCompleter(`{"technical_skills": ["Go"], "soft_skills": ["Tea`)
	res, err := NewKeywordExtractor(mock).Extract(context.Background(), "Go developer")
	require.NoError(t, err)
	assert.True(t, res.Partial)
	assert.Equal(t, []string{"Go"}, res.Keywords.TechnicalSkills)
	assert.NotNil(t, res.Keywords.ToolsTechnologies, "缺失字段填充为空")
	assert.NotNil(t, res.Keywords.KeywordsFrequency)
}

func TestKeywordExtractorErrors(t *testing.T) {
	_, err := NewKeywordExtractor(NewMockCompleter()).Extract(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyInput)

	boom := errors.New("upstream down")
	_, err = NewKeywordExtractor(NewMockCompleter().WithError(boom)).Extract(context.Background(), "jd")
	assert.ErrorIs(t, err, boom)

	_, err = NewKeywordExtractor(NewMockCompleter("no json here")).Extract(context.Background(), "jd")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestResumeExtractor(t *testing.T) {
	mock := NewMockCompleter(`{"technical_skills": ["Go"], "work_experience": [{"title": "SWE", "company": "Acme", "achievements": ["Cut latency by 40%"]}]}`)
	res, err := NewResumeExtractor(mock).Extract(context.Background(), "resume text")
	require.NoError(t, err)
	assert.False(t, res.Partial)
	require.Len(t, res.Resume.WorkExperience, 1)
	assert.Equal(t, "Acme", res.Resume.WorkExperience[0].Company)
	assert.True(t, res.Resume.HasQuantifiedAchievements())
	assert.NotNil(t, res.Resume.Projects)
}

func TestMockCompleterSequence(t *testing.T) {
	m := NewMockCompleter("a", "b")
	ctx := context.Background()
	first, _ := m.Complete(ctx, "p1")
	second, _ := m.Complete(ctx, "p2")
	third, _ := m.Complete(ctx, "p3")
	assert.Equal(t, []string{"a", "b", "b"}, []string{first, second, third})
	assert.Equal(t, []string{"p1", "p2", "p3"}, m.Prompts())
}

func TestRegistry(t *testing.T) {
	c, err := New(config.LLMConfig{Provider: "MOCK"})
	require.NoError(t, err)
	assert.IsType(t, &MockCompleter{}, c)

	_, err = New(config.LLMConfig{Provider: "nope"})
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = New(config.LLMConfig{Provider: "qwen"})
	assert.Error(t, err, "缺少 API 密钥")

	c, err = New(config.LLMConfig{Provider: "qwen", APIKey: "k", QPM: 60, MaxTokens: 100})
	require.NoError(t, err)
	assert.IsType(t, &ChatModelCompleter{}, c)

	assert.Contains(t, Providers(), "openai")
}

func TestOpenAICompatModelGenerate(t *testing.T) {
	var got compatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"1","model":"qwen-turbo","choices":[{"index":0,"message":{"role":"assistant","content":"{\"technical_skills\":[\"Go\"]}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	m, err := NewOpenAICompatModel("secret", "", srv.URL)
	require.NoError(t, err)

	c := NewChatModelCompleter(m, "sys", model.WithTemperature(0.3), model.WithMaxTokens(50))
	reply, err := c.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Contains(t, reply, "technical_skills")

	assert.Equal(t, defaultCompatModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[1].Content)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.3, *got.Temperature, 1e-6)
	require.NotNil(t, got.MaxTokens)
	assert.Equal(t, 50, *got.MaxTokens)
}

func TestOpenAICompatModelErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/limited":
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit"}`))
		default:
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}
	}))
	defer srv.Close()

	m, err := NewOpenAICompatModel("k", "m", srv.URL+"/limited")
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	m, err = NewOpenAICompatModel("k", "m", srv.URL+"/empty")
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("x")})
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = NewOpenAICompatModel(" ", "", "")
	assert.Error(t, err)
}

type emptyModel struct{}

func (emptyModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage("   ", nil), nil
}

func (emptyModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestChatModelCompleterEmpty(t *testing.T) {
	_, err := NewChatModelCompleter(emptyModel{}, "").Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
