package llm

import (
	"context"
	"fmt"
	"strings"

	"resume-gap-go/internal/logger"
	"resume-gap-go/pkg/types"
)

const defaultSystemPrompt = "You are an expert job description and resume analyzer specializing in tech industry roles. Always answer with a single JSON object."

const keywordPromptTemplate = `Analyze the following job description and extract relevant keywords.
Focus on tech industry roles (AI, Data Science, ML, Software Engineering, etc.).

Job Description:
%s

Extract and categorize:
1. Technical Skills (programming languages, frameworks, libraries)
2. Soft Skills (communication, leadership, problem-solving)
3. Tools & Technologies (specific tools, platforms, software)
Also count how often each important keyword is mentioned.

Return JSON with exactly this structure:
{"technical_skills": ["..."], "soft_skills": ["..."], "tools_technologies": ["..."], "keywords_frequency": {"keyword": 1}}`

const resumePromptTemplate = `Extract structured data from the following resume text.

Resume:
%s

Return JSON with exactly this structure:
{"technical_skills": ["..."], "soft_skills": ["..."], "extracted_keywords": ["..."],
 "work_experience": [{"title": "...", "company": "...", "achievements": ["..."]}],
 "projects": [{"name": "...", "technologies": ["..."]}]}
Copy achievement sentences verbatim, keep numbers and metrics.`

// KeywordExtraction 岗位关键词抽取结果
type KeywordExtraction struct {
	Keywords types.JobKeywords `json:"job_keywords"`
	Partial  bool              `json:"partial"`
}

// ResumeExtraction 简历结构化抽取结果
type ResumeExtraction struct {
	Resume  types.ResumeData `json:"resume"`
	Partial bool             `json:"partial"`
}

// KeywordExtractor 用 LLM 从岗位描述中抽取分类关键词
type KeywordExtractor struct {
	completer Completer
}

// NewKeywordExtractor 创建抽取器
func NewKeywordExtractor(c Completer) *KeywordExtractor {
	return &KeywordExtractor{completer: c}
}

// Extract 抽取关键词。回复无法完整解析时返回已恢复的字段并置 Partial。
func (e *KeywordExtractor) Extract(ctx context.Context, jobDescription string) (*KeywordExtraction, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return nil, ErrEmptyInput
	}
	reply, err := e.completer.Complete(ctx, fmt.Sprintf(keywordPromptTemplate, jobDescription))
	if err != nil {
		return nil, err
	}

	var kw types.JobKeywords
	partial, err := ParseJSON(reply, &kw)
	if err != nil {
		return nil, fmt.Errorf("解析关键词响应失败: %w", err)
	}
	if partial {
		logger.Ctx(ctx).Warn().Int("reply_length", len(reply)).Msg("关键词响应不完整，仅使用可恢复字段")
	}
	return &KeywordExtraction{Keywords: kw.Normalize(), Partial: partial}, nil
}

// ResumeExtractor 用 LLM 把简历文本转成 ResumeData
type ResumeExtractor struct {
	completer Completer
}

// NewResumeExtractor 创建抽取器
func NewResumeExtractor(c Completer) *ResumeExtractor {
	return &ResumeExtractor{completer: c}
}

// Extract 抽取简历结构
func (e *ResumeExtractor) Extract(ctx context.Context, resumeText string) (*ResumeExtraction, error) {
	if strings.TrimSpace(resumeText) == "" {
		return nil, ErrEmptyInput
	}
	reply, err := e.completer.Complete(ctx, fmt.Sprintf(resumePromptTemplate, resumeText))
	if err != nil {
		return nil, err
	}

	var resume types.ResumeData
	partial, err := ParseJSON(reply, &resume)
	if err != nil {
		return nil, fmt.Errorf("解析简历响应失败: %w", err)
	}
	if partial {
		logger.Ctx(ctx).Warn().Int("reply_length", len(reply)).Msg("简历响应不完整，仅使用可恢复字段")
	}
	return &ResumeExtraction{Resume: resume.Normalize(), Partial: partial}, nil
}
