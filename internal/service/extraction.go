package service

import (
	"context"
	"errors"
	"fmt"

	"resume-gap-go/internal/llm"
	"resume-gap-go/internal/parser"
)

// ErrExtractionUnavailable 未配置大模型
var ErrExtractionUnavailable = errors.New("service: llm extraction not configured")

// ExtractionService 岗位关键词与简历结构的 LLM 抽取
type ExtractionService struct {
	keywords *llm.KeywordExtractor
	resumes  *llm.ResumeExtractor
	files    *parser.Router
}

// NewExtractionService completer 为 nil 时所有抽取返回 ErrExtractionUnavailable
func NewExtractionService(completer llm.Completer, files *parser.Router) *ExtractionService {
	s := &ExtractionService{files: files}
	if completer != nil {
		s.keywords = llm.NewKeywordExtractor(completer)
		s.resumes = llm.NewResumeExtractor(completer)
	}
	if s.files == nil {
		s.files = parser.NewRouter(nil)
	}
	return s
}

// KeywordSource 供分析服务补齐关键词，未配置时返回 nil
func (s *ExtractionService) KeywordSource() KeywordSource {
	if s.keywords == nil {
		return nil
	}
	return s.keywords
}

// ExtractKeywords 从岗位描述抽取分类关键词
func (s *ExtractionService) ExtractKeywords(ctx context.Context, jobDescription string) (*llm.KeywordExtraction, error) {
	if s.keywords == nil {
		return nil, ErrExtractionUnavailable
	}
	return s.keywords.Extract(ctx, jobDescription)
}

// ExtractResumeText 从简历纯文本抽取结构
func (s *ExtractionService) ExtractResumeText(ctx context.Context, text string) (*llm.ResumeExtraction, error) {
	if s.resumes == nil {
		return nil, ErrExtractionUnavailable
	}
	return s.resumes.Extract(ctx, text)
}

// ExtractResumeFile 先按文件类型取出文本，再抽取结构
func (s *ExtractionService) ExtractResumeFile(ctx context.Context, data []byte, filename string) (*llm.ResumeExtraction, error) {
	if s.resumes == nil {
		return nil, ErrExtractionUnavailable
	}
	text, err := s.files.ExtractFromBytes(ctx, data, filename)
	if err != nil {
		return nil, fmt.Errorf("提取简历文本失败: %w", err)
	}
	return s.resumes.Extract(ctx, text)
}
