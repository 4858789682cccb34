// Package parser 把上传的简历文件转成纯文本
package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"

	"resume-gap-go/internal/logger"
)

const defaultParseTimeout = 30 * time.Second

var (
	// ErrEmptyDocument 文件中没有可提取的文本
	ErrEmptyDocument = errors.New("parser: document has no text")
	// ErrUnsupportedType 无法处理的文件类型
	ErrUnsupportedType = errors.New("parser: unsupported file type")
)

// TextExtractor 简历文本提取
type TextExtractor interface {
	ExtractFromReader(ctx context.Context, reader io.Reader, uri string) (string, error)
}

// EinoPDFTextExtractor 使用 Eino PDF Parser 提取文本
type EinoPDFTextExtractor struct {
	parser  *pdf.PDFParser
	timeout time.Duration
}

var _ TextExtractor = (*EinoPDFTextExtractor)(nil)

// EinoPDFOption 配置项
type EinoPDFOption func(*EinoPDFTextExtractor)

// WithParseTimeout 设置单个文档的解析超时
func WithParseTimeout(d time.Duration) EinoPDFOption {
	return func(e *EinoPDFTextExtractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEinoPDFTextExtractor 不按页分割，整份 PDF 作为一个文档
func NewEinoPDFTextExtractor(ctx context.Context, options ...EinoPDFOption) (*EinoPDFTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	if err != nil {
		return nil, fmt.Errorf("failed to create Eino PDF parser: %w", err)
	}
	e := &EinoPDFTextExtractor{parser: p, timeout: defaultParseTimeout}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// ExtractFromReader 解析 PDF 内容
func (e *EinoPDFTextExtractor) ExtractFromReader(ctx context.Context, reader io.Reader, uri string) (string, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	docs, err := e.parser.Parse(ctx, reader, einoParser.WithURI(uri))
	if err != nil {
		return "", fmt.Errorf("eino PDF parser failed for URI %s: %w", uri, err)
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if text := strings.TrimSpace(doc.Content); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyDocument, uri)
	}

	text := strings.Join(parts, "\n\n")
	logger.Ctx(ctx).Debug().
		Str("uri", uri).
		Int("documents", len(docs)).
		Int("text_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("PDF提取完成")
	return text, nil
}

// PlainTextExtractor 直接读取 txt/md 文本
type PlainTextExtractor struct{}

// ExtractFromReader 读取全部内容
func (PlainTextExtractor) ExtractFromReader(_ context.Context, reader io.Reader, uri string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("读取 %s 失败: %w", uri, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyDocument, uri)
	}
	return text, nil
}

// Router 按文件扩展名选择提取器
type Router struct {
	pdf   TextExtractor
	plain TextExtractor
}

// NewRouter pdfExtractor 为空时只支持纯文本
func NewRouter(pdfExtractor TextExtractor) *Router {
	return &Router{pdf: pdfExtractor, plain: PlainTextExtractor{}}
}

// ExtractFromReader 按 uri 扩展名分发
func (r *Router) ExtractFromReader(ctx context.Context, reader io.Reader, uri string) (string, error) {
	switch strings.ToLower(filepath.Ext(uri)) {
	case ".pdf":
		if r.pdf == nil {
			return "", fmt.Errorf("%w: 未配置PDF解析器 %s", ErrUnsupportedType, uri)
		}
		return r.pdf.ExtractFromReader(ctx, reader, uri)
	case ".txt", ".md", "":
		return r.plain.ExtractFromReader(ctx, reader, uri)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(uri))
	}
}

// ExtractFromBytes 从内存数据提取
func (r *Router) ExtractFromBytes(ctx context.Context, data []byte, uri string) (string, error) {
	return r.ExtractFromReader(ctx, bytes.NewReader(data), uri)
}

// ExtractFromFile 从本地文件提取
func (r *Router) ExtractFromFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("打开文件 %s 失败: %w", path, err)
	}
	defer f.Close()
	return r.ExtractFromReader(ctx, f, path)
}
