package parser

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct{ calls int }

func (s *stubExtractor) ExtractFromReader(_ context.Context, r io.Reader, _ string) (string, error) {
	s.calls++
	data, _ := io.ReadAll(r)
	return "pdf:" + string(data), nil
}

func TestRouterDispatch(t *testing.T) {
	stub := &stubExtractor{}
	r := NewRouter(stub)
	ctx := context.Background()

	text, err := r.ExtractFromBytes(ctx, []byte("binary"), "cv.PDF")
	require.NoError(t, err)
	assert.Equal(t, "pdf:binary", text)
	assert.Equal(t, 1, stub.calls)

	text, err = r.ExtractFromBytes(ctx, []byte("  Go developer \n"), "cv.txt")
	require.NoError(t, err)
	assert.Equal(t, "Go developer", text)

	_, err = r.ExtractFromBytes(ctx, []byte("x"), "cv.docx")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = NewRouter(nil).ExtractFromBytes(ctx, []byte("x"), "cv.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestPlainTextEmpty(t *testing.T) {
	_, err := PlainTextExtractor{}.ExtractFromReader(context.Background(), strings.NewReader(" \n "), "empty.txt")
	assert.True(t, errors.Is(err, ErrEmptyDocument))
}

func TestExtractFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.md")
	require.NoError(t, os.WriteFile(path, []byte("# Resume\nBuilt APIs in Go"), 0644))

	text, err := NewRouter(nil).ExtractFromFile(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, "Built APIs in Go")

	_, err = NewRouter(nil).ExtractFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestEinoPDFRejectsInvalidInput(t *testing.T) {
	e, err := NewEinoPDFTextExtractor(context.Background())
	require.NoError(t, err)
	_, err = e.ExtractFromReader(context.Background(), strings.NewReader("not a pdf"), "bad.pdf")
	assert.Error(t, err)
}

func TestEinoPDFSample(t *testing.T) {
	path := os.Getenv("TEST_RESUME_PDF")
	if path == "" {
		t.Skip("TEST_RESUME_PDF 未设置，跳过真实PDF解析测试")
	}
	e, err := NewEinoPDFTextExtractor(context.Background())
	require.NoError(t, err)
	text, err := NewRouter(e).ExtractFromFile(context.Background(), path)
	require.NoError(t, err)
	assert.NotEmpty(t, text)
}
