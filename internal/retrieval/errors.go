package retrieval

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCorpus 空语料无法建立向量空间
	ErrEmptyCorpus = errors.New("reference corpus is empty")
	// ErrInvalidK 查询数量必须 >= 1
	ErrInvalidK = errors.New("k must be at least 1")
)

// ConfigurationError 建索引阶段的配置错误，属于致命错误，不会自动恢复
type ConfigurationError struct {
	Op      string
	BaseErr error
	Detail  string
}

func (e *ConfigurationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("retrieval %s: %v: %s", e.Op, e.BaseErr, e.Detail)
	}
	return fmt.Sprintf("retrieval %s: %v", e.Op, e.BaseErr)
}

func (e *ConfigurationError) Unwrap() error {
	return e.BaseErr
}

// Is 使 errors.Is 可以直接比较底层哨兵错误
func (e *ConfigurationError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

func newEmptyCorpusError(op string) error {
	return &ConfigurationError{Op: op, BaseErr: ErrEmptyCorpus, Detail: "at least one reference document is required"}
}
