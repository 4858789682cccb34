package llm

import "errors"

var (
	// ErrEmptyResponse 模型返回空内容
	ErrEmptyResponse = errors.New("llm: empty response")
	// ErrNoJSON 响应中找不到可用的 JSON 对象
	ErrNoJSON = errors.New("llm: no JSON object in response")
	// ErrUnknownProvider 注册表中没有该实现
	ErrUnknownProvider = errors.New("llm: unknown provider")
	// ErrEmptyInput 待抽取文本为空
	ErrEmptyInput = errors.New("llm: empty input text")
)
