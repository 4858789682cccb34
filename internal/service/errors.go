package service

import "errors"

var (
	// ErrIndexNotReady 检索库尚未加载
	ErrIndexNotReady = errors.New("service: reference index not ready")
	// ErrAsyncUnavailable 未配置数据库，无法受理异步分析
	ErrAsyncUnavailable = errors.New("service: async analysis requires a repository")
	// ErrReloadInProgress 其他实例正在重载语料
	ErrReloadInProgress = errors.New("service: corpus reload already in progress")
)
