package storage

import "time"

// 事件类型
const (
	EventAnalysisRequested = "analysis.requested"
	EventAnalysisCompleted = "analysis.completed"
)

// AnalysisRequestedMessage 异步分析请求消息，请求原文存于数据库
type AnalysisRequestedMessage struct {
	AnalysisID  string    `json:"analysis_id"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}
