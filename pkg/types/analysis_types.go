package types

import "time"

// AnalysisStatus 异步分析任务状态
type AnalysisStatus string

const (
	AnalysisStatusPending   AnalysisStatus = "PENDING"
	AnalysisStatusCompleted AnalysisStatus = "COMPLETED"
	AnalysisStatusFailed    AnalysisStatus = "FAILED"
)

// AnalysisRequest 一次差距分析请求
type AnalysisRequest struct {
	AnalysisID     string      `json:"analysis_id,omitempty"`
	JobKeywords    JobKeywords `json:"job_keywords"`
	Resume         ResumeData  `json:"resume"`
	JobDescription string      `json:"job_description,omitempty"` // 可选，用于检索相似岗位与示例简历
}

// AnalysisResult 差距分析结果及附带的章节建议、检索上下文
type AnalysisResult struct {
	AnalysisID     string             `json:"analysis_id"`
	Status         AnalysisStatus     `json:"status"`
	Fingerprint    string             `json:"fingerprint,omitempty"`
	GapAnalysis    GapAnalysis        `json:"gap_analysis"`
	Suggestions    SectionSuggestions `json:"suggestions"`
	SimilarJobs    []ScoredDocument   `json:"similar_jobs,omitempty"`
	ExampleResumes []ScoredDocument   `json:"example_resumes,omitempty"`
	Error          string             `json:"error,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// AnalysisCompletedEvent 分析完成后通过消息队列广播的事件
type AnalysisCompletedEvent struct {
	AnalysisID         string         `json:"analysis_id"`
	Status             AnalysisStatus `json:"status"`
	CoveragePercentage float64        `json:"coverage_percentage"`
	PriorityKeywords   []string       `json:"priority_keywords"`
	CompletedAt        time.Time      `json:"completed_at"`
}
