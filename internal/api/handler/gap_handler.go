package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"resume-gap-go/internal/service"
	"resume-gap-go/pkg/types"
)

// GapHandler 差距分析与相似度检索接口
type GapHandler struct {
	analysis  *service.AnalysisService
	retrieval *service.RetrievalService
}

// NewGapHandler 创建处理器
func NewGapHandler(analysis *service.AnalysisService, retrieval *service.RetrievalService) *GapHandler {
	return &GapHandler{analysis: analysis, retrieval: retrieval}
}

// SubmitResponse 异步分析受理响应
type SubmitResponse struct {
	AnalysisID string               `json:"analysis_id"`
	Status     types.AnalysisStatus `json:"status"`
}

// SimilarJobsRequest 相似岗位查询
type SimilarJobsRequest struct {
	Text string `json:"text"`
	K    *int   `json:"k,omitempty"`
}

// SimilarResumesRequest 示例简历查询
type SimilarResumesRequest struct {
	Text string `json:"text"`
	JobK *int   `json:"job_k,omitempty"`
	K    *int   `json:"k,omitempty"`
}

// SimilarJobsResponse 相似岗位结果，无结果时为空数组
type SimilarJobsResponse struct {
	SimilarJobs []types.ScoredDocument `json:"similar_jobs"`
}

// SimilarResumesResponse 示例简历结果，附带用于检索的相似岗位
type SimilarResumesResponse struct {
	SimilarJobs    []types.ScoredDocument `json:"similar_jobs"`
	ExampleResumes []types.ScoredDocument `json:"example_resumes"`
}

func nonNilDocs(docs []types.ScoredDocument) []types.ScoredDocument {
	if docs == nil {
		return []types.ScoredDocument{}
	}
	return docs
}

// HandleAnalyze 同步差距分析
// POST /api/v1/gap-analysis
func (h *GapHandler) HandleAnalyze(ctx context.Context, c *app.RequestContext) {
	var req types.AnalysisRequest
	if !decodeJSON(c, &req) {
		return
	}
	res, err := h.analysis.Analyze(ctx, &req)
	if err != nil {
		writeServiceError(ctx, c, err, "差距分析失败")
		return
	}
	c.JSON(consts.StatusOK, res)
}

// HandleSubmit 受理异步分析
// POST /api/v1/analyses
func (h *GapHandler) HandleSubmit(ctx context.Context, c *app.RequestContext) {
	var req types.AnalysisRequest
	if !decodeJSON(c, &req) {
		return
	}
	id, err := h.analysis.Submit(ctx, &req)
	if err != nil {
		writeServiceError(ctx, c, err, "受理分析失败")
		return
	}
	c.JSON(consts.StatusAccepted, SubmitResponse{AnalysisID: id, Status: types.AnalysisStatusPending})
}

// HandleGetAnalysis 查询分析结果
// GET /api/v1/analyses/:id
func (h *GapHandler) HandleGetAnalysis(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	if id == "" {
		writeError(c, consts.StatusBadRequest, "id 不能为空")
		return
	}
	res, err := h.analysis.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, c, err, "查询分析失败")
		return
	}
	c.JSON(consts.StatusOK, res)
}

// HandleSimilarJobs 相似岗位检索
// POST /api/v1/similar/jobs
func (h *GapHandler) HandleSimilarJobs(ctx context.Context, c *app.RequestContext) {
	var req SimilarJobsRequest
	if !decodeJSON(c, &req) {
		return
	}
	k, ok := countParam(c, "k", req.K)
	if !ok {
		return
	}
	jobs, err := h.retrieval.SimilarJobs(ctx, req.Text, k)
	if err != nil {
		writeServiceError(ctx, c, err, "相似岗位检索失败")
		return
	}
	c.JSON(consts.StatusOK, SimilarJobsResponse{SimilarJobs: nonNilDocs(jobs)})
}

// HandleSimilarResumes 示例简历检索
// POST /api/v1/similar/resumes
func (h *GapHandler) HandleSimilarResumes(ctx context.Context, c *app.RequestContext) {
	var req SimilarResumesRequest
	if !decodeJSON(c, &req) {
		return
	}
	jobK, ok := countParam(c, "job_k", req.JobK)
	if !ok {
		return
	}
	k, ok := countParam(c, "k", req.K)
	if !ok {
		return
	}
	jobs, examples, err := h.retrieval.ExampleResumes(ctx, req.Text, jobK, k)
	if err != nil {
		writeServiceError(ctx, c, err, "示例简历检索失败")
		return
	}
	c.JSON(consts.StatusOK, SimilarResumesResponse{
		SimilarJobs:    nonNilDocs(jobs),
		ExampleResumes: nonNilDocs(examples),
	})
}

// HandleReloadCorpus 重新加载参考语料
// POST /api/v1/corpus/reload
func (h *GapHandler) HandleReloadCorpus(ctx context.Context, c *app.RequestContext) {
	stats, err := h.retrieval.Reload(ctx)
	if err != nil {
		writeServiceError(ctx, c, err, "重载语料失败")
		return
	}
	c.JSON(consts.StatusOK, stats)
}

// countParam 未提供时返回 0 表示使用默认值；显式提供的值必须 >= 1
func countParam(c *app.RequestContext, name string, v *int) (int, bool) {
	if v == nil {
		return 0, true
	}
	if *v < 1 {
		writeError(c, consts.StatusBadRequest, name+" 必须大于等于 1")
		return 0, false
	}
	return *v, true
}
