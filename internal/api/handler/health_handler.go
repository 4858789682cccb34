package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"resume-gap-go/internal/service"
)

// HealthHandler 存活检查
type HealthHandler struct {
	retrieval *service.RetrievalService
	analysis  *service.AnalysisService
}

// NewHealthHandler 创建处理器，参数可为 nil
func NewHealthHandler(retrieval *service.RetrievalService, analysis *service.AnalysisService) *HealthHandler {
	return &HealthHandler{retrieval: retrieval, analysis: analysis}
}

// HandleHealth GET /health
func (h *HealthHandler) HandleHealth(_ context.Context, c *app.RequestContext) {
	resp := utils.H{
		"status":      "ok",
		"index_ready": h.retrieval != nil && h.retrieval.Ready(),
		"async":       h.analysis != nil && h.analysis.AsyncEnabled(),
	}
	if h.retrieval != nil {
		if stats := h.retrieval.Stats(); stats != nil {
			resp["corpus"] = stats
		}
	}
	c.JSON(consts.StatusOK, resp)
}
