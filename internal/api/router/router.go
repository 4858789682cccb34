package router

import (
	"github.com/cloudwego/hertz/pkg/route"

	"resume-gap-go/internal/api/handler"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	Health  *handler.HealthHandler
	Gap     *handler.GapHandler
	Extract *handler.ExtractHandler
}

// RegisterRoutes 注册 API 路由。apiKeys 为空时 /api/v1 不做鉴权。
func RegisterRoutes(r *route.Engine, hs Handlers, apiKeys []string) {
	r.Use(RequestID(), AccessLog())

	r.GET("/health", hs.Health.HandleHealth)

	api := r.Group("/api/v1")
	if len(apiKeys) > 0 {
		api.Use(KeyAuth(apiKeys))
	}

	api.POST("/gap-analysis", hs.Gap.HandleAnalyze)
	api.POST("/analyses", hs.Gap.HandleSubmit)
	api.GET("/analyses/:id", hs.Gap.HandleGetAnalysis)
	api.POST("/similar/jobs", hs.Gap.HandleSimilarJobs)
	api.POST("/similar/resumes", hs.Gap.HandleSimilarResumes)
	api.POST("/corpus/reload", hs.Gap.HandleReloadCorpus)

	if hs.Extract != nil {
		api.POST("/extract/keywords", hs.Extract.HandleExtractKeywords)
		api.POST("/extract/resume", hs.Extract.HandleExtractResume)
	}
}
