package handler

import (
	"context"
	"io"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"resume-gap-go/internal/service"
)

// maxUploadSize 简历文件大小上限
const maxUploadSize = 10 << 20

// ExtractHandler 基于大模型的关键词与简历抽取接口
type ExtractHandler struct {
	extraction *service.ExtractionService
}

// NewExtractHandler 创建处理器
func NewExtractHandler(extraction *service.ExtractionService) *ExtractHandler {
	return &ExtractHandler{extraction: extraction}
}

// ExtractKeywordsRequest 关键词抽取请求
type ExtractKeywordsRequest struct {
	JobDescription string `json:"job_description"`
}

// ExtractResumeRequest 简历纯文本抽取请求
type ExtractResumeRequest struct {
	Text string `json:"text"`
}

// HandleExtractKeywords 从岗位描述抽取关键词
// POST /api/v1/extract/keywords
func (h *ExtractHandler) HandleExtractKeywords(ctx context.Context, c *app.RequestContext) {
	var req ExtractKeywordsRequest
	if !decodeJSON(c, &req) {
		return
	}
	res, err := h.extraction.ExtractKeywords(ctx, req.JobDescription)
	if err != nil {
		writeServiceError(ctx, c, err, "关键词抽取失败")
		return
	}
	c.JSON(consts.StatusOK, res)
}

// HandleExtractResume 抽取简历结构。
// multipart 上传时读取 file 字段（pdf/txt/md），否则按 JSON {text} 处理。
// POST /api/v1/extract/resume
func (h *ExtractHandler) HandleExtractResume(ctx context.Context, c *app.RequestContext) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var req ExtractResumeRequest
		if !decodeJSON(c, &req) {
			return
		}
		res, err := h.extraction.ExtractResumeText(ctx, req.Text)
		if err != nil {
			writeServiceError(ctx, c, err, "简历抽取失败")
			return
		}
		c.JSON(consts.StatusOK, res)
		return
	}

	if fileHeader.Size > maxUploadSize {
		writeError(c, consts.StatusRequestEntityTooLarge, "文件过大")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		writeError(c, consts.StatusInternalServerError, "打开文件失败")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		writeError(c, consts.StatusInternalServerError, "读取文件失败")
		return
	}
	res, err := h.extraction.ExtractResumeFile(ctx, data, fileHeader.Filename)
	if err != nil {
		writeServiceError(ctx, c, err, "简历抽取失败")
		return
	}
	c.JSON(consts.StatusOK, res)
}
