package handler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.opentelemetry.io/otel/trace"

	"resume-gap-go/internal/llm"
	"resume-gap-go/internal/logger"
	"resume-gap-go/internal/parser"
	"resume-gap-go/internal/retrieval"
	"resume-gap-go/internal/service"
	"resume-gap-go/internal/storage"
	"resume-gap-go/internal/tracing"
)

// errorResponse 统一的错误响应体
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// RequestIDKey 请求ID在 RequestContext 中的键
const RequestIDKey = "request_id"

func requestID(c *app.RequestContext) string {
	if v, ok := c.Get(RequestIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func writeError(c *app.RequestContext, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg, RequestID: requestID(c)})
}

// decodeJSON 解析请求体，失败时写 400 并返回 false
func decodeJSON(c *app.RequestContext, out interface{}) bool {
	body := c.Request.Body()
	if len(body) == 0 {
		writeError(c, consts.StatusBadRequest, "请求体不能为空")
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		writeError(c, consts.StatusBadRequest, "请求体不是合法的JSON: "+err.Error())
		return false
	}
	return true
}

// statusFor 把服务层错误映射为 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, retrieval.ErrInvalidK),
		errors.Is(err, llm.ErrEmptyInput),
		errors.Is(err, parser.ErrUnsupportedType),
		errors.Is(err, parser.ErrEmptyDocument):
		return consts.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return consts.StatusNotFound
	case errors.Is(err, service.ErrReloadInProgress):
		return consts.StatusConflict
	case errors.Is(err, service.ErrIndexNotReady),
		errors.Is(err, service.ErrAsyncUnavailable),
		errors.Is(err, service.ErrExtractionUnavailable),
		errors.Is(err, retrieval.ErrEmptyCorpus):
		return consts.StatusServiceUnavailable
	case errors.Is(err, llm.ErrNoJSON), errors.Is(err, llm.ErrEmptyResponse):
		return consts.StatusBadGateway
	}
	return consts.StatusInternalServerError
}

func writeServiceError(ctx context.Context, c *app.RequestContext, err error, msg string) {
	status := statusFor(err)
	ev := logger.Ctx(ctx).Warn()
	if status >= consts.StatusInternalServerError {
		ev = logger.Ctx(ctx).Error()
	}
	ev.Err(err).Int("status", status).Str("path", string(c.Path())).Msg(msg)
	tracing.RecordHTTPError(trace.SpanFromContext(ctx), err, status)
	writeError(c, status, msg+": "+err.Error())
}
