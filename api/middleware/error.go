package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/fyerfyer/doc-quiz-system/api/model"
	"github.com/fyerfyer/doc-quiz-system/internal/llm"
	"github.com/fyerfyer/doc-quiz-system/internal/models"
	"github.com/fyerfyer/doc-quiz-system/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ContextOwnerID 调用方身份在gin上下文中的键
const ContextOwnerID = "OwnerID"

// ownerHeader 携带调用方身份的请求头
const ownerHeader = "X-User-ID"

// RequireOwner 调用方身份中间件
// 所有文档操作都以调用方身份做归属校验
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := c.GetHeader(ownerHeader)
		if ownerID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.NewErrorResponse(
				http.StatusUnauthorized,
				"missing user identity",
			))
			return
		}

		c.Set(ContextOwnerID, ownerID)
		c.Next()
	}
}

// OwnerID 从gin上下文中取出调用方身份
func OwnerID(c *gin.Context) string {
	return c.GetString(ContextOwnerID)
}

// ErrorHandler 统一错误处理中间件
// 将服务层错误映射为HTTP状态码，对外只暴露概括性消息
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"error": r,
					"stack": string(debug.Stack()),
					"path":  c.Request.URL.Path,
				}).Error("Panic recovered in API request")

				resp := model.NewErrorResponse(
					http.StatusInternalServerError,
					"an unexpected error occurred",
				)
				resp.TraceID = c.GetString(ContextTraceID)
				c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status, message := mapError(err)

		log.WithFields(logrus.Fields{
			FieldTraceID: c.GetString(ContextTraceID),
			FieldPath:    c.Request.URL.Path,
			FieldStatus:  status,
		}).WithError(err).Warn("Request failed")

		resp := model.NewErrorResponse(status, message)
		resp.TraceID = c.GetString(ContextTraceID)

		c.AbortWithStatusJSON(status, resp)
	}
}

// HandleError 在处理器中登记错误，由错误处理中间件统一响应
func HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
}

// mapError 将错误映射为HTTP状态码和对外消息
// 文档不存在和归属他人是两种不同的响应
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrDocumentNotFound):
		return http.StatusNotFound, "document not found"
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusForbidden, "not authorized to access this document"
	case errors.Is(err, services.ErrDocumentNotReady):
		return http.StatusConflict, "document is not ready yet"
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict, "document is already being processed"
	}

	var genErr *llm.GenerationError
	if errors.As(err, &genErr) {
		return http.StatusInternalServerError, "failed to generate a response"
	}

	return http.StatusInternalServerError, "internal server error"
}
