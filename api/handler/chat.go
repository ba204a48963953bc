package handler

import (
	"net/http"

	"github.com/fyerfyer/doc-quiz-system/api/middleware"
	"github.com/fyerfyer/doc-quiz-system/api/model"
	"github.com/fyerfyer/doc-quiz-system/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ChatHandler 处理文档问答的API请求
type ChatHandler struct {
	answers *services.AnswerService // 问答服务
	logger  *logrus.Logger          // 日志记录器
}

// NewChatHandler 创建问答处理器
func NewChatHandler(answers *services.AnswerService) *ChatHandler {
	return &ChatHandler{
		answers: answers,
		logger:  middleware.GetLogger(),
	}
}

// Ask 基于指定文档回答问题
// POST /api/chat
func (h *ChatHandler) Ask(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid request parameters"))
		return
	}

	result, err := h.answers.Ask(c.Request.Context(), middleware.OwnerID(c), req.DocumentID, req.Question)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.ChatResponse{
		DocumentID: req.DocumentID,
		Question:   req.Question,
		Answer:     result.Answer,
		Sources:    result.Sources,
		HasContext: result.HasContext,
	}))
}
