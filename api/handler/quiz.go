package handler

import (
	"net/http"

	"github.com/fyerfyer/doc-quiz-system/api/middleware"
	"github.com/fyerfyer/doc-quiz-system/api/model"
	"github.com/fyerfyer/doc-quiz-system/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// QuizHandler 处理文档出题的API请求
type QuizHandler struct {
	quizzes *services.QuizService // 出题服务
	logger  *logrus.Logger        // 日志记录器
}

// NewQuizHandler 创建出题处理器
func NewQuizHandler(quizzes *services.QuizService) *QuizHandler {
	return &QuizHandler{
		quizzes: quizzes,
		logger:  middleware.GetLogger(),
	}
}

// Generate 基于指定文档生成多项选择题
// POST /api/quiz
func (h *QuizHandler) Generate(c *gin.Context) {
	var req model.QuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid request parameters"))
		return
	}

	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = "medium"
	}

	result, err := h.quizzes.Generate(c.Request.Context(), middleware.OwnerID(c), req.DocumentID, req.NumQuestions, difficulty)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewQuizResponse(req.DocumentID, difficulty, result)))
}
