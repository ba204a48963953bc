package handler

import (
	"net/http"

	"github.com/fyerfyer/doc-quiz-system/api/middleware"
	"github.com/fyerfyer/doc-quiz-system/api/model"
	"github.com/fyerfyer/doc-quiz-system/pkg/taskqueue"
	"github.com/gin-gonic/gin"
)

// TaskHandler 处理任务状态查询的API请求
// 仅在启用异步任务队列时注册
type TaskHandler struct {
	queue taskqueue.Queue // 任务队列
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(queue taskqueue.Queue) *TaskHandler {
	return &TaskHandler{
		queue: queue,
	}
}

// Get 查询任务状态
// GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	var req model.TaskIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid task ID"))
		return
	}

	task, err := h.queue.GetTask(c.Request.Context(), req.ID)
	if err != nil {
		if err == taskqueue.ErrTaskNotFound {
			c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "task not found"))
			return
		}
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewTaskResponse(task)))
}
