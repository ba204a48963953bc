package api

import (
	"github.com/fyerfyer/doc-quiz-system/api/handler"
	"github.com/fyerfyer/doc-quiz-system/api/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置API路由
// taskHandler为nil时不注册任务查询端点
func SetupRouter(
	docHandler *handler.DocumentHandler,
	chatHandler *handler.ChatHandler,
	quizHandler *handler.QuizHandler,
	taskHandler *handler.TaskHandler,
) *gin.Engine {
	router := gin.New()

	router.Use(middleware.SetTraceID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	// 健康检查不要求调用方身份
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(middleware.RequireOwner())
	{
		docGroup := api.Group("/documents")
		{
			// 按来源地址登记文档 - POST /api/documents
			docGroup.POST("", docHandler.Register)

			// 上传文档文件 - POST /api/documents/upload
			docGroup.POST("/upload", docHandler.Upload)

			// 触发文档处理 - POST /api/documents/:id/process
			docGroup.POST("/:id/process", docHandler.Process)

			// 获取文档信息 - GET /api/documents/:id
			docGroup.GET("/:id", docHandler.Get)

			// 获取文档列表 - GET /api/documents
			docGroup.GET("", docHandler.List)

			// 删除文档 - DELETE /api/documents/:id
			docGroup.DELETE("/:id", docHandler.Delete)
		}

		// 文档问答 - POST /api/chat
		api.POST("/chat", chatHandler.Ask)

		// 文档出题 - POST /api/quiz
		api.POST("/quiz", quizHandler.Generate)

		// 任务状态查询 - GET /api/tasks/:id
		if taskHandler != nil {
			api.GET("/tasks/:id", taskHandler.Get)
		}
	}

	return router
}

// Cors 跨域资源共享中间件
// 需要支持浏览器前端跨域访问时启用
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, X-User-ID, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
