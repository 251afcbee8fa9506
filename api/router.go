package api

import (
	"github.com/gin-gonic/gin"

	"github.com/smartqms/ai-analysis-api/api/handler"
	"github.com/smartqms/ai-analysis-api/api/middleware"
	"github.com/smartqms/ai-analysis-api/api/model"
)

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(
	deviationHandler *handler.DeviationHandler,
	generateHandler *handler.GenerateHandler,
	qtaHandler *handler.QTAHandler,
	recordHandler *handler.RecordHandler,
) *gin.Engine {
	model.RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery())

	// 应用全局中间件
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorMiddleware())
	router.Use(middleware.SetTraceID())
	router.Use(Cors())

	// 在调试模式下记录请求体和响应体
	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestBodyLog())
		router.Use(middleware.ResponseLogger())
	}

	api := router.Group("/api")
	{
		// 偏差管理API
		deviation := api.Group("/deviation")
		{
			// 事件分析 - POST /api/deviation/incident/analyze
			deviation.POST("/incident/analyze", deviationHandler.AnalyzeIncident)

			// 偏差调查分析 - POST /api/deviation/investigation/analyze
			deviation.POST("/investigation/analyze", deviationHandler.AnalyzeInvestigationVoice)
			deviation.POST("/investigation/text", deviationHandler.AnalyzeInvestigationText)

			// 质量审核分析 - POST /api/deviation/quality-review/analyze
			deviation.POST("/quality-review/analyze", deviationHandler.AnalyzeQualityReview)

			// 附件分析 - POST /api/deviation/attachment/analyze
			deviation.POST("/attachment/analyze", deviationHandler.AnalyzeAttachment)
		}

		// 邮件生成API - POST /api/email/generate
		api.POST("/email/generate", generateHandler.GenerateEmail)

		// 待办列表API
		api.POST("/todo/generate", generateHandler.GenerateTodo)
		api.POST("/todo/text", generateHandler.GenerateTodoFromText)

		// 协议修订API
		qta := api.Group("/qta")
		{
			qta.POST("/revision/voice", qtaHandler.ReviseVoice)
			qta.POST("/revision/document", qtaHandler.UpdateDocument)
		}

		// 历史记录API
		api.GET("/records", recordHandler.ListRecords)
		api.GET("/records/:id", recordHandler.GetRecord)

		// 任务状态API - GET /api/tasks/:id
		api.GET("/tasks/:id", recordHandler.GetTask)

		// 任务回调API - 供外部处理服务上报任务结果
		api.POST("/tasks/callback", recordHandler.TaskCallback)

		// 健康检查API
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
			})
		})
	}

	return router
}

// Cors 跨域资源共享中间件
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
