package app

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"roadmap_ai_backend/docs"
	"roadmap_ai_backend/internal/config"
	"roadmap_ai_backend/internal/middleware"
	"roadmap_ai_backend/pkg/monitoring"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		sessions := authGroup.Group("/sessions")
		{
			sessions.POST("", c.session.Create)
			sessions.GET("", c.session.List)
			sessions.GET("/:id", c.session.Get)
			sessions.PUT("/:id", c.session.Update)
			sessions.DELETE("/:id", c.session.Delete)
			sessions.POST("/:id/archive", c.session.Archive)
			sessions.GET("/:id/messages", c.session.Messages)

			// 对话入口，响应是 SSE 事件流
			sessions.POST("/:id/chat", c.chat.SubmitTurn)

			sessions.GET("/:id/roadmap", c.roadmap.Get)
			sessions.GET("/:id/progress", c.roadmap.Progress)
			sessions.POST("/:id/roadmap/start", c.roadmap.Start)
			sessions.GET("/:id/goals/:goalNumber/materials", c.material.ListByGoal)
			sessions.POST("/:id/goals/:goalNumber/hours", c.roadmap.LogHours)

			sessions.GET("/:id/graduation", c.graduation.GetProject)
			sessions.GET("/:id/graduation/submissions", c.graduation.ListSubmissions)
			sessions.POST("/:id/graduation/submissions", c.graduation.SubmitAnswers)
		}

		authGroup.POST("/materials/:materialId/complete", c.material.Complete)

		quizzes := authGroup.Group("/quizzes")
		{
			quizzes.GET("/:quizId", c.quiz.Get)
			quizzes.POST("/:quizId/attempts", c.quiz.StartAttempt)
			quizzes.GET("/:quizId/attempts", c.quiz.ListAttempts)
		}
		authGroup.POST("/attempts/:attemptId/submit", c.quiz.SubmitAttempt)
		authGroup.POST("/attempts/:attemptId/abandon", c.quiz.AbandonAttempt)

		cv := authGroup.Group("/cv")
		{
			cv.POST("", c.cv.Upload)
			cv.GET("", c.cv.Latest)
			cv.POST("/resummarize", c.cv.Resummarize)
		}
	}
}
