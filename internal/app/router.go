package app

import (
	"learnhub_backend/docs"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/middleware"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.NoRoute(util.NotFound)

	// Swagger文档路由
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	// Prometheus指标
	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/login", c.auth.Login)
	}

	auth := router.Group("/api")
	auth.Use(middleware.AuthMiddleware(cfg.JWT.Secret, a.services.auth), middleware.ActivityMiddleware(repos.user))
	{
		auth.GET("/me", c.auth.Me)

		content := auth.Group("/content")
		{
			content.GET("/topics", c.content.GetTree)
			content.GET("/topics/:topic/:subtopic/:nested", c.content.GetPage)
		}

		progress := auth.Group("/progress")
		{
			progress.GET("", c.progress.ListMine)
			progress.POST("/evaluate", c.progress.Evaluate)
			progress.GET("/ws", c.progress.Stream)
			progress.GET("/:topic/:subtopic/:nested", c.progress.Load)
			progress.POST("/:topic/:subtopic/:nested", c.progress.Apply)
		}

		quiz := auth.Group("/quiz")
		{
			quiz.GET("/:topic/:subtopic/:nested", c.quiz.GetQuiz)
			quiz.POST("/:topic/:subtopic/:nested/submit", c.quiz.Submit)
			quiz.GET("/:topic/:subtopic/:nested/attempts", c.quiz.Attempts)
		}

		copilot := auth.Group("/copilot")
		{
			copilot.POST("/chat", c.copilot.Chat)
			copilot.GET("/sessions/:id", c.copilot.Session)
		}
	}

	// 管理员路由
	admin := router.Group("/api/admin")
	admin.Use(
		middleware.AuthMiddleware(cfg.JWT.Secret, a.services.auth),
		middleware.ActivityMiddleware(repos.user),
		middleware.RoleMiddleware(model.Admin),
	)
	{
		admin.POST("/content/reload", c.content.Reload)
		admin.PUT("/content", c.content.Upload)

		admin.GET("/students", c.student.List)
		admin.POST("/students", c.student.Create)
		admin.GET("/students/:id", c.student.Get)
		admin.PUT("/students/:id", c.student.Update)
		admin.DELETE("/students/:id", c.student.Delete)
		admin.POST("/students/:id/disable", c.student.SetDisabled)
		admin.POST("/students/:id/reset-password", c.student.ResetPassword)

		admin.GET("/progress", c.adminProgress.List)
		admin.GET("/progress/:id", c.adminProgress.Get)
		admin.PUT("/progress/:id", c.adminProgress.Override)
		admin.DELETE("/progress/:id", c.adminProgress.Reset)
	}
}
