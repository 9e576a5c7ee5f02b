package app

import (
	"course_delivery_backend/docs"
	"course_delivery_backend/internal/config"
	"course_delivery_backend/internal/middleware"
	"course_delivery_backend/internal/model"

	"course_delivery_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerStaffRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/me", c.auth.Me)

	// 进度
	rg.POST("/progress/videos/:id", c.progress.RecordVideoProgress)
	rg.POST("/progress/documents/:id", c.progress.RecordDocumentRead)
	rg.GET("/progress/courses/:courseId", c.progress.GetProgressionStatus)

	// 测验
	rg.GET("/quizzes/units/:unitId/availability", c.quiz.GetAvailability)
	rg.POST("/quizzes/units/:unitId/attempts", c.quiz.GenerateAttempt)
	rg.POST("/quizzes/attempts/:attemptId/submit", c.quiz.SubmitAttempt)
	rg.GET("/quizzes/attempts/:attemptId", c.quiz.GetAttemptResult)

	// 课程结构与有效顺序（学生可读）
	rg.GET("/catalog/courses/:courseId", c.catalog.GetOutline)
	rg.GET("/arrangements/courses/:courseId/effective", c.arrangement.GetEffectiveOrder)
}

func (a *App) registerStaffRoutes(rg *gin.RouterGroup, c *controllers) {
	staff := rg.Group("/")
	staff.Use(middleware.StaffMiddleware())
	{
		// 目录管理
		staff.POST("/catalog/courses", c.catalog.CreateCourse)
		staff.POST("/catalog/courses/:courseId/launch", c.catalog.LaunchCourse)
		staff.POST("/catalog/courses/:courseId/units", c.catalog.CreateUnit)
		staff.POST("/catalog/units/:unitId/videos", c.catalog.AddVideo)
		staff.POST("/catalog/units/:unitId/documents", c.catalog.AddDocument)
		staff.POST("/catalog/units/:unitId/pools", c.catalog.CreateQuizPool)
		staff.POST("/catalog/pools/:poolId/questions", c.catalog.AddQuestion)
		staff.POST("/catalog/questions/:questionId/review", c.catalog.ReviewQuestion)
		staff.PUT("/catalog/sections/:sectionId/courses/:courseId/quiz-config", c.catalog.SaveSectionConfig)

		// 编排
		staff.POST("/arrangements/courses/:courseId", c.arrangement.CreateDraft)
		staff.GET("/arrangements/courses/:courseId", c.arrangement.ListVersions)
		staff.POST("/arrangements/:id/submit", c.arrangement.Submit)

		// 锁定查询与解锁授予（层级校验在 service 内）
		staff.GET("/locks/students/:studentId/pools/:poolId", c.lock.GetLock)
		staff.POST("/locks/students/:studentId/pools/:poolId/unlock", c.lock.GrantUnlock)
	}

	// 编排审批仅限 dean/admin
	review := rg.Group("/")
	review.Use(middleware.RoleMiddleware(model.Dean, model.Admin))
	{
		review.POST("/arrangements/:id/approve", c.arrangement.Approve)
		review.POST("/arrangements/:id/reject", c.arrangement.Reject)
	}
}
