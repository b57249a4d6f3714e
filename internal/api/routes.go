package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"careerforge/internal/api/middleware"
	"careerforge/internal/auth"
	"careerforge/internal/cv"
	"careerforge/internal/database"
	"careerforge/internal/recommend"
	"careerforge/internal/storage"
)

// RegisterRoutes 注册 /api 下的全部业务路由。
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
	cookieDomain string,
	allowedOrigins []string,
) {
	cvService := cv.NewService(db)
	recommender := recommend.NewService(db, recommend.DefaultWeights())

	authHandler := NewAuthHandler(db, authService, redisClient, logger, cookieDomain)
	cvHandler := NewCVHandler(db, cvService, asynqClient, storageClient, logger)
	questionnaireHandler := NewQuestionnaireHandler(db, recommender, logger)
	jobHandler := NewJobHandler(db, logger)
	applicationHandler := NewApplicationHandler(db, logger)
	wsHandler := NewWsHandler(redisClient, authService, logger, allowedOrigins)

	authMW := middleware.AuthMiddleware(authService)
	requireJobSeeker := middleware.RequireRole(database.RoleJobSeeker)
	requireRecruiter := middleware.RequireRole(database.RoleRecruiter)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/ws", wsHandler.HandleConnection)

		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMW, authHandler.Logout)
			authGroup.GET("/me", authMW, authHandler.Me)
		}

		questionnaireGroup := apiGroup.Group("/questionnaire")
		{
			questionnaireGroup.GET("/categories", questionnaireHandler.ListCategories)
			questionnaireGroup.GET("/questions/:categoryId", questionnaireHandler.ListQuestions)
			questionnaireGroup.POST("/submit", authMW, questionnaireHandler.SubmitResponses)
			questionnaireGroup.GET("/recommendations", authMW, questionnaireHandler.GetRecommendations)
		}

		cvGroup := apiGroup.Group("/cvs")
		cvGroup.Use(authMW, requireJobSeeker)
		{
			cvGroup.POST("", cvHandler.CreateCV)
			cvGroup.GET("", cvHandler.ListCVs)
			cvGroup.GET("/:id", cvHandler.GetCV)
			cvGroup.PUT("/:id", cvHandler.UpdateCV)
			cvGroup.DELETE("/:id", cvHandler.DeleteCV)
			cvGroup.PATCH("/:id/visibility", cvHandler.UpdateVisibility)
			cvGroup.GET("/:id/download-link", cvHandler.GetDownloadLink)
			cvGroup.POST("/:id/generate", cvHandler.GeneratePDF)
		}

		// 公开 CV 检索单独挂载，避免与 /cvs/:id 的路由参数冲突。
		apiGroup.GET("/public/cvs", authMW, requireRecruiter, cvHandler.ListPublicCVs)

		jobGroup := apiGroup.Group("/jobs")
		{
			jobGroup.GET("", jobHandler.ListJobs)
			jobGroup.GET("/:id", jobHandler.GetJob)
			jobGroup.POST("", authMW, requireRecruiter, jobHandler.CreateJob)
			jobGroup.PUT("/:id", authMW, requireRecruiter, jobHandler.UpdateJob)
			jobGroup.DELETE("/:id", authMW, requireRecruiter, jobHandler.DeleteJob)
			jobGroup.GET("/:id/applications", authMW, requireRecruiter, applicationHandler.ListForJob)
		}

		apiGroup.GET("/recruiter/jobs", authMW, requireRecruiter, jobHandler.ListMyJobs)

		applicationGroup := apiGroup.Group("/applications")
		applicationGroup.Use(authMW)
		{
			applicationGroup.POST("", requireJobSeeker, applicationHandler.Apply)
			applicationGroup.GET("/mine", requireJobSeeker, applicationHandler.ListMine)
			applicationGroup.PATCH("/:id/status", requireRecruiter, applicationHandler.UpdateStatus)
		}
	}
}
