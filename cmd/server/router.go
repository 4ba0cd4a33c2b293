package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-quiz/backend/internal/attempts"
	"github.com/aura-quiz/backend/internal/auth"
	"github.com/aura-quiz/backend/internal/leaderboard"
	"github.com/aura-quiz/backend/internal/middleware"
	"github.com/aura-quiz/backend/internal/quizzes"
	"github.com/aura-quiz/backend/pkg/response"
)

type handlers struct {
	auth        *auth.Handler
	quizzes     *quizzes.Handler
	attempts    *attempts.Handler
	leaderboard *leaderboard.Handler
}

func newRouter(corsOrigins string, jwtService *auth.JWTService, h handlers, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(corsOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.auth.Register)
		authGroup.POST("/login", h.auth.Login)
	}

	// Public reads
	router.GET("/users/:id", h.auth.Profile)
	router.GET("/users/:id/attempts", h.attempts.ListByUser)
	router.GET("/quizzes", h.quizzes.List)
	router.GET("/quizzes/:id", h.quizzes.Get)
	router.GET("/quizzes/:id/leaderboard", h.leaderboard.Get)
	router.GET("/quizzes/:id/leaderboard/ws", h.leaderboard.Stream)
	router.GET("/quizzes/:id/export", h.quizzes.ExportJSON)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.POST("/quizzes", h.quizzes.CreateQuiz)
		api.POST("/quizzes/:id/export/s3", h.quizzes.ExportS3)
		api.POST("/questions", h.quizzes.CreateQuestion)

		api.POST("/attempts", h.attempts.Start)
		api.GET("/attempts/:id", h.attempts.Get)
		api.POST("/attempts/:id/complete", h.attempts.Complete)
		api.POST("/answers", h.attempts.SubmitAnswer)
	}
	return router
}
