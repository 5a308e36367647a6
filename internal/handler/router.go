package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/ytqa/internal/middleware"
)

type RouterDeps struct {
	Sessions  *SessionHandler
	Questions *QuestionHandler
	// LoadInterval throttles session loads per client; zero disables it.
	LoadInterval time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/session", middleware.RateLimit(deps.LoadInterval), deps.Sessions.Load)
	api.GET("/session", deps.Sessions.Get)
	api.DELETE("/session", deps.Sessions.Clear)

	api.POST("/questions", deps.Questions.Ask)
	api.GET("/history", deps.Questions.History)
	api.GET("/context", deps.Questions.Context)
}
