package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoralex/video-transcribe/internal/api/handlers"
	"github.com/yoralex/video-transcribe/internal/api/middleware"
)

type Deps struct {
	Jobs *handlers.JobHandler
	WS   *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.POST("/jobs", d.Jobs.Create)
	auth.GET("/jobs", d.Jobs.List)
	auth.GET("/jobs/:job_id", d.Jobs.Get)
	auth.GET("/jobs/:job_id/transcript", d.Jobs.Transcript)

	// WebSocket progress feed
	auth.GET("/ws/jobs/:job_id", d.WS.JobEvents)

	// Admin
	admin := auth.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/jobs", d.Jobs.ListAll)
}
