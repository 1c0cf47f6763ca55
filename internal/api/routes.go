package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"prospector/server/internal/auth"
)

// SetupRoutes registers all API routes. Everything under /api except the
// health probe requires a valid session.
func SetupRoutes(router *gin.Engine, handler *Handler, validator auth.TokenValidator, logger *logrus.Logger) {
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method_not_allowed", "message": "Method not allowed"})
	})

	router.GET("/api/health", handler.Health)

	authed := router.Group("/api")
	authed.Use(auth.RequireSession(validator, logger))
	{
		authed.GET("/dashboard", handler.GetDashboard)

		authed.GET("/actions", handler.ListActions)
		authed.POST("/actions", handler.CreateAction)
		authed.POST("/actions/:id/complete", handler.CompleteAction)
		authed.POST("/actions/:id/skip", handler.SkipAction)
		authed.POST("/actions/:id/reopen", handler.ReopenAction)
		authed.POST("/actions/:id/reschedule", handler.RescheduleAction)

		authed.GET("/properties", handler.ListProperties)
		authed.POST("/properties", handler.CreateProperty)
		authed.GET("/properties/nearby", handler.NearbyProperties)
		authed.POST("/properties/ingest", handler.IngestProperties)
		authed.GET("/properties/:id", handler.GetProperty)
		authed.PATCH("/properties/:id", handler.UpdateProperty)
		authed.PUT("/properties/:id/owners", handler.SetPropertyOwners)

		authed.GET("/owners", handler.ListOwners)
		authed.POST("/owners", handler.CreateOwner)
		authed.GET("/owners/:id", handler.GetOwner)
		authed.PATCH("/owners/:id", handler.UpdateOwner)
		authed.POST("/owners/:id/interactions", handler.AddInteraction)

		authed.GET("/analytics", handler.GetAnalytics)
		authed.GET("/analytics/:date", handler.GetAnalyticsByDate)

		authed.GET("/territory", handler.Territory)
	}
}
