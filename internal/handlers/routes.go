package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers all API routes
func (h *Handlers) SetupRoutes(r *gin.Engine) {
	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/messages/batch", h.IngestBatch)
		api.GET("/messages", h.ListMessages)
		api.GET("/messages/:id", h.GetMessage)
		api.DELETE("/messages/:id", h.DeleteMessage)

		api.POST("/extractions/trigger", h.TriggerExtraction)
		api.GET("/extractions", h.ListExtractions)
		api.GET("/extractions/active", h.GetActiveExtraction)
		api.GET("/extractions/:id", h.GetExtraction)
		api.PUT("/extractions/:id", h.UpdateExtraction)
		api.DELETE("/extractions/:id", h.DeleteExtraction)

		api.GET("/stats", h.GetStats)
		api.GET("/events", h.Events)
	}
}
