package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"teams-message-relay-go/internal/model"
)

// HealthCheck handles health check requests. A broken cache degrades the
// report but not the status: the cache is never required for correctness.
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := model.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Database:  "ok",
		Cache:     "ok",
		Metrics:   make(map[string]string),
	}

	if h.db != nil {
		if err := h.db.Raw("SELECT 1").Error; err != nil {
			response.Status = "error"
			response.Database = "error"
			logrus.Errorf("Database health check failed: %v", err)
		}
	}

	if err := h.cache.Ping(c.Request.Context()); err != nil {
		response.Cache = "error"
		logrus.Warnf("Cache health check failed: %v", err)
	}

	response.Metrics["subscribers"] = strconv.Itoa(h.hub.SubscriberCount())

	statusCode := http.StatusOK
	if response.Status == "error" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}
