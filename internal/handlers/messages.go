package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"teams-message-relay-go/internal/model"
	"teams-message-relay-go/internal/repository"
)

const statsCacheTTL = 5 * time.Minute

// ListMessages handles GET /api/messages
func (h *Handlers) ListMessages(c *gin.Context) {
	filter := model.MessageFilter{
		Channel: c.Query("channel"),
		Sender:  c.Query("sender"),
		Type:    c.Query("type"),
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "100")); err == nil {
		filter.Limit = limit
	}

	messages, err := h.messages.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch messages",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}

	c.JSON(http.StatusOK, messages)
}

// GetMessage handles GET /api/messages/:id, where id is the external
// message id
func (h *Handlers) GetMessage(c *gin.Context) {
	message, err := h.messages.GetByMessageID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Error:   "not_found",
			Message: "Message not found",
			Code:    http.StatusNotFound,
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch message",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, message)
}

// DeleteMessage handles DELETE /api/messages/:id. Administrative: the
// ingestion path never deletes rows.
func (h *Handlers) DeleteMessage(c *gin.Context) {
	err := h.messages.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Error:   "not_found",
			Message: "Message not found",
			Code:    http.StatusNotFound,
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to delete message",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetStats handles GET /api/stats, serving the cached aggregate when
// available. The cache entry is invalidated by every successful ingest.
func (h *Handlers) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	if cached, err := h.cache.StatsSummary(ctx); err != nil {
		logrus.Warnf("Stats cache unavailable: %v", err)
	} else if cached != nil {
		c.Data(http.StatusOK, "application/json", cached)
		return
	}

	stats, err := h.messages.Stats(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to compute stats",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	if data, err := json.Marshal(stats); err == nil {
		if err := h.cache.SetStatsSummary(ctx, data, statsCacheTTL); err != nil {
			logrus.Warnf("Failed to cache stats: %v", err)
		}
	}

	c.JSON(http.StatusOK, stats)
}
