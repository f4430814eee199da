package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"teams-message-relay-go/internal/model"
	"teams-message-relay-go/internal/session"
)

// TriggerExtraction handles POST /api/extractions/trigger
func (h *Handlers) TriggerExtraction(c *gin.Context) {
	// metadata is optional and an empty body is fine
	var req model.TriggerSessionRequest
	_ = c.ShouldBindJSON(&req)

	created, err := h.sessions.Trigger(c.Request.Context(), req.Metadata)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to create extraction session",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusCreated, created)
}

// UpdateExtraction handles PUT /api/extractions/:id
func (h *Handlers) UpdateExtraction(c *gin.Context) {
	id := c.Param("id")

	var req model.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	updated, err := h.sessions.Update(c.Request.Context(), id, req.Status, req.MessagesExtracted, req.Metadata)
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Error:   "not_found",
			Message: "Extraction session not found",
			Code:    http.StatusNotFound,
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to update extraction session",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, updated)
}

// ListExtractions handles GET /api/extractions
func (h *Handlers) ListExtractions(c *gin.Context) {
	filter := model.SessionFilter{
		Status: c.Query("status"),
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filter.Offset = offset
	}
	if filter.Status != "" && !model.ValidSessionStatus(filter.Status) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "status must be one of in_progress, completed, failed",
			Code:    http.StatusBadRequest,
		})
		return
	}

	sessions, err := h.sessions.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to list extraction sessions",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	if sessions == nil {
		sessions = []model.ExtractionSession{}
	}

	c.JSON(http.StatusOK, sessions)
}

// GetActiveExtraction handles GET /api/extractions/active. A stale or
// missing pointer is not an error: the response simply reports no active
// session.
func (h *Handlers) GetActiveExtraction(c *gin.Context) {
	active, err := h.sessions.GetActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to resolve active extraction session",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	if active == nil {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"active": true, "session": active})
}

// GetExtraction handles GET /api/extractions/:id
func (h *Handlers) GetExtraction(c *gin.Context) {
	found, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Error:   "not_found",
			Message: "Extraction session not found",
			Code:    http.StatusNotFound,
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to get extraction session",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, found)
}

// DeleteExtraction handles DELETE /api/extractions/:id
func (h *Handlers) DeleteExtraction(c *gin.Context) {
	err := h.sessions.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Error:   "not_found",
			Message: "Extraction session not found",
			Code:    http.StatusNotFound,
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to delete extraction session",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.Status(http.StatusNoContent)
}
