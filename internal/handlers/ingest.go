package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"teams-message-relay-go/internal/ingest"
	"teams-message-relay-go/internal/model"
)

// IngestBatch handles POST /api/messages/batch. Malformed input is the only
// hard 4xx; a failed transactional write still answers 200 with the error
// accounted in the counts.
func (h *Handlers) IngestBatch(c *gin.Context) {
	var req model.BatchIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	start := time.Now()
	result, err := h.ingestor.Ingest(c.Request.Context(), req.Messages, req.ExtractionID)
	if err != nil {
		var validationErr *ingest.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Error:   "validation_error",
				Message: "Batch validation failed",
				Code:    http.StatusBadRequest,
				Fields:  validationErr.Fields,
			})
			return
		}
		logrus.Errorf("Unexpected ingest failure: %v", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to process batch",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, model.BatchIngestResponse{
		Success:        result.Errors == 0,
		Processed:      result.Processed,
		Inserted:       result.Inserted,
		Duplicates:     result.Duplicates,
		Errors:         result.Errors,
		ProcessingTime: time.Since(start).Milliseconds(),
		ExtractionID:   req.ExtractionID,
	})
}
