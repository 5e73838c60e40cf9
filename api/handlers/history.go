package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/demand-predictor/pkg/apperrors"
	"github.com/OldStager01/demand-predictor/pkg/config"
	"github.com/OldStager01/demand-predictor/pkg/models"
)

type PredictionHistory interface {
	Recent(ctx context.Context, limit int) ([]models.PredictionRecord, error)
}

type HistoryHandler struct {
	history PredictionHistory
	config  *config.APIConfig
}

// NewHistoryHandler accepts a nil history when the audit log is disabled.
func NewHistoryHandler(history PredictionHistory, cfg *config.APIConfig) *HistoryHandler {
	return &HistoryHandler{history: history, config: cfg}
}

func (h *HistoryHandler) getDefaultLimit() int {
	if h.config != nil && h.config.DefaultLimit > 0 {
		return h.config.DefaultLimit
	}
	return 50
}

func (h *HistoryHandler) getMaxLimit() int {
	if h.config != nil && h.config.MaxLimit > 0 {
		return h.config.MaxLimit
	}
	return 500
}

// Recent godoc
// @Summary Recent predictions
// @Description Latest served predictions from the audit log, newest first.
// @Tags Predictions
// @Produce json
// @Param limit query int false "Maximum rows to return"
// @Success 200 {object} map[string]interface{} "predictions and count"
// @Failure 400 {object} ErrorResponse "Invalid limit"
// @Failure 404 {object} ErrorResponse "Audit log disabled"
// @Failure 500 {object} ErrorResponse "Database failure"
// @Router /predictions/recent [get]
func (h *HistoryHandler) Recent(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "prediction history is disabled"})
		return
	}

	limit := h.getDefaultLimit()
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, apperrors.NewValidationError("limit must be a positive integer"))
			return
		}
		limit = n
	}
	if maxLimit := h.getMaxLimit(); limit > maxLimit {
		limit = maxLimit
	}

	records, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, apperrors.NewInternalError("failed to fetch predictions", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"predictions": records,
		"count":       len(records),
	})
}
