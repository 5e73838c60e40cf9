package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/demand-predictor/pkg/models"
)

// PredictionService validates and scores a decoded /predict body.
type PredictionService interface {
	Predict(ctx context.Context, body interface{}) ([]models.PredictionResult, error)
}

type PredictionHandler struct {
	service PredictionService
}

func NewPredictionHandler(service PredictionService) *PredictionHandler {
	return &PredictionHandler{service: service}
}

// Predict godoc
// @Summary Predict demand
// @Description Encode each record (location cluster, weekend flag, cyclic time features) and score it with the demand model. Any invalid record fails the whole batch.
// @Tags Predictions
// @Accept json
// @Produce json
// @Param request body []models.PredictionRequest true "Records to score"
// @Success 200 {array} models.PredictionResult "One result per record, in input order"
// @Failure 400 {object} ErrorResponse "Body is not a list, or a record is missing or has an invalid field"
// @Failure 500 {object} ErrorResponse "Scaler or model failure"
// @Router /predict [post]
func (h *PredictionHandler) Predict(c *gin.Context) {
	body, err := decodeJSON(c)
	if err != nil {
		respondError(c, err)
		return
	}

	results, err := h.service.Predict(c.Request.Context(), body)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}
