package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/demand-predictor/internal/orchestrator"
)

type ModelInfoProvider interface {
	ModelInfo() orchestrator.ModelInfo
}

type ModelHandler struct {
	provider ModelInfoProvider
}

func NewModelHandler(provider ModelInfoProvider) *ModelHandler {
	return &ModelHandler{provider: provider}
}

// Info godoc
// @Summary Loaded model metadata
// @Description Artifact paths, tree and feature counts, base score and centroid table size.
// @Tags Model
// @Produce json
// @Success 200 {object} orchestrator.ModelInfo
// @Router /model/info [get]
func (h *ModelHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, h.provider.ModelInfo())
}
