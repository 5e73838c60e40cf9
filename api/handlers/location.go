package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/demand-predictor/pkg/apperrors"
	"github.com/OldStager01/demand-predictor/pkg/models"
)

// LocationService adds location_name to topLocations records.
type LocationService interface {
	ResolveLocations(ctx context.Context, records []interface{}) ([]interface{}, error)
}

type LocationHandler struct {
	service LocationService
}

func NewLocationHandler(service LocationService) *LocationHandler {
	return &LocationHandler{service: service}
}

// LocationRequest documents the /get_location body. Records may carry any
// additional keys; they are returned unchanged.
type LocationRequest struct {
	TopLocations []map[string]interface{} `json:"topLocations"`
}

// GetLocation godoc
// @Summary Resolve location names
// @Description Reverse geocode every topLocations record that has both start_lat and start_lng, adding location_name ("Unknown" when the provider has no address). Records without coordinates are returned unchanged.
// @Tags Locations
// @Accept json
// @Produce json
// @Param request body LocationRequest true "Records to annotate"
// @Success 200 {object} LocationRequest "The same document with location_name added"
// @Failure 400 {object} ErrorResponse "Body is not an object or topLocations is not a list"
// @Failure 502 {object} ErrorResponse "Geocoding provider failed"
// @Router /get_location [post]
func (h *LocationHandler) GetLocation(c *gin.Context) {
	body, err := decodeJSON(c)
	if err != nil {
		respondError(c, err)
		return
	}

	doc, ok := body.(map[string]interface{})
	if !ok {
		respondError(c, apperrors.NewValidationError("request body must be a JSON object"))
		return
	}

	records, ok := doc[models.TopLocationsKey].([]interface{})
	if !ok {
		respondError(c, apperrors.Validationf("%s must be a list", models.TopLocationsKey))
		return
	}

	annotated, err := h.service.ResolveLocations(c.Request.Context(), records)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	out[models.TopLocationsKey] = annotated

	c.JSON(http.StatusOK, out)
}
