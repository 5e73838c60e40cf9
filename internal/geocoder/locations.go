package geocoder

import (
	"context"
	"errors"
	"time"

	"github.com/OldStager01/demand-predictor/internal/logger"
	"github.com/OldStager01/demand-predictor/internal/metrics"
	"github.com/OldStager01/demand-predictor/pkg/apperrors"
	"github.com/OldStager01/demand-predictor/pkg/models"
	"github.com/OldStager01/demand-predictor/pkg/validation"
)

// LocationService annotates location records with place names.
type LocationService struct {
	resolver Resolver
	metrics  *metrics.Metrics
}

func NewLocationService(resolver Resolver, m *metrics.Metrics) *LocationService {
	return &LocationService{resolver: resolver, metrics: m}
}

// Annotate resolves each record carrying both start_lat and start_lng, in
// order, and adds location_name. Other records are returned untouched. The
// input records are not modified.
func (s *LocationService) Annotate(ctx context.Context, records []interface{}) ([]interface{}, error) {
	out := make([]interface{}, len(records))

	for i, item := range records {
		rec, ok := item.(map[string]interface{})
		if !ok {
			return nil, apperrors.Validationf("%s[%d]: must be an object", models.TopLocationsKey, i)
		}

		lat, hasLat, err := validation.Coordinate(rec, models.StartLatKey)
		if err != nil {
			return nil, apperrors.Validationf("%s[%d]: %v", models.TopLocationsKey, i, err)
		}
		lng, hasLng, err := validation.Coordinate(rec, models.StartLngKey)
		if err != nil {
			return nil, apperrors.Validationf("%s[%d]: %v", models.TopLocationsKey, i, err)
		}
		if !hasLat || !hasLng {
			out[i] = rec
			continue
		}

		name, err := s.resolve(ctx, lat, lng)
		if err != nil {
			logger.FromContext(ctx).WithField("index", i).Errorf("Reverse geocoding failed: %v", err)
			return nil, apperrors.NewExternalError("location lookup failed", err)
		}

		annotated := make(map[string]interface{}, len(rec)+1)
		for k, v := range rec {
			annotated[k] = v
		}
		annotated[models.LocationNameKey] = name
		out[i] = annotated
	}

	return out, nil
}

func (s *LocationService) resolve(ctx context.Context, lat, lng float64) (string, error) {
	start := time.Now()
	name, err := s.resolver.ReverseGeocode(ctx, lat, lng)
	s.observe(time.Since(start), err)

	if errors.Is(err, ErrNoResult) {
		return models.UnknownLocation, nil
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

func (s *LocationService) observe(d time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveGeocodeLatency(d)
	switch {
	case err == nil:
		s.metrics.IncGeocode(metrics.OutcomeResolved)
	case errors.Is(err, ErrNoResult):
		s.metrics.IncGeocode(metrics.OutcomeUnknown)
	default:
		s.metrics.IncGeocode(metrics.OutcomeError)
	}
}
