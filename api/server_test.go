package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/demand-predictor/api/handlers"
	"github.com/OldStager01/demand-predictor/api/middleware"
	"github.com/OldStager01/demand-predictor/internal/orchestrator"
	"github.com/OldStager01/demand-predictor/pkg/apperrors"
	"github.com/OldStager01/demand-predictor/pkg/config"
	"github.com/OldStager01/demand-predictor/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubService struct {
	locationErr error
}

func (s *stubService) Predict(ctx context.Context, body interface{}) ([]models.PredictionResult, error) {
	if _, ok := body.([]interface{}); !ok {
		return nil, apperrors.NewValidationError("Input should be a list of records")
	}
	return []models.PredictionResult{{Prediction: 4.2}}, nil
}

func (s *stubService) ResolveLocations(ctx context.Context, records []interface{}) ([]interface{}, error) {
	if s.locationErr != nil {
		return nil, s.locationErr
	}
	return records, nil
}

func (s *stubService) ModelInfo() orchestrator.ModelInfo {
	return orchestrator.ModelInfo{Centroids: 3}
}

func testAPIConfig() config.APIConfig {
	return config.APIConfig{
		Port:              5000,
		RateLimit:         100,
		RateLimitWindow:   time.Minute,
		LocationRateLimit: 2,
		MaxBodyBytes:      1024,
		Swagger:           true,
		DefaultLimit:      50,
		MaxLimit:          500,
	}
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestServer_Routes(t *testing.T) {
	s := NewServer(testAPIConfig(), &stubService{}, Options{})

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/health/ready", "", http.StatusOK},
		{http.MethodGet, "/health/live", "", http.StatusOK},
		{http.MethodPost, "/predict", `[]`, http.StatusOK},
		{http.MethodPost, "/predict", `{}`, http.StatusBadRequest},
		{http.MethodPost, "/get_location", `{"topLocations": []}`, http.StatusOK},
		{http.MethodGet, "/model/info", "", http.StatusOK},
		{http.MethodGet, "/predictions/recent", "", http.StatusNotFound},
		{http.MethodGet, "/swagger/index.html", "", http.StatusOK},
		{http.MethodGet, "/does-not-exist", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := do(s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestServer_TraceIDHeader(t *testing.T) {
	s := NewServer(testAPIConfig(), &stubService{}, Options{})

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`[]`))
	req.Header.Set(middleware.TraceIDHeader, "trace-123")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, "trace-123", w.Header().Get(middleware.TraceIDHeader))
}

func TestServer_SwaggerDisabled(t *testing.T) {
	cfg := testAPIConfig()
	cfg.Swagger = false
	s := NewServer(cfg, &stubService{}, Options{})

	w := do(s, http.MethodGet, "/swagger/index.html", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_LocationRateLimit(t *testing.T) {
	s := NewServer(testAPIConfig(), &stubService{}, Options{})

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, do(s, http.MethodPost, "/get_location", `{"topLocations": []}`).Code)
	}

	w := do(s, http.MethodPost, "/get_location", `{"topLocations": []}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// other routes keep their own budget
	assert.Equal(t, http.StatusOK, do(s, http.MethodPost, "/predict", `[]`).Code)
}

func TestServer_LocationProviderFailure(t *testing.T) {
	s := NewServer(testAPIConfig(), &stubService{
		locationErr: apperrors.NewExternalError("location lookup failed", errors.New("timeout")),
	}, Options{})

	w := do(s, http.MethodPost, "/get_location", `{"topLocations": [{"start_lat": 1, "start_lng": 2}]}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestServer_BodyTooLarge(t *testing.T) {
	s := NewServer(testAPIConfig(), &stubService{}, Options{})

	w := do(s, http.MethodPost, "/predict", "["+strings.Repeat(`{"a":1},`, 200)+"{}]")

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestServer_HealthChecks(t *testing.T) {
	s := NewServer(testAPIConfig(), &stubService{}, Options{
		HealthChecks: map[string]handlers.HealthCheck{
			"database": func(ctx context.Context) error { return errors.New("down") },
		},
	})

	assert.Equal(t, http.StatusServiceUnavailable, do(s, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/health/live", "").Code)
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	s := NewServer(testAPIConfig(), &stubService{}, Options{})

	assert.NoError(t, s.Shutdown(context.Background()))
}
