package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/demand-predictor/internal/cluster"
	"github.com/OldStager01/demand-predictor/internal/events"
	"github.com/OldStager01/demand-predictor/internal/features"
	"github.com/OldStager01/demand-predictor/internal/geocoder"
	"github.com/OldStager01/demand-predictor/internal/metrics"
	"github.com/OldStager01/demand-predictor/internal/model"
	"github.com/OldStager01/demand-predictor/internal/orchestrator"
	"github.com/OldStager01/demand-predictor/pkg/config"
	"github.com/OldStager01/demand-predictor/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestOrchestrator(t *testing.T, resolver geocoder.Resolver) *orchestrator.Orchestrator {
	t.Helper()

	predictor, err := model.Load(model.Config{
		ModelPath:  filepath.Join("..", "..", "internal", "model", "testdata", "model.json"),
		ScalerPath: filepath.Join("..", "..", "internal", "model", "testdata", "scaler.json"),
	})
	require.NoError(t, err)

	table, err := cluster.NewTable([]models.Centroid{
		{Latitude: 37.7, Longitude: -122.4, ClusterID: 5},
		{Latitude: 12.9, Longitude: 77.6, ClusterID: 1},
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg, reg)

	o := orchestrator.New(orchestrator.Config{
		Pipeline: orchestrator.NewPipeline(orchestrator.PipelineConfig{
			Encoder:   features.NewEncoder(cluster.NewIndex(table)),
			Predictor: predictor,
		}),
		Locations: geocoder.NewLocationService(resolver, m),
		EventBus:  events.NewEventBus(16),
		Metrics:   m,
		Info: orchestrator.ModelInfo{
			Info:      predictor.Info(),
			Centroids: table.Len(),
			Clusters:  table.ClusterCount(),
		},
	})
	o.Start()
	t.Cleanup(o.Stop)
	return o
}

func perform(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func predictRouter(t *testing.T) *gin.Engine {
	r := gin.New()
	r.POST("/predict", NewPredictionHandler(newTestOrchestrator(t, geocoder.NewStaticResolver(nil))).Predict)
	return r
}

func TestPredict_EndToEnd(t *testing.T) {
	r := predictRouter(t)

	w := perform(r, http.MethodPost, "/predict",
		`[{"latitude": 37.7, "longitude": -122.4, "day_of_week": 2, "is_weekend": 0, "hour": 14, "minutes": 47}]`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var results []models.PredictionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)

	got := results[0].InputTransformed
	assert.Equal(t, 5, got.LocationCluster)
	assert.Equal(t, 0, got.IsWeekend)
	// 47 minutes falls in the 45 window
	assert.InDelta(t, -1.0, got.TimeWindowSin, 1e-9)
	assert.InDelta(t, 0.0, got.TimeWindowCos, 1e-9)
	assert.InDelta(t, math.Sin(2*math.Pi*2/7), got.DayOfWeekSin, 1e-9)
	assert.InDelta(t, math.Cos(2*math.Pi*2/7), got.DayOfWeekCos, 1e-9)
	assert.InDelta(t, math.Sin(2*math.Pi*14/24), got.StartTimeHourSin, 1e-9)
	assert.InDelta(t, math.Cos(2*math.Pi*14/24), got.StartTimeHourCos, 1e-9)
	assert.InDelta(t, 2.75, results[0].Prediction, 1e-9)
}

func TestPredict_PreservesOrder(t *testing.T) {
	r := predictRouter(t)

	w := perform(r, http.MethodPost, "/predict", `[
		{"latitude": 12.9, "longitude": 77.6, "day_of_week": 6, "is_weekend": true, "hour": 0, "minutes": 0},
		{"latitude": 37.7, "longitude": -122.4, "day_of_week": 2, "is_weekend": false, "hour": 14, "minutes": 47}
	]`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var results []models.PredictionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].InputTransformed.LocationCluster)
	assert.Equal(t, 1, results[0].InputTransformed.IsWeekend)
	assert.InDelta(t, 1.75, results[0].Prediction, 1e-9)
	assert.Equal(t, 5, results[1].InputTransformed.LocationCluster)
}

func TestPredict_EmptyList(t *testing.T) {
	r := predictRouter(t)

	w := perform(r, http.MethodPost, "/predict", `[]`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestPredict_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		contains string
	}{
		{
			name:     "object instead of list",
			body:     `{"latitude": 37.7}`,
			contains: "Input should be a list of records",
		},
		{
			name:     "missing hour",
			body:     `[{"latitude": 37.7, "longitude": -122.4, "day_of_week": 2, "is_weekend": 0, "minutes": 47}]`,
			contains: "hour",
		},
		{
			name:     "latitude out of range",
			body:     `[{"latitude": 97.7, "longitude": -122.4, "day_of_week": 2, "is_weekend": 0, "hour": 14, "minutes": 47}]`,
			contains: "latitude",
		},
		{
			name:     "malformed json",
			body:     `[{"latitude": `,
			contains: "invalid JSON body",
		},
		{
			name:     "empty body",
			body:     ``,
			contains: "empty",
		},
	}

	r := predictRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(r, http.MethodPost, "/predict", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, errorOf(t, w), tt.contains)
		})
	}
}

func TestPredict_NonListMessageIsExact(t *testing.T) {
	r := predictRouter(t)

	w := perform(r, http.MethodPost, "/predict", `"records"`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Input should be a list of records", errorOf(t, w))
}

func TestPredict_BodyTooLarge(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 16)
		c.Next()
	})
	r.POST("/predict", NewPredictionHandler(newTestOrchestrator(t, geocoder.NewStaticResolver(nil))).Predict)

	w := perform(r, http.MethodPost, "/predict", `[{"latitude": 37.7, "longitude": -122.4}]`)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

type failingPredictions struct{ err error }

func (f failingPredictions) Predict(ctx context.Context, body interface{}) ([]models.PredictionResult, error) {
	return nil, f.err
}

func TestPredict_UnclassifiedErrorIs500(t *testing.T) {
	r := gin.New()
	r.POST("/predict", NewPredictionHandler(failingPredictions{err: errors.New("boom")}).Predict)

	w := perform(r, http.MethodPost, "/predict", `[]`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func locationRouter(t *testing.T, resolver geocoder.Resolver) *gin.Engine {
	r := gin.New()
	r.POST("/get_location", NewLocationHandler(newTestOrchestrator(t, resolver)).GetLocation)
	return r
}

func TestGetLocation(t *testing.T) {
	resolver := geocoder.NewStaticResolver(nil)
	resolver.SetAddress(37.7, -122.4, "Market Street, San Francisco")
	r := locationRouter(t, resolver)

	w := perform(r, http.MethodPost, "/get_location", `{
		"requestId": "abc",
		"topLocations": [
			{"start_lat": 37.7, "start_lng": -122.4, "count": 12},
			{"start_lat": 1.0, "start_lng": 2.0},
			{"count": 3}
		]
	}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{
		"requestId": "abc",
		"topLocations": [
			{"start_lat": 37.7, "start_lng": -122.4, "count": 12, "location_name": "Market Street, San Francisco"},
			{"start_lat": 1.0, "start_lng": 2.0, "location_name": "Unknown"},
			{"count": 3}
		]
	}`, w.Body.String())
}

func TestGetLocation_Rejections(t *testing.T) {
	r := locationRouter(t, geocoder.NewStaticResolver(nil))

	for name, body := range map[string]string{
		"list body":            `[{"start_lat": 1, "start_lng": 2}]`,
		"missing topLocations": `{"locations": []}`,
		"topLocations object":  `{"topLocations": {"start_lat": 1}}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := perform(r, http.MethodPost, "/get_location", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetLocation_ProviderFailure(t *testing.T) {
	resolver := geocoder.NewStaticResolver(nil)
	resolver.SetShouldFail(true, geocoder.ErrGeocodeFailed)
	r := locationRouter(t, resolver)

	w := perform(r, http.MethodPost, "/get_location",
		`{"topLocations": [{"start_lat": 37.7, "start_lng": -122.4}]}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotEmpty(t, errorOf(t, w))
}

func TestModelInfo(t *testing.T) {
	r := gin.New()
	r.GET("/model/info", NewModelHandler(newTestOrchestrator(t, geocoder.NewStaticResolver(nil))).Info)

	w := perform(r, http.MethodGet, "/model/info", "")

	require.Equal(t, http.StatusOK, w.Code)
	var info orchestrator.ModelInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, 2, info.NumTrees)
	assert.Equal(t, 8, info.NumFeatures)
	assert.Equal(t, 2, info.Centroids)
	assert.Equal(t, 2, info.Clusters)
	assert.Equal(t, model.FeatureColumns, info.FeatureNames)
}

type fakeHistory struct {
	limit   int
	records []models.PredictionRecord
	err     error
}

func (f *fakeHistory) Recent(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	f.limit = limit
	return f.records, f.err
}

func TestHistory_Recent(t *testing.T) {
	cfg := &config.APIConfig{DefaultLimit: 10, MaxLimit: 20}

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantLimit int
	}{
		{"default limit", "", http.StatusOK, 10},
		{"explicit limit", "?limit=5", http.StatusOK, 5},
		{"clamped to max", "?limit=1000", http.StatusOK, 20},
		{"not a number", "?limit=abc", http.StatusBadRequest, 0},
		{"zero", "?limit=0", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := &fakeHistory{records: []models.PredictionRecord{{ID: 1, Prediction: 2.5}}}
			r := gin.New()
			r.GET("/predictions/recent", NewHistoryHandler(history, cfg).Recent)

			w := perform(r, http.MethodGet, "/predictions/recent"+tt.query, "")

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantLimit, history.limit)
			if tt.wantCode == http.StatusOK {
				assert.Contains(t, w.Body.String(), `"count":1`)
			}
		})
	}
}

func TestHistory_Recent_ConfiguredMaxAboveDefault(t *testing.T) {
	history := &fakeHistory{}
	r := gin.New()
	r.GET("/predictions/recent", NewHistoryHandler(history, &config.APIConfig{DefaultLimit: 50, MaxLimit: 1000}).Recent)

	w := perform(r, http.MethodGet, "/predictions/recent?limit=800", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 800, history.limit)
}

func TestHistory_Disabled(t *testing.T) {
	r := gin.New()
	r.GET("/predictions/recent", NewHistoryHandler(nil, nil).Recent)

	w := perform(r, http.MethodGet, "/predictions/recent", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistory_StoreFailure(t *testing.T) {
	r := gin.New()
	r.GET("/predictions/recent", NewHistoryHandler(&fakeHistory{err: errors.New("connection refused")}, nil).Recent)

	w := perform(r, http.MethodGet, "/predictions/recent", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealth(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("dial tcp: refused") }

	t.Run("healthy", func(t *testing.T) {
		h := NewHealthHandler(map[string]HealthCheck{"database": ok})
		r := gin.New()
		r.GET("/health", h.Health)
		r.GET("/health/ready", h.Ready)

		w := perform(r, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "healthy", resp.Checks["database"])
		assert.Equal(t, "healthy", resp.Checks["artifacts"])

		assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/health/ready", "").Code)
	})

	t.Run("dependency down", func(t *testing.T) {
		h := NewHealthHandler(map[string]HealthCheck{"database": ok, "redis": down})
		r := gin.New()
		r.GET("/health", h.Health)
		r.GET("/health/ready", h.Ready)
		r.GET("/health/live", h.Live)

		w := perform(r, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Contains(t, resp.Checks["redis"], "refused")

		assert.Equal(t, http.StatusServiceUnavailable, perform(r, http.MethodGet, "/health/ready", "").Code)
		assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/health/live", "").Code)
	})
}

func TestDecodeJSON_TrailingData(t *testing.T) {
	r := gin.New()
	r.POST("/predict", NewPredictionHandler(failingPredictions{}).Predict)

	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewBufferString(`[] []`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
