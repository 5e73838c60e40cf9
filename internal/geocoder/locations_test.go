package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/demand-predictor/internal/metrics"
	"github.com/OldStager01/demand-predictor/pkg/apperrors"
)

func decodeRecords(t *testing.T, body string) []interface{} {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var records []interface{}
	require.NoError(t, dec.Decode(&records))
	return records
}

func TestLocationService_Annotate(t *testing.T) {
	static := NewStaticResolver(map[string]string{
		StaticKey(37.7, -122.4): "San Francisco",
	})
	svc := NewLocationService(static, newTestMetrics())

	records := decodeRecords(t, `[
		{"start_lat": 37.7, "start_lng": -122.4, "count": 17, "label": "a"},
		{"start_lat": 1.5, "start_lng": 2.5},
		{"start_lat": 3.0, "count": 4},
		{"start_lat": null, "start_lng": 2.0},
		{"start_lat": "37.7", "start_lng": "-122.4"}
	]`)

	out, err := svc.Annotate(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, out, 5)

	first := out[0].(map[string]interface{})
	assert.Equal(t, "San Francisco", first["location_name"])
	assert.Equal(t, json.Number("17"), first["count"])
	assert.Equal(t, "a", first["label"])

	assert.Equal(t, "Unknown", out[1].(map[string]interface{})["location_name"])

	assert.NotContains(t, out[2].(map[string]interface{}), "location_name")
	assert.NotContains(t, out[3].(map[string]interface{}), "location_name")

	assert.Equal(t, "San Francisco", out[4].(map[string]interface{})["location_name"])

	assert.Equal(t, 3, static.Calls())
	assert.NotContains(t, records[0].(map[string]interface{}), "location_name", "input must not be modified")
}

func TestLocationService_CountsEachLookupOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, reg)
	static := NewStaticResolver(map[string]string{StaticKey(37.7, -122.4): "San Francisco"})
	cached := NewCachedResolver(CachedResolverConfig{Resolver: static, Cache: newMemCache(), Metrics: m})
	svc := NewLocationService(cached, m)

	records := decodeRecords(t, `[
		{"start_lat": 37.7, "start_lng": -122.4},
		{"start_lat": 37.7, "start_lng": -122.4},
		{"start_lat": 1.5, "start_lng": 2.5}
	]`)

	_, err := svc.Annotate(context.Background(), records)
	require.NoError(t, err)

	expected := `
# HELP demand_geocode_cache_hits_total Reverse geocode lookups answered from cache
# TYPE demand_geocode_cache_hits_total counter
demand_geocode_cache_hits_total 1
# HELP demand_geocode_calls_total Location lookups by outcome, cached or not
# TYPE demand_geocode_calls_total counter
demand_geocode_calls_total{outcome="resolved"} 2
demand_geocode_calls_total{outcome="unknown"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"demand_geocode_calls_total", "demand_geocode_cache_hits_total"))
	assert.Equal(t, 2, static.Calls())
}

func TestLocationService_Empty(t *testing.T) {
	svc := NewLocationService(NewStaticResolver(nil), nil)

	out, err := svc.Annotate(context.Background(), []interface{}{})

	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLocationService_ProviderFailureAbortsBatch(t *testing.T) {
	static := NewStaticResolver(nil)
	static.SetShouldFail(true, errors.New("connection reset"))
	svc := NewLocationService(static, newTestMetrics())

	records := decodeRecords(t, `[{"start_lat": 1, "start_lng": 2}, {"start_lat": 3, "start_lng": 4}]`)
	out, err := svc.Annotate(context.Background(), records)

	require.Error(t, err)
	assert.Nil(t, out)
	assert.Equal(t, apperrors.KindExternal, apperrors.KindOf(err))
	assert.Equal(t, 1, static.Calls(), "lookups stop at the first failure")
}

func TestLocationService_InvalidRecords(t *testing.T) {
	svc := NewLocationService(NewStaticResolver(nil), nil)

	tests := []struct {
		name string
		body string
	}{
		{"record not an object", `[42]`},
		{"non numeric latitude", `[{"start_lat": "north", "start_lng": 2}]`},
		{"boolean longitude", `[{"start_lat": 1, "start_lng": true}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Annotate(context.Background(), decodeRecords(t, tt.body))
			require.Error(t, err)
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
			assert.Contains(t, err.Error(), "topLocations")
		})
	}
}
