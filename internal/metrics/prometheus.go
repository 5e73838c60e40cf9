package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OldStager01/demand-predictor/internal/logger"
)

const namespace = "demand"

// Location lookup outcomes, counted once per lookup whether or not the cache
// answered it.
const (
	OutcomeResolved = "resolved"
	OutcomeUnknown  = "unknown"
	OutcomeError    = "error"
)

type Metrics struct {
	predictionsServed  prometheus.Counter
	predictionFailures *prometheus.CounterVec
	predictLatency     prometheus.Histogram
	geocodeCalls       *prometheus.CounterVec
	geocodeLatency     prometheus.Histogram
	cacheHits          prometheus.Counter
	circuitState       *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide collectors registered on the default registry.
func Get() *Metrics {
	once.Do(func() {
		instance = New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return instance
}

// New registers a fresh set of collectors on reg.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		predictionsServed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_served_total",
			Help:      "Total number of records predicted",
		}),
		predictionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_failures_total",
			Help:      "Total number of failed prediction batches by error kind",
		}, []string{"kind"}),
		predictLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "predict_batch_duration_seconds",
			Help:      "Duration of /predict batch processing",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		geocodeCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_calls_total",
			Help:      "Location lookups by outcome, cached or not",
		}, []string{"outcome"}),
		geocodeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_duration_seconds",
			Help:      "Duration of location lookups, cache included",
			Buckets:   prometheus.DefBuckets,
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_hits_total",
			Help:      "Reverse geocode lookups answered from cache",
		}),
		circuitState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
		gatherer: gatherer,
	}
}

func (m *Metrics) AddPredictions(n int) {
	m.predictionsServed.Add(float64(n))
}

func (m *Metrics) IncPredictionFailure(kind string) {
	m.predictionFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObservePredictLatency(d time.Duration) {
	m.predictLatency.Observe(d.Seconds())
}

func (m *Metrics) IncGeocode(outcome string) {
	m.geocodeCalls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveGeocodeLatency(d time.Duration) {
	m.geocodeLatency.Observe(d.Seconds())
}

func (m *Metrics) IncCacheHit() {
	m.cacheHits.Inc()
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.circuitState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on its own port until ctx is cancelled.
func StartServer(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Get().Handler())

	addr := ":" + strconv.Itoa(port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Infof("Prometheus metrics server listening on %s", addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Prometheus server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}
