// Package orchestrator wires validation, the prediction pipeline, the
// location service and the event bus behind the API handlers.
package orchestrator

import (
	"context"
	"time"

	"github.com/OldStager01/demand-predictor/internal/events"
	"github.com/OldStager01/demand-predictor/internal/logger"
	"github.com/OldStager01/demand-predictor/internal/metrics"
	"github.com/OldStager01/demand-predictor/internal/model"
	"github.com/OldStager01/demand-predictor/internal/resilience"
	"github.com/OldStager01/demand-predictor/pkg/apperrors"
	"github.com/OldStager01/demand-predictor/pkg/models"
	"github.com/OldStager01/demand-predictor/pkg/validation"
)

// LocationAnnotator adds location names to topLocations records.
type LocationAnnotator interface {
	Annotate(ctx context.Context, records []interface{}) ([]interface{}, error)
}

// ModelInfo describes everything loaded at startup.
type ModelInfo struct {
	model.Info
	CentroidsPath string `json:"centroids_path"`
	Centroids     int    `json:"centroids"`
	Clusters      int    `json:"clusters"`
}

type Config struct {
	Pipeline  *Pipeline
	Locations LocationAnnotator
	EventBus  *events.EventBus
	// Store is nil when the audit log is disabled.
	Store   events.PredictionStore
	Metrics *metrics.Metrics
	Info    ModelInfo
}

type Orchestrator struct {
	pipeline    *Pipeline
	locations   LocationAnnotator
	eventBus    *events.EventBus
	eventLogger *events.EventLogger
	publisher   *events.Publisher
	metrics     *metrics.Metrics
	info        ModelInfo
}

func New(cfg Config) *Orchestrator {
	eventBus := cfg.EventBus
	if eventBus == nil {
		eventBus = events.NewEventBus(0)
	}

	return &Orchestrator{
		pipeline:    cfg.Pipeline,
		locations:   cfg.Locations,
		eventBus:    eventBus,
		eventLogger: events.NewEventLogger(cfg.Store, eventBus.SubscribeAll()),
		publisher:   events.NewPublisher(eventBus),
		metrics:     cfg.Metrics,
		info:        cfg.Info,
	}
}

func (o *Orchestrator) Start() {
	logger.Info("Orchestrator starting")
	o.eventLogger.Start()
}

func (o *Orchestrator) Stop() {
	logger.Info("Orchestrator stopping")
	o.eventBus.Close()
	o.eventLogger.Stop()
	logger.Info("Orchestrator stopped")
}

// Predict validates a decoded /predict body and runs the pipeline over it.
func (o *Orchestrator) Predict(ctx context.Context, body interface{}) ([]models.PredictionResult, error) {
	start := time.Now()
	traceID := logger.TraceIDFromContext(ctx)
	publisher := o.publisher.WithTraceID(traceID)

	reqs, err := validation.ParsePredictionRecords(body)
	if err != nil {
		o.recordFailure(publisher, recordCount(body), err)
		return nil, err
	}

	results, err := o.pipeline.Run(ctx, reqs)
	if err != nil {
		o.recordFailure(publisher, len(reqs), err)
		return nil, err
	}

	if o.metrics != nil {
		o.metrics.AddPredictions(len(results))
		o.metrics.ObservePredictLatency(time.Since(start))
	}

	if len(results) > 0 {
		publisher.PredictionMade(&models.PredictionBatch{
			TraceID:  traceID,
			Requests: reqs,
			Results:  results,
		})
	}

	return results, nil
}

func (o *Orchestrator) recordFailure(publisher *events.Publisher, records int, err error) {
	if o.metrics != nil {
		o.metrics.IncPredictionFailure(string(apperrors.KindOf(err)))
	}
	publisher.PredictionFailed(records, err)
}

// ResolveLocations annotates topLocations records with place names.
func (o *Orchestrator) ResolveLocations(ctx context.Context, records []interface{}) ([]interface{}, error) {
	publisher := o.publisher.WithTraceID(logger.TraceIDFromContext(ctx))

	out, err := o.locations.Annotate(ctx, records)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindExternal {
			publisher.GeocodeFailed(err)
		}
		return nil, err
	}

	resolved := 0
	for _, item := range out {
		if rec, ok := item.(map[string]interface{}); ok {
			if _, named := rec[models.LocationNameKey]; named {
				resolved++
			}
		}
	}
	publisher.LocationResolved(resolved, len(out))

	return out, nil
}

// CircuitChanged reports breaker transitions to metrics and the event bus.
func (o *Orchestrator) CircuitChanged(name string, from, to resilience.State) {
	logger.WithComponent(name).Warnf("Circuit breaker %s -> %s", from, to)
	if o.metrics != nil {
		o.metrics.SetCircuitBreakerState(name, int(to))
	}
	o.publisher.CircuitChanged(name, from, to)
}

func (o *Orchestrator) ModelInfo() ModelInfo {
	return o.info
}

func recordCount(body interface{}) int {
	if list, ok := body.([]interface{}); ok {
		return len(list)
	}
	return 0
}
