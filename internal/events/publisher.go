package events

import (
	"fmt"

	"github.com/OldStager01/demand-predictor/internal/resilience"
	"github.com/OldStager01/demand-predictor/pkg/apperrors"
	"github.com/OldStager01/demand-predictor/pkg/models"
)

type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

// WithTraceID returns a publisher that stamps every event with traceID.
func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p == nil || p.bus == nil {
		return
	}
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) PredictionMade(batch *models.PredictionBatch) {
	msg := fmt.Sprintf("Predicted %d records", len(batch.Results))
	event := models.NewEvent(models.EventTypePredictionMade, msg).
		WithData(batch)
	p.publish(event)
}

func (p *Publisher) PredictionFailed(records int, err error) {
	kind := apperrors.KindOf(err)
	event := models.NewEvent(models.EventTypePredictionFailed, "Prediction batch failed").
		WithData(map[string]interface{}{
			"records": records,
			"kind":    kind,
			"error":   err.Error(),
		})

	if kind != apperrors.KindValidation {
		event.WithSeverity(models.SeverityCritical)
	}

	p.publish(event)
}

func (p *Publisher) LocationResolved(resolved, total int) {
	msg := fmt.Sprintf("Resolved %d of %d locations", resolved, total)
	event := models.NewEvent(models.EventTypeLocationResolved, msg).
		WithData(map[string]interface{}{
			"resolved": resolved,
			"total":    total,
		})
	p.publish(event)
}

func (p *Publisher) GeocodeFailed(err error) {
	event := models.NewEvent(models.EventTypeGeocodeFailed, "Reverse geocoding failed").
		WithSeverity(models.SeverityWarning).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}

func (p *Publisher) CircuitChanged(name string, from, to resilience.State) {
	msg := fmt.Sprintf("Circuit %s: %s -> %s", name, from, to)
	event := models.NewEvent(models.EventTypeCircuitChanged, msg).
		WithData(map[string]interface{}{
			"name": name,
			"from": from.String(),
			"to":   to.String(),
		})

	if to == resilience.StateOpen {
		event.WithSeverity(models.SeverityCritical)
	}

	p.publish(event)
}
