package events

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/demand-predictor/internal/features"
	"github.com/OldStager01/demand-predictor/internal/logger"
	"github.com/OldStager01/demand-predictor/pkg/models"
)

// PredictionStore persists served predictions.
type PredictionStore interface {
	InsertBatch(ctx context.Context, records []models.PredictionRecord) error
}

// EventLogger writes every event to the structured log and, when a store is
// set, persists prediction batches.
type EventLogger struct {
	store        PredictionStore
	eventChan    <-chan *models.Event
	writeTimeout time.Duration
	drainTimeout time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	stopping     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

func NewEventLogger(store PredictionStore, eventChan <-chan *models.Event) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventLogger{
		store:        store,
		eventChan:    eventChan,
		writeTimeout: 5 * time.Second,
		drainTimeout: 10 * time.Second,
		ctx:          ctx,
		cancel:       cancel,
		stopping:     make(chan struct{}),
	}
}

func (l *EventLogger) Start() {
	l.wg.Add(1)
	go l.run()
}

// Stop processes whatever is already buffered on the channel and waits for
// the loop to exit. Pending writes are abandoned after drainTimeout.
func (l *EventLogger) Stop() {
	l.stopOnce.Do(func() { close(l.stopping) })

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(l.drainTimeout):
		logger.Warn("Event logger drain timed out, abandoning pending writes")
		l.cancel()
		<-done
	}
	l.cancel()
}

func (l *EventLogger) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stopping:
			l.drain()
			return
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.processEvent(event)
		}
	}
}

func (l *EventLogger) drain() {
	for l.ctx.Err() == nil {
		select {
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.processEvent(event)
		default:
			return
		}
	}
}

func (l *EventLogger) processEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"severity":   event.Severity,
		"trace_id":   event.TraceID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}

	if event.Type == models.EventTypePredictionMade {
		l.persistPredictions(event)
	}
}

func (l *EventLogger) persistPredictions(event *models.Event) {
	if l.store == nil {
		return
	}
	batch, ok := event.Data.(*models.PredictionBatch)
	if !ok {
		return
	}

	records := batch.Records(features.MinuteWindowOf)
	if len(records) == 0 {
		return
	}
	if batch.TraceID == "" {
		for i := range records {
			records[i].TraceID = event.TraceID
		}
	}

	ctx, cancel := context.WithTimeout(l.ctx, l.writeTimeout)
	defer cancel()

	if err := l.store.InsertBatch(ctx, records); err != nil {
		logger.WithField("trace_id", event.TraceID).Errorf("Failed to persist predictions: %v", err)
	}
}
