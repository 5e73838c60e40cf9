package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/demand-predictor/internal/resilience"
	"github.com/OldStager01/demand-predictor/pkg/apperrors"
	"github.com/OldStager01/demand-predictor/pkg/models"
)

func receive(t *testing.T, ch <-chan *models.Event) *models.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return nil
	}
}

func TestEventBus_SubscribeByType(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	made := bus.Subscribe(models.EventTypePredictionMade)
	all := bus.SubscribeAll()

	bus.Publish(models.NewEvent(models.EventTypePredictionMade, "made"))
	bus.Publish(models.NewEvent(models.EventTypeGeocodeFailed, "failed"))

	assert.Equal(t, "made", receive(t, made).Message)
	assert.Equal(t, "made", receive(t, all).Message)
	assert.Equal(t, "failed", receive(t, all).Message)
	assert.Len(t, made, 0)
}

func TestEventBus_DropsWhenFull(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	bus.Subscribe(models.EventTypePredictionMade)

	bus.Publish(models.NewEvent(models.EventTypePredictionMade, "1"))
	bus.Publish(models.NewEvent(models.EventTypePredictionMade, "2"))

	assert.Equal(t, int64(1), bus.Dropped())
}

func TestEventBus_CloseIsIdempotent(t *testing.T) {
	bus := NewEventBus(1)
	ch := bus.SubscribeAll()

	bus.Close()
	bus.Close()
	bus.Publish(models.NewEvent(models.EventTypePredictionMade, "after close"))

	_, ok := <-ch
	assert.False(t, ok)
}

func TestPublisher_StampsTraceID(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()
	ch := bus.SubscribeAll()

	NewPublisher(bus).WithTraceID("trace-9").LocationResolved(2, 3)

	e := receive(t, ch)
	assert.Equal(t, models.EventTypeLocationResolved, e.Type)
	assert.Equal(t, "trace-9", e.TraceID)
	assert.Equal(t, "Resolved 2 of 3 locations", e.Message)
}

func TestPublisher_PredictionFailedSeverity(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()
	ch := bus.SubscribeAll()
	p := NewPublisher(bus)

	p.PredictionFailed(3, apperrors.NewValidationError("bad"))
	p.PredictionFailed(3, apperrors.NewInternalError("model", errors.New("boom")))

	assert.Equal(t, models.SeverityInfo, receive(t, ch).Severity)
	assert.Equal(t, models.SeverityCritical, receive(t, ch).Severity)
}

func TestPublisher_CircuitChanged(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()
	ch := bus.SubscribeAll()

	NewPublisher(bus).CircuitChanged("geocoder", resilience.StateClosed, resilience.StateOpen)

	e := receive(t, ch)
	assert.Equal(t, models.SeverityCritical, e.Severity)
	assert.Equal(t, "Circuit geocoder: closed -> open", e.Message)
}

func TestPublisher_NilIsNoop(t *testing.T) {
	var p *Publisher
	assert.NotPanics(t, func() { p.GeocodeFailed(errors.New("x")) })
}

type fakeStore struct {
	mu      sync.Mutex
	batches [][]models.PredictionRecord
	done    chan struct{}
}

func (s *fakeStore) InsertBatch(ctx context.Context, records []models.PredictionRecord) error {
	s.mu.Lock()
	s.batches = append(s.batches, records)
	s.mu.Unlock()
	s.done <- struct{}{}
	return nil
}

func TestEventLogger_PersistsPredictions(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()
	store := &fakeStore{done: make(chan struct{}, 1)}

	el := NewEventLogger(store, bus.SubscribeAll())
	el.Start()
	defer el.Stop()

	batch := &models.PredictionBatch{
		Requests: []models.PredictionRequest{{Latitude: 1, Longitude: 2, DayOfWeek: 3, Hour: 4, Minutes: 58}},
		Results:  []models.PredictionResult{{InputTransformed: models.EncodedFeatures{LocationCluster: 7}, Prediction: 9.5}},
	}
	NewPublisher(bus).WithTraceID("trace-1").PredictionMade(batch)

	select {
	case <-store.done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for persistence")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.batches, 1)
	rec := store.batches[0][0]
	assert.Equal(t, 7, rec.LocationCluster)
	assert.Equal(t, 0, rec.MinuteWindow)
	assert.Equal(t, 9.5, rec.Prediction)
	assert.Equal(t, "trace-1", rec.TraceID)
}

func predictionBatch(cluster int) *models.PredictionBatch {
	return &models.PredictionBatch{
		Requests: []models.PredictionRequest{{Latitude: 1, Longitude: 2, DayOfWeek: 3, Hour: 4, Minutes: 10}},
		Results:  []models.PredictionResult{{InputTransformed: models.EncodedFeatures{LocationCluster: cluster}, Prediction: 1}},
	}
}

func TestEventLogger_StopPersistsBufferedEvents(t *testing.T) {
	tests := []struct {
		name     string
		closeBus bool
	}{
		{"bus closed before stop", true},
		{"bus still open", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewEventBus(10)
			defer bus.Close()
			store := &fakeStore{done: make(chan struct{}, 3)}
			el := NewEventLogger(store, bus.SubscribeAll())

			p := NewPublisher(bus)
			for i := 1; i <= 3; i++ {
				p.PredictionMade(predictionBatch(i))
			}
			if tt.closeBus {
				bus.Close()
			}

			el.Start()
			el.Stop()

			store.mu.Lock()
			defer store.mu.Unlock()
			require.Len(t, store.batches, 3)
			for i, batch := range store.batches {
				assert.Equal(t, i+1, batch[0].LocationCluster)
			}
		})
	}
}

type blockingStore struct{}

func (blockingStore) InsertBatch(ctx context.Context, _ []models.PredictionRecord) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestEventLogger_StopGivesUpAfterDrainTimeout(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()
	el := NewEventLogger(blockingStore{}, bus.SubscribeAll())
	el.writeTimeout = time.Minute
	el.drainTimeout = 50 * time.Millisecond

	NewPublisher(bus).PredictionMade(predictionBatch(1))
	NewPublisher(bus).PredictionMade(predictionBatch(2))
	el.Start()

	start := time.Now()
	el.Stop()

	assert.Less(t, time.Since(start), 5*time.Second)
}
