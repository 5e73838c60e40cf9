package geocoder

import (
	"context"
	"errors"
	"time"

	"github.com/OldStager01/demand-predictor/internal/resilience"
)

// ResilientResolver fails fast while the provider is known to be down.
// Each lookup is attempted once.
type ResilientResolver struct {
	resolver       Resolver
	circuitBreaker *resilience.CircuitBreaker
}

type ResilientResolverConfig struct {
	Resolver      Resolver
	MaxFailures   int
	Timeout       time.Duration
	HalfOpenMax   int
	OnStateChange func(name string, from, to resilience.State)
}

func NewResilientResolver(cfg ResilientResolverConfig) *ResilientResolver {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "geocoder",
		MaxFailures: cfg.MaxFailures,
		Timeout:     cfg.Timeout,
		HalfOpenMax: cfg.HalfOpenMax,
		IsFailure: func(err error) bool {
			return !errors.Is(err, ErrNoResult) && !errors.Is(err, context.Canceled)
		},
		OnStateChange: cfg.OnStateChange,
	})

	return &ResilientResolver{
		resolver:       cfg.Resolver,
		circuitBreaker: cb,
	}
}

func (r *ResilientResolver) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	var address string

	err := r.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		address, err = r.resolver.ReverseGeocode(ctx, lat, lng)
		return err
	})

	if err != nil {
		return "", err
	}

	return address, nil
}

func (r *ResilientResolver) CircuitState() resilience.State {
	return r.circuitBreaker.State()
}

func (r *ResilientResolver) ResetCircuit() {
	r.circuitBreaker.Reset()
}
