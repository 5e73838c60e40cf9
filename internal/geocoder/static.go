package geocoder

import (
	"context"
	"fmt"
	"sync"
)

// StaticResolver answers from an in-memory table. It backs the "static"
// provider for offline runs and stands in for Nominatim in tests.
type StaticResolver struct {
	mu           sync.RWMutex
	addresses    map[string]string
	calls        int
	shouldFail   bool
	failureError error
}

func NewStaticResolver(addresses map[string]string) *StaticResolver {
	r := &StaticResolver{addresses: make(map[string]string, len(addresses))}
	for k, v := range addresses {
		r.addresses[k] = v
	}
	return r
}

// StaticKey is the lookup key for a point in a StaticResolver table.
func StaticKey(lat, lng float64) string {
	return fmt.Sprintf("%.5f,%.5f", lat, lng)
}

func (r *StaticResolver) SetAddress(lat, lng float64, address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addresses[StaticKey(lat, lng)] = address
}

func (r *StaticResolver) SetShouldFail(fail bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shouldFail = fail
	r.failureError = err
}

func (r *StaticResolver) Calls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.calls
}

func (r *StaticResolver) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if r.shouldFail {
		if r.failureError != nil {
			return "", r.failureError
		}
		return "", ErrGeocodeFailed
	}

	address, ok := r.addresses[StaticKey(lat, lng)]
	if !ok {
		return "", ErrNoResult
	}
	return address, nil
}
