package simulator

import (
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// Pattern decides how the simulated provider answers a single request.
// A zero status means answer normally.
type Pattern interface {
	Apply() (status int, delay time.Duration)
	Name() string
}

var (
	PatternHealthy Pattern = &HealthyPattern{}
	PatternDown    Pattern = &DownPattern{}
)

func ParsePattern(name string) Pattern {
	switch name {
	case "down":
		return PatternDown
	case "flaky":
		return NewFlakyPattern(0.5)
	case "slow":
		return &SlowPattern{Delay: 2 * time.Second}
	case "rate_limited":
		return &RateLimitedPattern{}
	default:
		return PatternHealthy
	}
}

// HealthyPattern - every request succeeds
type HealthyPattern struct{}

func (p *HealthyPattern) Apply() (int, time.Duration) {
	return 0, 0
}

func (p *HealthyPattern) Name() string {
	return "healthy"
}

// DownPattern - provider unavailable
type DownPattern struct{}

func (p *DownPattern) Apply() (int, time.Duration) {
	return http.StatusServiceUnavailable, 0
}

func (p *DownPattern) Name() string {
	return "down"
}

// FlakyPattern - fails a fraction of requests
type FlakyPattern struct {
	FailureRate float64

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewFlakyPattern(rate float64) *FlakyPattern {
	return &FlakyPattern{
		FailureRate: rate,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *FlakyPattern) Apply() (int, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rnd.Float64() < p.FailureRate {
		return http.StatusBadGateway, 0
	}
	return 0, 0
}

func (p *FlakyPattern) Name() string {
	return "flaky"
}

// SlowPattern - answers correctly after a delay, long enough to trip client timeouts
type SlowPattern struct {
	Delay time.Duration
}

func (p *SlowPattern) Apply() (int, time.Duration) {
	return 0, p.Delay
}

func (p *SlowPattern) Name() string {
	return "slow"
}

// RateLimitedPattern - Nominatim's answer to clients ignoring the usage policy
type RateLimitedPattern struct{}

func (p *RateLimitedPattern) Apply() (int, time.Duration) {
	return http.StatusTooManyRequests, 0
}

func (p *RateLimitedPattern) Name() string {
	return "rate_limited"
}

// Outage overrides the active pattern until it expires.
type Outage struct {
	Status    int
	StartTime time.Time
	Duration  time.Duration
}

func (o *Outage) active(now time.Time) bool {
	return o != nil && now.Sub(o.StartTime) < o.Duration
}
