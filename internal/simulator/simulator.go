// Package simulator serves a stand-in for the Nominatim reverse geocoding
// API so the service can be run and load tested without the public
// provider. Failures can be switched on at runtime.
package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OldStager01/demand-predictor/internal/logger"
)

type Config struct {
	Port      int
	Synthetic bool
}

type Simulator struct {
	config     Config
	addresses  *AddressBook
	pattern    Pattern
	outage     *Outage
	requests   atomic.Int64
	mu         sync.RWMutex
	httpServer *http.Server
	now        func() time.Time
}

func New(cfg Config) *Simulator {
	if cfg.Port == 0 {
		cfg.Port = 9000
	}

	return &Simulator{
		config:    cfg,
		addresses: NewAddressBook(cfg.Synthetic),
		pattern:   PatternHealthy,
		now:       time.Now,
	}
}

func cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// Handler exposes the routes without binding a port.
func (s *Simulator) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", cors(s.healthHandler))
	mux.HandleFunc("/reverse", cors(s.reverseHandler))
	mux.HandleFunc("/addresses", cors(s.addressesHandler))
	mux.HandleFunc("/outage", cors(s.outageHandler))
	mux.HandleFunc("/pattern", cors(s.patternHandler))

	return mux
}

func (s *Simulator) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	logger.Infof("Geocoder simulator listening on %s", addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Simulator server error: %v", err)
		}
	}()

	return nil
}

func (s *Simulator) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Simulator) Addresses() *AddressBook {
	return s.addresses
}

func (s *Simulator) SetPattern(p Pattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pattern = p
}

func (s *Simulator) Pattern() Pattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pattern
}

// InjectOutage answers every request with status for the given duration.
func (s *Simulator) InjectOutage(status int, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outage = &Outage{Status: status, StartTime: s.now(), Duration: duration}
}

func (s *Simulator) Requests() int64 {
	return s.requests.Load()
}

// fault returns the status and delay to apply to the current request.
func (s *Simulator) fault() (int, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outage.active(s.now()) {
		return s.outage.Status, 0
	}
	s.outage = nil
	return s.pattern.Apply()
}

// HTTP Handlers

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Simulator) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "geocoder-simulator",
		"pattern":   s.Pattern().Name(),
		"requests":  s.Requests(),
		"addresses": s.addresses.Len(),
	})
}

// reverseHandler mimics GET /reverse?format=jsonv2&lat=..&lon=..
func (s *Simulator) reverseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.requests.Add(1)

	status, delay := s.fault()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}

	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLng != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": map[string]interface{}{"code": 400, "message": "Parameter 'lat' and 'lon' must be floats"},
		})
		return
	}

	name, ok := s.addresses.Lookup(lat, lng)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"error": "Unable to geocode"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lat":          strconv.FormatFloat(lat, 'f', 7, 64),
		"lon":          strconv.FormatFloat(lng, 'f', 7, 64),
		"display_name": name,
	})
}

type AddressRequest struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Name      string  `json:"display_name"`
}

func (s *Simulator) addressesHandler(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPost:
		if req.Name == "" {
			http.Error(w, "display_name required", http.StatusBadRequest)
			return
		}
		s.addresses.Set(req.Latitude, req.Longitude, req.Name)
		logger.Infof("Registered address for %.5f,%.5f", req.Latitude, req.Longitude)
		writeJSON(w, http.StatusCreated, req)
	case http.MethodDelete:
		if !s.addresses.Delete(req.Latitude, req.Longitude) {
			http.Error(w, "address not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "address deleted"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type OutageRequest struct {
	Status   int    `json:"status"`
	Duration string `json:"duration"`
}

func (s *Simulator) outageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req OutageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Status < 400 || req.Status > 599 {
		req.Status = http.StatusServiceUnavailable
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil || duration <= 0 {
		duration = time.Minute
	}

	s.InjectOutage(req.Status, duration)
	logger.Infof("Injected outage: status=%d, duration=%s", req.Status, duration)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "outage injected",
		"status":   req.Status,
		"duration": duration.String(),
	})
}

type PatternRequest struct {
	Pattern string `json:"pattern"` // "healthy", "down", "flaky", "slow", "rate_limited"
}

func (s *Simulator) patternHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	pattern := ParsePattern(req.Pattern)
	s.SetPattern(pattern)

	logger.Infof("Set pattern %s", pattern.Name())

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "pattern set",
		"pattern": pattern.Name(),
	})
}
