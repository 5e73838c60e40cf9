package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/OldStager01/demand-predictor/internal/logger"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	DefaultUserAgent    = "geoapi"
	DefaultTimeout      = 20 * time.Second
)

// NominatimClient calls the OpenStreetMap Nominatim reverse endpoint.
type NominatimClient struct {
	client    *http.Client
	baseURL   string
	userAgent string
	language  string
}

type NominatimConfig struct {
	BaseURL   string
	UserAgent string
	Language  string
	Timeout   time.Duration
}

func NewNominatimClient(cfg NominatimConfig) *NominatimClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &NominatimClient{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		language:  cfg.Language,
	}
}

// nominatimResponse is the subset of the jsonv2 reverse payload we read.
// A point with no address comes back as 200 with only "error" set.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

func (c *NominatimClient) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	reqURL := fmt.Sprintf("%s/reverse?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrGeocodeFailed, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.language != "" {
		req.Header.Set("Accept-Language", c.language)
	}

	logger.WithLocation(lat, lng).Debugf("Reverse geocoding via %s", c.baseURL)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", ctx.Err()
		}
		if isTimeout(ctx, err) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrGeocodeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status code %d", ErrGeocodeFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response body: %v", ErrGeocodeFailed, err)
	}

	var payload nominatimResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if payload.Error != "" || payload.DisplayName == "" {
		return "", ErrNoResult
	}

	return payload.DisplayName, nil
}

func (c *NominatimClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
