package config

import (
	"errors"
	"fmt"
)

func (c *Config) Validate() error {
	var errs []error

	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	if !validPort(c.API.Port) {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, errors.New("api.rate_limit must not be negative"))
	}
	if c.API.RateLimit > 0 && c.API.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("api.rate_limit_window must be positive when rate limiting is on"))
	}
	if c.API.LocationRateLimit < 0 {
		errs = append(errs, errors.New("api.location_rate_limit must not be negative"))
	}
	if c.API.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("api.max_body_bytes must be positive"))
	}
	if c.API.MaxLimit < c.API.DefaultLimit {
		errs = append(errs, errors.New("api.max_limit must be >= default_limit"))
	}

	if c.Artifacts.ModelPath == "" {
		errs = append(errs, errors.New("artifacts.model_path is required"))
	}
	if c.Artifacts.ScalerPath == "" {
		errs = append(errs, errors.New("artifacts.scaler_path is required"))
	}
	if c.Artifacts.CentroidsPath == "" {
		errs = append(errs, errors.New("artifacts.centroids_path is required"))
	}

	switch c.Geocoder.Provider {
	case "nominatim":
		if c.Geocoder.BaseURL == "" {
			errs = append(errs, errors.New("geocoder.base_url is required for nominatim"))
		}
		if c.Geocoder.UserAgent == "" {
			errs = append(errs, errors.New("geocoder.user_agent is required for nominatim"))
		}
	case "static":
	default:
		errs = append(errs, errors.New("geocoder.provider must be one of: nominatim, static"))
	}
	if c.Geocoder.Timeout <= 0 {
		errs = append(errs, errors.New("geocoder.timeout must be positive"))
	}
	if c.Geocoder.CircuitBreaker.MaxFailures <= 0 {
		errs = append(errs, errors.New("geocoder.circuit_breaker.max_failures must be positive"))
	}
	if c.Geocoder.Cache.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required when geocoder.cache is enabled"))
		}
		if c.Geocoder.Cache.TTL <= 0 {
			errs = append(errs, errors.New("geocoder.cache.ttl must be positive"))
		}
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required"))
		}
		if !validPort(c.Database.Port) {
			errs = append(errs, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required"))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("database.max_connections must be positive"))
		}
	}

	if c.Prometheus.Enabled {
		if !validPort(c.Prometheus.Port) {
			errs = append(errs, errors.New("prometheus.port must be between 1 and 65535"))
		}
		if c.Prometheus.Port == c.API.Port {
			errs = append(errs, errors.New("prometheus.port must differ from api.port"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}
