package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "DEMAND"

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/demand-predictor")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "demand-predictor")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "15s")

	v.SetDefault("api.port", 5000)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "60s")
	v.SetDefault("api.idle_timeout", "60s")
	v.SetDefault("api.rate_limit", 120)
	v.SetDefault("api.rate_limit_window", "1m")
	v.SetDefault("api.location_rate_limit", 30)
	v.SetDefault("api.max_body_bytes", 1<<20)
	v.SetDefault("api.swagger", true)
	v.SetDefault("api.default_limit", 50)
	v.SetDefault("api.max_limit", 500)
	v.SetDefault("api.cors.allowed_origins", []string{"*"})
	v.SetDefault("api.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("api.cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "X-Trace-ID"})
	v.SetDefault("api.cors.exposed_headers", []string{"X-Trace-ID"})

	v.SetDefault("artifacts.model_path", "artifacts/model.json")
	v.SetDefault("artifacts.scaler_path", "artifacts/scaler.json")
	v.SetDefault("artifacts.centroids_path", "artifacts/cluster_centroids.csv")

	v.SetDefault("geocoder.provider", "nominatim")
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "geoapi")
	v.SetDefault("geocoder.timeout", "20s")
	v.SetDefault("geocoder.cache.enabled", false)
	v.SetDefault("geocoder.cache.ttl", "24h")
	v.SetDefault("geocoder.cache.prefix", "geocode:reverse:")
	v.SetDefault("geocoder.circuit_breaker.max_failures", 5)
	v.SetDefault("geocoder.circuit_breaker.timeout", "30s")
	v.SetDefault("geocoder.circuit_breaker.half_open_max", 1)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", "5s")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "demand")
	v.SetDefault("database.user", "demand")
	v.SetDefault("database.password", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.migration_timeout", "60s")

	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.port", 9090)

	v.SetDefault("events.buffer_size", 256)
}
