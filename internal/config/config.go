package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Feed settings.
	FeedBaseURL  string  // aggregated summary feed base URL
	QueryBaseURL string  // parametrized fdsnws query endpoint
	CenterLat    float64 // region-of-interest center
	CenterLon    float64
	RadiusKm     float64
	FeedWindow   string // "24h", "7d", or "30d"
	MinMagnitude float64
	PollInterval time.Duration
	FeedTimeout  time.Duration

	// Alerting.
	UrgentThreshold  float64
	ViewerLanguage   string
	ConstrainedAudio bool // constrained-platform audio semantics (no replays, probe resume)

	// Presence store (feature-flagged via REDIS_ADDR).
	PresenceEnabled   bool
	RedisAddr         string
	HeartbeatInterval time.Duration

	// Realtime broadcast channel (feature-flagged via REALTIME_URL).
	RealtimeEnabled bool
	RealtimeURL     string

	// Kafka export of delta events and alerts (feature-flagged via KAFKA_BROKERS).
	ExportEnabled    bool
	KafkaBrokers     []string
	KafkaExportTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	pollInterval, err := envDuration("POLL_INTERVAL", 10*time.Second)
	if err != nil {
		return nil, err
	}
	feedTimeout, err := envDuration("FEED_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	heartbeatInterval, err := envDuration("HEARTBEAT_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	centerLat, err := envFloat("CENTER_LAT", 38.9637)
	if err != nil {
		return nil, err
	}
	centerLon, err := envFloat("CENTER_LON", 35.2433)
	if err != nil {
		return nil, err
	}
	radiusKm, err := envFloat("RADIUS_KM", 1500)
	if err != nil {
		return nil, err
	}
	minMag, err := envFloat("MIN_MAGNITUDE", 0)
	if err != nil {
		return nil, err
	}
	urgentThreshold, err := envFloat("URGENT_THRESHOLD", 4.5)
	if err != nil {
		return nil, err
	}

	constrainedAudio, err := envBool("CONSTRAINED_AUDIO", false)
	if err != nil {
		return nil, err
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	realtimeURL := os.Getenv("REALTIME_URL")
	kafkaBrokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))

	cfg := &Config{
		FeedBaseURL:  envOrDefault("FEED_BASE_URL", "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary"),
		QueryBaseURL: envOrDefault("QUERY_BASE_URL", "https://earthquake.usgs.gov/fdsnws/event/1/query"),
		CenterLat:    centerLat,
		CenterLon:    centerLon,
		RadiusKm:     radiusKm,
		FeedWindow:   envOrDefault("FEED_WINDOW", "24h"),
		MinMagnitude: minMag,
		PollInterval: pollInterval,
		FeedTimeout:  feedTimeout,

		UrgentThreshold:  urgentThreshold,
		ViewerLanguage:   envOrDefault("VIEWER_LANGUAGE", "en"),
		ConstrainedAudio: constrainedAudio,

		PresenceEnabled:   redisAddr != "",
		RedisAddr:         redisAddr,
		HeartbeatInterval: heartbeatInterval,

		RealtimeEnabled: realtimeURL != "",
		RealtimeURL:     realtimeURL,

		ExportEnabled:    len(kafkaBrokers) > 0,
		KafkaBrokers:     kafkaBrokers,
		KafkaExportTopic: envOrDefault("KAFKA_EXPORT_TOPIC", "quake-alert-events"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.FeedWindow {
	case "24h", "7d", "30d":
	default:
		return fmt.Errorf("invalid FEED_WINDOW %q: must be 24h, 7d, or 30d", c.FeedWindow)
	}
	if c.RadiusKm <= 0 {
		return errors.New("RADIUS_KM must be positive")
	}
	if c.PollInterval <= 0 {
		return errors.New("POLL_INTERVAL must be positive")
	}
	if c.HeartbeatInterval <= 0 {
		return errors.New("HEARTBEAT_INTERVAL must be positive")
	}
	if c.CenterLat < -90 || c.CenterLat > 90 {
		return errors.New("CENTER_LAT must be within [-90, 90]")
	}
	if c.CenterLon < -180 || c.CenterLon > 180 {
		return errors.New("CENTER_LON must be within [-180, 180]")
	}
	if c.RealtimeEnabled && !strings.HasPrefix(c.RealtimeURL, "ws") {
		return fmt.Errorf("REALTIME_URL must be a ws:// or wss:// URL, got %q", c.RealtimeURL)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}

func envBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
