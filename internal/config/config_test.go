package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary", cfg.FeedBaseURL)
	assert.Equal(t, "https://earthquake.usgs.gov/fdsnws/event/1/query", cfg.QueryBaseURL)
	assert.Equal(t, 38.9637, cfg.CenterLat)
	assert.Equal(t, 35.2433, cfg.CenterLon)
	assert.Equal(t, 1500.0, cfg.RadiusKm)
	assert.Equal(t, "24h", cfg.FeedWindow)
	assert.Equal(t, 0.0, cfg.MinMagnitude)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 4.5, cfg.UrgentThreshold)
	assert.Equal(t, "en", cfg.ViewerLanguage)
	assert.False(t, cfg.ConstrainedAudio)
	assert.False(t, cfg.PresenceEnabled)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
	assert.False(t, cfg.RealtimeEnabled)
	assert.False(t, cfg.ExportEnabled)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("FEED_BASE_URL", "http://localhost:9100/summary")
	t.Setenv("QUERY_BASE_URL", "http://localhost:9100/query")
	t.Setenv("CENTER_LAT", "35.6762")
	t.Setenv("CENTER_LON", "139.6503")
	t.Setenv("RADIUS_KM", "800")
	t.Setenv("FEED_WINDOW", "7d")
	t.Setenv("MIN_MAGNITUDE", "2.5")
	t.Setenv("POLL_INTERVAL", "30s")
	t.Setenv("URGENT_THRESHOLD", "5.0")
	t.Setenv("VIEWER_LANGUAGE", "ja")
	t.Setenv("CONSTRAINED_AUDIO", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("HEARTBEAT_INTERVAL", "1m")
	t.Setenv("REALTIME_URL", "wss://ops.example.com/broadcast")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_EXPORT_TOPIC", "quakes")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 35.6762, cfg.CenterLat)
	assert.Equal(t, 139.6503, cfg.CenterLon)
	assert.Equal(t, 800.0, cfg.RadiusKm)
	assert.Equal(t, "7d", cfg.FeedWindow)
	assert.Equal(t, 2.5, cfg.MinMagnitude)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 5.0, cfg.UrgentThreshold)
	assert.Equal(t, "ja", cfg.ViewerLanguage)
	assert.True(t, cfg.ConstrainedAudio)
	assert.True(t, cfg.PresenceEnabled)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, time.Minute, cfg.HeartbeatInterval)
	assert.True(t, cfg.RealtimeEnabled)
	assert.True(t, cfg.ExportEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "quakes", cfg.KafkaExportTopic)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_ConstrainedAudioAcceptsBoolSpellings(t *testing.T) {
	for _, v := range []string{"1", "TRUE", "True"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("CONSTRAINED_AUDIO", v)
			cfg, err := Load()
			require.NoError(t, err)
			assert.True(t, cfg.ConstrainedAudio)
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad window", "FEED_WINDOW", "48h"},
		{"bad poll interval", "POLL_INTERVAL", "soon"},
		{"negative radius", "RADIUS_KM", "-1"},
		{"latitude out of range", "CENTER_LAT", "95"},
		{"realtime URL not websocket", "REALTIME_URL", "https://ops.example.com"},
		{"unparseable constrained flag", "CONSTRAINED_AUDIO", "yes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
