package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diagsvc/internal/version"
)

func lookupMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(lookupMap(nil))
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "learn-ruby", cfg.AppName)
	assert.Equal(t, version.Resolve(""), cfg.AppVersion)
	assert.Equal(t, "*", cfg.CORSOrigin)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, "none", cfg.Tracing.Exporter)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRate)
	assert.Equal(t, int64(DefaultMaxBodyBytes), cfg.MaxBodyBytes)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
	assert.Equal(t, "0.0.0.0:4567", cfg.Addr())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(lookupMap(map[string]string{
		"PORT":                        "8080",
		"HOST":                        "127.0.0.1",
		"RACK_ENV":                    "Production",
		"APP_VERSION":                 "9.9.9",
		"CORS_ORIGIN":                 "https://example.com",
		"METRICS_ENABLED":             "false",
		"OTEL_TRACES_EXPORTER":        "otlp-http",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4318",
		"SHUTDOWN_TIMEOUT":            "12",
	}))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "9.9.9", cfg.AppVersion)
	assert.Equal(t, "https://example.com", cfg.CORSOrigin)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, "collector:4318", cfg.Tracing.Endpoint)
	assert.Equal(t, 12*time.Second, cfg.ShutdownTimeout)
}

func TestAppEnvWinsOverRackEnv(t *testing.T) {
	cfg, err := LoadFrom(lookupMap(map[string]string{"APP_ENV": "test", "RACK_ENV": "production"}))
	require.NoError(t, err)
	assert.True(t, cfg.IsTest())
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"non-numeric port":   {"PORT": "http"},
		"port out of range":  {"PORT": "70000"},
		"unknown env":        {"APP_ENV": "staging"},
		"unknown exporter":   {"OTEL_TRACES_EXPORTER": "zipkin"},
		"otlp sans endpoint": {"OTEL_TRACES_EXPORTER": "otlp-grpc"},
		"sample rate":        {"OTEL_TRACES_SAMPLE_RATE": "1.5"},
		"bad duration":       {"SHUTDOWN_TIMEOUT": "soon"},
		"zero burst":         {"RATE_LIMIT_BURST": "0"},
		"bad proxy":          {"TRUSTED_PROXIES": "10.0.0.1,gateway"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(lookupMap(env))
			assert.Error(t, err)
		})
	}
}

func TestRateLimitBurstOnlyMattersWhenEnabled(t *testing.T) {
	cfg, err := LoadFrom(lookupMap(map[string]string{"RATE_LIMIT_RPS": "0", "RATE_LIMIT_BURST": "0"}))
	require.NoError(t, err)
	assert.Zero(t, cfg.RateLimitRPS)

	_, err = LoadFrom(lookupMap(map[string]string{"RATE_LIMIT_RPS": "5", "RATE_LIMIT_BURST": "0"}))
	assert.ErrorContains(t, err, "RATE_LIMIT_BURST")
}

func TestTrustedProxies(t *testing.T) {
	cfg, err := LoadFrom(lookupMap(nil))
	require.NoError(t, err)
	assert.Empty(t, cfg.TrustedProxies)

	cfg, err = LoadFrom(lookupMap(map[string]string{"TRUSTED_PROXIES": " 10.0.0.1, 192.168.0.0/16 ,"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "192.168.0.0/16"}, cfg.TrustedProxies)
}

func TestIdentity(t *testing.T) {
	cfg, err := LoadFrom(lookupMap(map[string]string{"APP_NAME": "diag", "APP_VERSION": "1.2.3"}))
	require.NoError(t, err)

	boot := time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("X", 7200))
	id := cfg.Identity(boot)
	assert.Equal(t, "diag", id.Name)
	assert.Equal(t, "1.2.3", id.Version)
	assert.Equal(t, "development", id.Environment)
	assert.Equal(t, time.UTC, id.BootTimestamp.Location())
}
