// Package config loads service settings from the environment once at startup.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"diagsvc/internal/models"
	"diagsvc/internal/version"
)

const (
	envPort            = "PORT"
	envHost            = "HOST"
	envAppEnv          = "APP_ENV"
	envRackEnv         = "RACK_ENV"
	envAppName         = "APP_NAME"
	envAppVersion      = "APP_VERSION"
	envCORSOrigin      = "CORS_ORIGIN"
	envLogLevel        = "LOG_LEVEL"
	envMetricsEnabled  = "METRICS_ENABLED"
	envTracesExporter  = "OTEL_TRACES_EXPORTER"
	envOTLPEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOTLPInsecure    = "OTEL_EXPORTER_OTLP_INSECURE"
	envTraceSampleRate = "OTEL_TRACES_SAMPLE_RATE"
	envRateLimitRPS    = "RATE_LIMIT_RPS"
	envRateLimitBurst  = "RATE_LIMIT_BURST"
	envMaxBodyBytes    = "MAX_BODY_BYTES"
	envShutdownTimeout = "SHUTDOWN_TIMEOUT"
	envTrustedProxies  = "TRUSTED_PROXIES"
)

// Defaults applied when a variable is unset.
const (
	DefaultPort            = 4567
	DefaultHost            = "0.0.0.0"
	DefaultAppName         = "learn-ruby"
	DefaultCORSOrigin      = "*"
	DefaultRateLimitRPS    = 50
	DefaultRateLimitBurst  = 100
	DefaultMaxBodyBytes    = 1 << 20
	DefaultShutdownTimeout = 5 * time.Second
)

// Tracing configures the optional span exporter.
type Tracing struct {
	Exporter   string  `validate:"oneof=none stdout otlp-grpc otlp-http"`
	Endpoint   string  `validate:"required_if=Exporter otlp-grpc,required_if=Exporter otlp-http"`
	Insecure   bool
	SampleRate float64 `validate:"gte=0,lte=1"`
}

// Config is immutable after Load returns.
type Config struct {
	Host            string `validate:"required"`
	Port            int    `validate:"min=1,max=65535"`
	Environment     string `validate:"oneof=development production test"`
	AppName         string `validate:"required"`
	AppVersion      string `validate:"required"`
	CORSOrigin      string `validate:"required"`
	LogLevel        string `validate:"omitempty,oneof=debug info warn error"`
	MetricsEnabled  bool
	Tracing         Tracing
	RateLimitRPS    float64       `validate:"gte=0"`
	RateLimitBurst  int           `validate:"gte=0"`
	MaxBodyBytes    int64         `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`

	// TrustedProxies may set X-Forwarded-For. Empty means the peer address
	// is always the client IP.
	TrustedProxies []string `validate:"dive,ip|cidr"`
}

var validate = validator.New()

// Load reads the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads settings through lookup, which has the signature of os.LookupEnv.
func LoadFrom(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	env := get(envAppEnv)
	if env == "" {
		env = get(envRackEnv)
	}
	if env == "" {
		env = models.EnvDevelopment
	}

	cfg := &Config{
		Host:        orDefault(get(envHost), DefaultHost),
		Environment: strings.ToLower(env),
		AppName:     orDefault(get(envAppName), DefaultAppName),
		AppVersion:  version.Resolve(get(envAppVersion)),
		CORSOrigin:  orDefault(get(envCORSOrigin), DefaultCORSOrigin),
		LogLevel:    strings.ToLower(get(envLogLevel)),
		Tracing: Tracing{
			Exporter: strings.ToLower(orDefault(get(envTracesExporter), "none")),
			Endpoint: get(envOTLPEndpoint),
			Insecure: envBool(get(envOTLPInsecure), false),
		},
		TrustedProxies: envList(get(envTrustedProxies)),
	}
	cfg.MetricsEnabled = envBool(get(envMetricsEnabled), true)

	var err error
	if cfg.Port, err = envInt(get(envPort), DefaultPort); err != nil {
		return nil, fmt.Errorf("%s: %w", envPort, err)
	}
	if cfg.RateLimitBurst, err = envInt(get(envRateLimitBurst), DefaultRateLimitBurst); err != nil {
		return nil, fmt.Errorf("%s: %w", envRateLimitBurst, err)
	}
	if cfg.RateLimitRPS, err = envFloat(get(envRateLimitRPS), DefaultRateLimitRPS); err != nil {
		return nil, fmt.Errorf("%s: %w", envRateLimitRPS, err)
	}
	if cfg.Tracing.SampleRate, err = envFloat(get(envTraceSampleRate), 1.0); err != nil {
		return nil, fmt.Errorf("%s: %w", envTraceSampleRate, err)
	}
	maxBody, err := envInt(get(envMaxBodyBytes), DefaultMaxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", envMaxBodyBytes, err)
	}
	cfg.MaxBodyBytes = int64(maxBody)
	if cfg.ShutdownTimeout, err = envDuration(get(envShutdownTimeout), DefaultShutdownTimeout); err != nil {
		return nil, fmt.Errorf("%s: %w", envShutdownTimeout, err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst < 1 {
		return nil, fmt.Errorf("invalid configuration: %s must be at least 1 when %s is set", envRateLimitBurst, envRateLimitRPS)
	}
	return cfg, nil
}

// Addr is the listen address for http.Server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IsTest reports whether request protections and pre-request hooks are off.
func (c *Config) IsTest() bool { return c.Environment == models.EnvTest }

// IsProduction reports whether internal error details are hidden.
func (c *Config) IsProduction() bool { return c.Environment == models.EnvProduction }

// Identity builds the process-wide AppIdentity.
func (c *Config) Identity(boot time.Time) models.AppIdentity {
	return models.AppIdentity{
		Name:          c.AppName,
		Version:       c.AppVersion,
		Environment:   c.Environment,
		BootTimestamp: boot.UTC(),
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// envBool falls back to def on empty or unparsable input.
// envList splits a comma separated value, dropping blanks.
func envList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return parsed
}

func envInt(val string, def int) (int, error) {
	if val == "" {
		return def, nil
	}
	return strconv.Atoi(val)
}

func envFloat(val string, def float64) (float64, error) {
	if val == "" {
		return def, nil
	}
	return strconv.ParseFloat(val, 64)
}

// envDuration accepts Go durations ("10s") or a bare number of seconds.
func envDuration(val string, def time.Duration) (time.Duration, error) {
	if val == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(val)
}
