package observability

import (
	"cmp"
	"os"
	"strconv"
	"strings"

	"github.com/smallbiznis/pqio/internal/config"
)

// Config holds the logging and OpenTelemetry settings.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	// OTel is on only when an OTLP endpoint is configured.
	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

// LoadConfig derives observability settings from the application config and
// the standard LOG_* and OTEL_* variables.
func LoadConfig(cfg config.Config) Config {
	endpoint := env("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	return Config{
		ServiceName:          cmp.Or(strings.TrimSpace(cfg.AppName), "pqio"),
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             strings.ToLower(env("LOG_LEVEL", "info")),
		LogFormat:            strings.ToLower(env("LOG_FORMAT", defaultLogFormat(cfg.Environment))),
		OtelEnabled:          endpoint != "",
		OtelExporterEndpoint: endpoint,
		OtelExporterProtocol: strings.ToLower(env("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
		OtelSamplingRatio:    samplerArg(env("OTEL_TRACES_SAMPLER_ARG", "")),
	}
}

// Verbose reports whether logs carry caller and stack details.
func (c Config) Verbose() bool {
	return c.LogLevel == "debug" || isDevEnv(c.Environment)
}

func isDevEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func defaultLogFormat(env string) string {
	if isDevEnv(env) {
		return "console"
	}
	return "json"
}

// samplerArg parses the trace ratio; unset or invalid traces everything.
func samplerArg(raw string) float64 {
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 1
	}
	return ratio
}

func env(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return strings.TrimSpace(def)
}
