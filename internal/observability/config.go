package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/smallbiznis/costline/internal/config"
)

const envPrefix = "COSTLINE_"

// Config holds observability configuration derived from the app config and
// environment. COSTLINE_-prefixed variables win over the generic ones.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	out := Config{
		ServiceName: firstNonEmpty(lookup("SERVICE_NAME"), cfg.AppName, "costline"),
		Environment: firstNonEmpty(lookup("DEPLOYMENT_ENV"), cfg.Environment),
		Version:     firstNonEmpty(lookup("SERVICE_VERSION"), cfg.AppVersion),
		LogLevel:    strings.ToLower(firstNonEmpty(lookup("LOG_LEVEL"), "info")),
	}

	dev := isDevEnv(out.Environment)

	// Console logs and full sampling are easier to read locally.
	defaultFormat, defaultRatio := "json", 0.1
	if dev {
		defaultFormat, defaultRatio = "console", 1.0
	}
	out.LogFormat = strings.ToLower(firstNonEmpty(lookup("LOG_FORMAT"), defaultFormat))

	out.OtelExporterEndpoint = firstNonEmpty(lookup("OTEL_EXPORTER_OTLP_ENDPOINT"), cfg.OTLPEndpoint)
	out.OtelExporterProtocol = normalizeProtocol(firstNonEmpty(
		lookup("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL"),
		lookup("OTEL_EXPORTER_OTLP_PROTOCOL"),
	))
	out.OtelSamplingRatio = clampRatio(parseFloat(lookup("OTEL_SAMPLING_RATIO"), defaultRatio))
	out.OtelEnabled = parseBool(lookup("OTEL_ENABLED"), true) && out.OtelExporterEndpoint != ""

	return out
}

func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	return isDevEnv(c.Environment)
}

func isDevEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// lookup reads COSTLINE_<key>, then <key>.
func lookup(key string) string {
	if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(key))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// normalizeProtocol accepts the OTEL spellings and reduces them to grpc or http.
func normalizeProtocol(value string) string {
	switch strings.ToLower(value) {
	case "http", "http/protobuf", "http/json":
		return "http"
	default:
		return "grpc"
	}
}

func clampRatio(ratio float64) float64 {
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	default:
		return ratio
	}
}

func parseBool(value string, def bool) bool {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func parseFloat(value string, def float64) float64 {
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
