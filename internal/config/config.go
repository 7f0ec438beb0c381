package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment   string
	Server        ServerConfig
	Database      DatabaseConfig
	Registry      RegistryConfig
	Runs          RunConfig
	SMTP          SMTPConfig
	Captcha       CaptchaConfig
	Browser       BrowserConfig
	Notify        NotifyConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Path      string
	LogTiming bool
}

// RegistryConfig points at an external broker catalog. An empty path uses
// the catalog built into the binary.
type RegistryConfig struct {
	Path string
}

type RunConfig struct {
	StreamIdleTimeout time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	SSLPort  int
	User     string
	Password string
}

// Configured reports whether outgoing mail can be authenticated.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.User != "" && c.Password != ""
}

type CaptchaConfig struct {
	APIKey      string
	PollTimeout time.Duration
}

type BrowserConfig struct {
	ChromePath string
	Headless   bool
	Timeout    time.Duration
}

type NotifyConfig struct {
	Endpoint string
	Token    string
	Secret   string
	Source   string
}

// Enabled reports whether run notifications should be published.
func (c NotifyConfig) Enabled() bool {
	return c.Endpoint != "" && c.Token != "" && c.Secret != ""
}

type ObservabilityConfig struct {
	Enabled           bool
	OTLPEndpoint      string
	OTLPTraceHeaders  map[string]string
	OTLPMetricHeaders map[string]string
	ServiceName       string
	ServiceVer        string
	SamplingRatio     float64
	MetricsConsole    bool
}

func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("incognish_env", "")
	v.SetDefault("app_env", "")
	v.SetDefault("go_env", "")
	v.SetDefault("incognish_port", 5000)
	v.SetDefault("incognish_db_path", "db/tracker")
	v.SetDefault("incognish_db_timing", false)
	v.SetDefault("incognish_registry_path", "")
	v.SetDefault("incognish_stream_idle_timeout", "120s")
	v.SetDefault("smtp_host", "smtp.gmail.com")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_ssl_port", 465)
	v.SetDefault("smtp_user", "")
	v.SetDefault("smtp_pass", "")
	v.SetDefault("capsolver_api_key", "")
	v.SetDefault("capsolver_poll_timeout", "120s")
	v.SetDefault("incognish_chrome_path", "")
	v.SetDefault("incognish_browser_headless", true)
	v.SetDefault("incognish_browser_timeout", "30s")
	v.SetDefault("incognish_notify_endpoint", "")
	v.SetDefault("incognish_notify_token", "")
	v.SetDefault("incognish_notify_secret", "")
	v.SetDefault("incognish_notify_source", "incognish/runner")
	v.SetDefault("incognish_otel_enabled", false)
	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.SetDefault("otel_exporter_otlp_headers", "")
	v.SetDefault("otel_exporter_otlp_traces_headers", "")
	v.SetDefault("otel_exporter_otlp_metrics_headers", "")
	v.SetDefault("otel_service_name", "incognish")
	v.SetDefault("incognish_service_name", "incognish")
	v.SetDefault("incognish_version", "dev")
	v.SetDefault("otel_service_version", "")
	v.SetDefault("incognish_otel_sampling_ratio", 1.0)
	v.SetDefault("incognish_otel_metrics_console", false)

	env := resolveEnvironment(v)
	port := v.GetInt("incognish_port")
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid INCOGNISH_PORT: %d", port)
	}
	smtpPort := v.GetInt("smtp_port")
	if smtpPort <= 0 || smtpPort > 65535 {
		return Config{}, fmt.Errorf("invalid SMTP_PORT: %d", smtpPort)
	}
	smtpSSLPort := v.GetInt("smtp_ssl_port")
	if smtpSSLPort <= 0 || smtpSSLPort > 65535 {
		return Config{}, fmt.Errorf("invalid SMTP_SSL_PORT: %d", smtpSSLPort)
	}

	samplingRatio := v.GetFloat64("incognish_otel_sampling_ratio")
	if samplingRatio < 0 {
		samplingRatio = 0
	}
	if samplingRatio > 1 {
		samplingRatio = 1
	}

	serviceName := strings.TrimSpace(v.GetString("otel_service_name"))
	if serviceName == "" {
		serviceName = strings.TrimSpace(v.GetString("incognish_service_name"))
	}
	if serviceName == "" {
		serviceName = "incognish"
	}

	serviceVersion := strings.TrimSpace(v.GetString("incognish_version"))
	if serviceVersion == "" {
		serviceVersion = strings.TrimSpace(v.GetString("otel_service_version"))
	}
	if serviceVersion == "" {
		serviceVersion = "dev"
	}

	otlpEndpoint := strings.TrimSpace(v.GetString("otel_exporter_otlp_endpoint"))
	otlpCommonHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_headers"))
	otlpTraceHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_traces_headers"))
	otlpMetricHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_metrics_headers"))
	metricsConsole := v.GetBool("incognish_otel_metrics_console")
	otelEnabled := v.GetBool("incognish_otel_enabled") || otlpEndpoint != "" || metricsConsole
	traceHeaders := mergeHeaderMaps(otlpCommonHeaders, otlpTraceHeaders)
	metricHeaders := mergeHeaderMaps(otlpCommonHeaders, otlpMetricHeaders)

	cfg := Config{
		Environment: env,
		Server:      ServerConfig{Port: port},
		Database: DatabaseConfig{
			Path:      strings.TrimSpace(v.GetString("incognish_db_path")),
			LogTiming: v.GetBool("incognish_db_timing"),
		},
		Registry: RegistryConfig{
			Path: strings.TrimSpace(v.GetString("incognish_registry_path")),
		},
		Runs: RunConfig{
			StreamIdleTimeout: clampDuration(v.GetDuration("incognish_stream_idle_timeout"), time.Second, 120*time.Second),
		},
		SMTP: SMTPConfig{
			Host:     strings.TrimSpace(v.GetString("smtp_host")),
			Port:     smtpPort,
			SSLPort:  smtpSSLPort,
			User:     strings.TrimSpace(v.GetString("smtp_user")),
			Password: v.GetString("smtp_pass"),
		},
		Captcha: CaptchaConfig{
			APIKey:      strings.TrimSpace(v.GetString("capsolver_api_key")),
			PollTimeout: clampDuration(v.GetDuration("capsolver_poll_timeout"), 10*time.Second, 120*time.Second),
		},
		Browser: BrowserConfig{
			ChromePath: strings.TrimSpace(v.GetString("incognish_chrome_path")),
			Headless:   v.GetBool("incognish_browser_headless"),
			Timeout:    clampDuration(v.GetDuration("incognish_browser_timeout"), 5*time.Second, 30*time.Second),
		},
		Notify: NotifyConfig{
			Endpoint: strings.TrimSpace(v.GetString("incognish_notify_endpoint")),
			Token:    strings.TrimSpace(v.GetString("incognish_notify_token")),
			Secret:   strings.TrimSpace(v.GetString("incognish_notify_secret")),
			Source:   strings.TrimSpace(v.GetString("incognish_notify_source")),
		},
		Observability: ObservabilityConfig{
			Enabled:           otelEnabled,
			OTLPEndpoint:      otlpEndpoint,
			OTLPTraceHeaders:  traceHeaders,
			OTLPMetricHeaders: metricHeaders,
			ServiceName:       serviceName,
			ServiceVer:        serviceVersion,
			SamplingRatio:     samplingRatio,
			MetricsConsole:    metricsConsole,
		},
	}

	if strings.TrimSpace(cfg.Database.Path) == "" {
		cfg.Database.Path = "db/tracker"
	}

	return cfg, nil
}

// clampDuration raises values below floor to floor and replaces unset values
// with fallback.
func clampDuration(value, floor, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	if value < floor {
		return floor
	}
	return value
}

func parseOTLPHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pair := strings.SplitN(part, "=", 2)
		if len(pair) != 2 {
			continue
		}
		key := strings.TrimSpace(pair[0])
		value := strings.TrimSpace(pair[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mergeHeaderMaps(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func (c Config) IsLocalDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "", "local", "dev", "development", "test":
		return true
	default:
		return false
	}
}

func resolveEnvironment(v *viper.Viper) string {
	for _, key := range []string{"incognish_env", "app_env", "go_env"} {
		value := strings.TrimSpace(v.GetString(key))
		if value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}
