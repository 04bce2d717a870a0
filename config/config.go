package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/oxxion/rtd-server/errortypes"
	"github.com/spf13/viper"
)

// Configuration specifies the static application config.
type Configuration struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	AdminPort  int    `mapstructure:"admin_port"`
	EnableGzip bool   `mapstructure:"enable_gzip"`
	// MaxRequestSize is the largest request body, in bytes, the RTD endpoints accept.
	MaxRequestSize int64 `mapstructure:"max_request_size"`
	// StatusResponse is the string which will reply to the /status endpoint.
	// An empty value makes the endpoint answer with 204 No Content.
	StatusResponse string `mapstructure:"status_response"`
	// ShutdownTimeout is the time allotted to in-flight requests on a graceful shutdown, in milliseconds.
	ShutdownTimeout int     `mapstructure:"shutdown_timeout_ms"`
	Metrics         Metrics `mapstructure:"metrics"`
	// RequestTimeoutHeaders name the headers a fronting queue uses to report how long a request waited.
	RequestTimeoutHeaders RequestTimeoutHeaders `mapstructure:"request_timeout_headers"`
	// Client configures the HTTP client modules use to reach external services.
	Client   HTTPClient         `mapstructure:"http_client"`
	Hooks    Hooks              `mapstructure:"hooks"`
	Accounts map[string]Account `mapstructure:"accounts"`
}

type RequestTimeoutHeaders struct {
	RequestTimeInQueue    string `mapstructure:"request_time_in_queue"`
	RequestTimeoutInQueue string `mapstructure:"request_timeout_in_queue"`
}

type HTTPClient struct {
	MaxConnsPerHost     int `mapstructure:"max_connections_per_host"`
	MaxIdleConns        int `mapstructure:"max_idle_connections"`
	MaxIdleConnsPerHost int `mapstructure:"max_idle_connections_per_host"`
	IdleConnTimeout     int `mapstructure:"idle_connection_timeout_seconds"`
	// DialTimeout is in milliseconds, DialKeepAlive in seconds.
	DialTimeout   int `mapstructure:"dial_timeout_ms"`
	DialKeepAlive int `mapstructure:"dial_keepalive_seconds"`
	// TLSHandshakeTimeout and ResponseHeaderTimeout are in seconds.
	TLSHandshakeTimeout   int `mapstructure:"tls_handshake_timeout_seconds"`
	ResponseHeaderTimeout int `mapstructure:"response_header_timeout_seconds"`
}

type Metrics struct {
	Prometheus PrometheusMetrics `mapstructure:"prometheus"`
}

type PrometheusMetrics struct {
	Port             int    `mapstructure:"port"`
	Namespace        string `mapstructure:"namespace"`
	Subsystem        string `mapstructure:"subsystem"`
	TimeoutMillisRaw int    `mapstructure:"timeout_ms"`
}

func (cfg *PrometheusMetrics) Timeout() time.Duration {
	return time.Duration(cfg.TimeoutMillisRaw) * time.Millisecond
}

func (cfg *Configuration) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(cfg.ShutdownTimeout) * time.Millisecond
}

// GetAccount returns the config of the given account, if one is defined.
func (cfg *Configuration) GetAccount(id string) (*Account, bool) {
	if id == "" {
		return nil, false
	}
	account, ok := cfg.Accounts[id]
	if !ok {
		return nil, false
	}
	if account.ID == "" {
		account.ID = id
	}
	return &account, true
}

func (cfg *Configuration) validate() []error {
	var errs []error
	if cfg.Port <= 0 {
		errs = append(errs, fmt.Errorf("port must be positive, got %d", cfg.Port))
	}
	if cfg.AdminPort <= 0 {
		errs = append(errs, fmt.Errorf("admin_port must be positive, got %d", cfg.AdminPort))
	}
	if cfg.Port == cfg.AdminPort {
		errs = append(errs, errors.New("port and admin_port must be different"))
	}
	if cfg.Metrics.Prometheus.Port != 0 && cfg.Metrics.Prometheus.Port == cfg.Port {
		errs = append(errs, errors.New("metrics.prometheus.port must be different from port"))
	}
	if cfg.Metrics.Prometheus.Port != 0 && cfg.Metrics.Prometheus.TimeoutMillisRaw <= 0 {
		errs = append(errs, errors.New("metrics.prometheus.timeout_ms must be positive"))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Errorf("max_request_size must be positive, got %d", cfg.MaxRequestSize))
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("shutdown_timeout_ms must not be negative"))
	}
	errs = append(errs, cfg.Hooks.validate()...)
	for id, account := range cfg.Accounts {
		if account.ID != "" && account.ID != id {
			errs = append(errs, fmt.Errorf("accounts.%s.id does not match its key: %s", id, account.ID))
		}
	}
	return errs
}

// New uses viper to get our server configurations.
func New(v *viper.Viper) (*Configuration, error) {
	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("viper failed to unmarshal app config: %v", err)
	}

	glog.Info("Logging the resolved configuration:")
	glog.Infof("host=%q port=%d admin_port=%d enable_gzip=%t prometheus_port=%d hooks_enabled=%t accounts=%d",
		c.Host, c.Port, c.AdminPort, c.EnableGzip, c.Metrics.Prometheus.Port, c.Hooks.Enabled, len(c.Accounts))

	if errs := c.validate(); len(errs) > 0 {
		return &c, errortypes.NewAggregateErrors("validation errors", errs)
	}
	return &c, nil
}

// SetupViper sets the default values of the application config, the config file lookup paths
// and the environment binding. The env prefix is "PBS", so PBS_HOOKS_ENABLED=true overrides hooks.enabled.
func SetupViper(v *viper.Viper, filename string) {
	if filename != "" {
		v.SetConfigName(filename)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/config")
	}

	v.SetDefault("host", "")
	v.SetDefault("port", 8000)
	v.SetDefault("admin_port", 6060)
	v.SetDefault("enable_gzip", false)
	v.SetDefault("max_request_size", 512*1024)
	v.SetDefault("status_response", "")
	v.SetDefault("shutdown_timeout_ms", 5000)
	v.SetDefault("request_timeout_headers.request_time_in_queue", "")
	v.SetDefault("request_timeout_headers.request_timeout_in_queue", "")
	v.SetDefault("http_client.max_connections_per_host", 0) // unlimited
	v.SetDefault("http_client.max_idle_connections", 400)
	v.SetDefault("http_client.max_idle_connections_per_host", 10)
	v.SetDefault("http_client.idle_connection_timeout_seconds", 60)
	v.SetDefault("http_client.dial_timeout_ms", 0)
	v.SetDefault("http_client.dial_keepalive_seconds", 0)
	v.SetDefault("http_client.tls_handshake_timeout_seconds", 0)
	v.SetDefault("http_client.response_header_timeout_seconds", 0)
	v.SetDefault("metrics.prometheus.port", 0)
	v.SetDefault("metrics.prometheus.namespace", "")
	v.SetDefault("metrics.prometheus.subsystem", "")
	v.SetDefault("metrics.prometheus.timeout_ms", 10000)
	v.SetDefault("hooks.enabled", false)

	v.SetEnvPrefix("PBS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filename == "" {
		return
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			glog.Warningf("Failed to read config file %s: %v", filename, err)
		} else {
			glog.Infof("No config file %s found, using defaults and environment", filename)
		}
	}
}
