package rtd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/asaskevich/govalidator"
	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/go-playground/validator/v10"
	"github.com/oxxion/rtd-server/errortypes"
	"github.com/oxxion/rtd-server/util/jsonutil"
	"github.com/samber/lo"
)

const (
	defaultTimeoutMs          = 1000
	defaultRegistrySizeBytes  = 1024 * 1024
	defaultRegistryTTLSeconds = 86400

	backendMemory = "memory"
	backendRedis  = "redis"
)

var validate = validator.New()

// Config is the module configuration. Account-level configs are merged over the host one.
type Config struct {
	Domain       string         `json:"domain"`
	Contexts     []string       `json:"contexts"`
	Threshold    *float64       `json:"threshold,omitempty"`
	SamplingRate *float64       `json:"sampling_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	Bidders      []string       `json:"bidders"`
	TimeoutMs    int            `json:"timeout_ms" validate:"gte=0"`
	Force        bool           `json:"force"`
	Registry     RegistryConfig `json:"registry"`
}

type RegistryConfig struct {
	Backend    string      `json:"backend" validate:"oneof=memory redis"`
	SizeBytes  int         `json:"size_bytes" validate:"gte=0"`
	TTLSeconds int         `json:"ttl_seconds" validate:"gte=0"`
	Redis      RedisConfig `json:"redis"`
}

type RedisConfig struct {
	Addr      string `json:"addr"`
	DB        int    `json:"db" validate:"gte=0"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	TLS       bool   `json:"tls"`
	TimeoutMs int    `json:"timeout_ms" validate:"gte=0"`
}

// FilterPolicy is the view of the configuration used by the filtering and tracking operations.
// Threshold and SamplingRate are either both set, enabling rate filtering, or both nil.
type FilterPolicy struct {
	Domain       string
	Contexts     map[string]struct{}
	Threshold    *float64
	SamplingRate *float64
	Bidders      map[string]struct{}
}

// RateFilteringActive reports whether bids are scored and filtered at request time.
func (p FilterPolicy) RateFilteringActive() bool {
	return p.Threshold != nil && p.SamplingRate != nil
}

// HasContext reports whether videoContext is one of the tracked video contexts.
func (p FilterPolicy) HasContext(videoContext string) bool {
	_, ok := p.Contexts[videoContext]
	return ok
}

// exempts reports whether a bidder escapes filtering because an allow-list is set and does not name it.
func (p FilterPolicy) exempts(bidder string) bool {
	if len(p.Bidders) == 0 {
		return false
	}
	_, ok := p.Bidders[bidder]
	return !ok
}

func newConfig(data json.RawMessage) (Config, error) {
	cfg := Config{
		TimeoutMs: defaultTimeoutMs,
		Registry: RegistryConfig{
			Backend:    backendMemory,
			SizeBytes:  defaultRegistrySizeBytes,
			TTLSeconds: defaultRegistryTTLSeconds,
		},
	}

	if len(data) > 0 {
		if err := jsonutil.UnmarshalValid(data, &cfg); err != nil {
			return cfg, &errortypes.BadInput{Message: fmt.Sprintf("failed to parse config: %s", err)}
		}
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// mergeAccountConfig applies the account-level module config as a JSON merge patch over the host config.
func mergeAccountConfig(hostConfig, accountConfig json.RawMessage) (Config, error) {
	if len(hostConfig) == 0 {
		hostConfig = json.RawMessage(`{}`)
	}

	merged, err := jsonpatch.MergePatch(hostConfig, accountConfig)
	if err != nil {
		return Config{}, &errortypes.BadInput{Message: fmt.Sprintf("failed to merge account config: %s", err)}
	}
	return newConfig(merged)
}

func (c Config) validate() error {
	if c.Domain == "" {
		return &errortypes.BadInput{Message: "domain is required"}
	}

	if !govalidator.IsDNSName(c.Domain + ".oxxion.io") {
		return &errortypes.BadInput{Message: fmt.Sprintf("domain %q does not form a valid host name", c.Domain)}
	}

	if len(c.Contexts) == 0 && (c.Threshold == nil || c.SamplingRate == nil) {
		return &errortypes.BadInput{Message: "either contexts or both threshold and sampling_rate must be configured"}
	}

	if err := validate.Struct(c); err != nil {
		return &errortypes.BadInput{Message: fmt.Sprintf("invalid config: %s", err)}
	}

	if c.Registry.Backend == backendRedis && c.Registry.Redis.Addr == "" {
		return &errortypes.BadInput{Message: "registry.redis.addr is required for the redis backend"}
	}
	return nil
}

// policy builds the filter policy. A lone threshold or sampling rate disables rate filtering
// and is reported as a warning.
func (c Config) policy() (FilterPolicy, []string) {
	var warnings []string

	policy := FilterPolicy{
		Domain:   c.Domain,
		Contexts: toSet(c.Contexts),
		Bidders:  toSet(c.Bidders),
	}

	switch {
	case c.Threshold != nil && c.SamplingRate != nil:
		policy.Threshold = c.Threshold
		policy.SamplingRate = c.SamplingRate
	case c.Threshold != nil || c.SamplingRate != nil:
		warnings = append(warnings, "threshold and sampling_rate must be configured together, rate filtering disabled")
	}

	return policy, warnings
}

func (c Config) timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return defaultTimeoutMs * time.Millisecond
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func toSet(values []string) map[string]struct{} {
	return lo.SliceToMap(values, func(value string) (string, struct{}) {
		return value, struct{}{}
	})
}
