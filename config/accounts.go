package config

import (
	"fmt"
	"strings"

	"github.com/oxxion/rtd-server/util/jsonutil"
)

// Account represents a publisher account configuration
type Account struct {
	ID       string       `mapstructure:"id" json:"id"`
	Disabled bool         `mapstructure:"disabled" json:"disabled"`
	Hooks    AccountHooks `mapstructure:"hooks" json:"hooks"`
}

// AccountHooks represents account-specific hooks configuration
type AccountHooks struct {
	Modules       AccountModules    `mapstructure:"modules" json:"modules"`
	ExecutionPlan HookExecutionPlan `mapstructure:"execution_plan" json:"execution_plan"`
}

// AccountModules mapping provides account-level module configuration
// format: map[vendor_name]map[module_name]interface{}
type AccountModules map[string]map[string]interface{}

// ModuleConfig returns the account-level module config.
// The id argument must be passed in the form "vendor.module_name",
// otherwise an error is returned.
func (m AccountModules) ModuleConfig(id string) ([]byte, error) {
	vendor, module, ok := strings.Cut(id, ".")
	if !ok {
		return nil, fmt.Errorf("ID must consist of vendor and module names separated by dot, got: %s", id)
	}

	cfg, ok := m[vendor][module]
	if !ok || cfg == nil {
		return nil, nil
	}
	return jsonutil.Marshal(cfg)
}
