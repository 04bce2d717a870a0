package config

import (
	"fmt"
	"strings"
)

type Hooks struct {
	Enabled           bool              `mapstructure:"enabled"`
	Modules           Modules           `mapstructure:"modules"`
	HostExecutionPlan HookExecutionPlan `mapstructure:"host_execution_plan"`
	// DefaultAccountExecutionPlan can be replaced by the account-specific hook execution plan
	DefaultAccountExecutionPlan HookExecutionPlan `mapstructure:"default_account_execution_plan"`
}

// Modules mapping provides module specific configuration, format: map[vendor_name]map[module_name]interface{}
// actual configuration parsing performed by modules
type Modules map[string]map[string]interface{}

type HookExecutionPlan struct {
	Endpoints map[string]struct {
		Stages map[string]struct {
			Groups []HookExecutionGroup `mapstructure:"groups" json:"groups"`
		} `mapstructure:"stages" json:"stages"`
	} `mapstructure:"endpoints" json:"endpoints"`
}

type HookExecutionGroup struct {
	// Timeout specified in milliseconds
	Timeout      int                 `mapstructure:"timeout" json:"timeout"`
	HookSequence []HookExecutionStep `mapstructure:"hook_sequence" json:"hook_sequence"`
}

type HookExecutionStep struct {
	// ModuleCode is a composite value in the format: {vendor_name}.{module_name}
	ModuleCode string `mapstructure:"module_code" json:"module_code"`
	// HookImplCode is an arbitrary value, used to identify hook when sending metrics, storing debug information, etc.
	HookImplCode string `mapstructure:"hook_impl_code" json:"hook_impl_code"`
}

func (h Hooks) validate() []error {
	var errs []error
	errs = append(errs, h.HostExecutionPlan.validate("hooks.host_execution_plan")...)
	errs = append(errs, h.DefaultAccountExecutionPlan.validate("hooks.default_account_execution_plan")...)
	return errs
}

func (p HookExecutionPlan) validate(path string) []error {
	var errs []error
	for endpoint, endpointCfg := range p.Endpoints {
		for stage, stageCfg := range endpointCfg.Stages {
			for i, group := range stageCfg.Groups {
				groupPath := fmt.Sprintf("%s.endpoints.%s.stages.%s.groups[%d]", path, endpoint, stage, i)
				if group.Timeout <= 0 {
					errs = append(errs, fmt.Errorf("%s.timeout must be positive", groupPath))
				}
				for _, step := range group.HookSequence {
					if vendor, module, ok := strings.Cut(step.ModuleCode, "."); !ok || vendor == "" || module == "" {
						errs = append(errs, fmt.Errorf("%s: module_code %q is not in the vendor.module format", groupPath, step.ModuleCode))
					}
				}
			}
		}
	}
	return errs
}
