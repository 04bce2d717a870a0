package hookexecution

import (
	"time"

	"github.com/oxxion/rtd-server/hooks/hookanalytics"
)

// Status tells how a hook invocation ended.
type Status string

const (
	StatusSuccess          Status = "success"
	StatusTimeout          Status = "timeout"           // the group timeout elapsed first
	StatusFailure          Status = "failure"           // the hook returned a FailureError
	StatusExecutionFailure Status = "execution_failure" // any other error, a panic or a failed mutation
)

// Action tells what a successful hook did to the stage payload.
type Action string

const (
	ActionUpdate Action = "update"
	ActionReject Action = "reject"
	ActionNone   Action = "no_action"
)

// Entity names the part of the RTD payload a stage hands to its hooks.
type Entity string

const (
	EntityAuctionRequest  Entity = "ad_units"      // POST /rtd/v1/request
	EntityAuctionResponse Entity = "bids_received" // POST /rtd/v1/auction_end
)

// Messages groups hook messages by module code, then by hook implementation code.
type Messages map[string]map[string][]string

// ModulesOutcome is written under ext.prebid.modules of the RTD responses.
// Trace is only filled for debug calls.
type ModulesOutcome struct {
	Errors   Messages      `json:"errors,omitempty"`
	Warnings Messages      `json:"warnings,omitempty"`
	Trace    *TraceOutcome `json:"trace,omitempty"`
}

// TraceOutcome spans every stage run for one call. Its time is the sum of the stage times.
type TraceOutcome struct {
	ExecutionTime
	Stages []Stage `json:"stages"`
}

// Stage gathers the outcomes of one stage. Its time is the longest of its outcomes.
type Stage struct {
	ExecutionTime
	Stage    string         `json:"stage"`
	Outcomes []StageOutcome `json:"outcomes"`
}

// StageOutcome is the result of running the groups of a stage in order.
// Its time is the sum of the group times.
type StageOutcome struct {
	ExecutionTime
	Entity Entity         `json:"entity"`
	Groups []GroupOutcome `json:"groups"`
	Stage  string         `json:"-"`
}

// GroupOutcome holds the hooks of a group, which run concurrently.
// Its time is the longest of its hooks.
type GroupOutcome struct {
	ExecutionTime
	InvocationResults []HookOutcome `json:"invocation_results"`
}

// HookOutcome is the result of one hook invocation. Its time excludes applying the mutations.
type HookOutcome struct {
	ExecutionTime
	AnalyticsTags hookanalytics.Analytics `json:"analytics_tags"`
	HookID        HookID                  `json:"hook_id"`
	Status        Status                  `json:"status"`
	Action        Action                  `json:"action"`
	Message       string                  `json:"message"`
	DebugMessages []string                `json:"debug_messages,omitempty"`
	Errors        []string                `json:"-"`
	Warnings      []string                `json:"-"`
}

// HookID is a hook_sequence entry of the execution plan.
type HookID struct {
	ModuleCode   string `json:"module_code"`
	HookImplCode string `json:"hook_impl_code"`
}

type ExecutionTime struct {
	ExecutionTimeMillis time.Duration `json:"execution_time_millis,omitempty"`
}
