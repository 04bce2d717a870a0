package hookstage

import (
	"encoding/json"
	"sync"

	"github.com/oxxion/rtd-server/hooks/hookanalytics"
)

// HookResult represents the result of execution the concrete hook instance.
type HookResult[T any] struct {
	Reject        bool         // true value indicates rejection of the program execution at the specific stage
	Message       string       // holds arbitrary message added by hook
	ChangeSet     ChangeSet[T] // set of changes the module wants to apply to hook payload in case of successful execution
	Errors        []string
	Warnings      []string
	DebugMessages []string
	AnalyticsTags hookanalytics.Analytics
	ModuleContext *ModuleContext // holds values that the module wants to pass to itself at later stages
}

// ModuleInvocationContext holds data passed to the module hook during invocation.
type ModuleInvocationContext struct {
	// AccountID holds the account ID
	AccountID string
	// AccountConfig represents module config rewritten at the account-level.
	AccountConfig json.RawMessage
	// Endpoint represents the path of the current endpoint.
	Endpoint string
	// ModuleContext holds values that the module passes to itself from the previous stages.
	ModuleContext *ModuleContext
	// HookImplCode is the hook_impl_code for a module instance to differentiate between multiple hooks
	HookImplCode string
}

// ModuleContext holds arbitrary data passed between module hooks at different stages.
type ModuleContext struct {
	mu   sync.RWMutex
	data map[string]any
}

func NewModuleContext() *ModuleContext {
	return &ModuleContext{data: make(map[string]any)}
}

func (mc *ModuleContext) Get(key string) (any, bool) {
	if mc == nil {
		return nil, false
	}
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	val, ok := mc.data[key]
	return val, ok
}

func (mc *ModuleContext) Set(key string, value any) {
	if mc == nil {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.data == nil {
		mc.data = make(map[string]any)
	}
	mc.data[key] = value
}

// Merge copies every value of other into the context, overwriting existing keys.
func (mc *ModuleContext) Merge(other *ModuleContext) {
	if mc == nil || other == nil || mc == other {
		return
	}
	other.mu.RLock()
	defer other.mu.RUnlock()
	for k, v := range other.data {
		mc.Set(k, v)
	}
}
