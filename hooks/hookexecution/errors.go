package hookexecution

import (
	"errors"
	"fmt"

	"github.com/oxxion/rtd-server/errortypes"
)

// TimeoutError indicates exceeding of the max execution time allotted for hook.
type TimeoutError struct{}

func (e TimeoutError) Error() string {
	return "Hook execution timeout"
}

func NewFailure(format string, a ...any) FailureError {
	return FailureError{Message: fmt.Sprintf(format, a...)}
}

// FailureError indicates expected error occurred during hook execution on the module-side.
// A moduleFailed metric will be sent in such case.
type FailureError struct {
	Message string
}

func (e FailureError) Error() string {
	return fmt.Sprintf("hook execution failed: %s", e.Message)
}

// RejectError indicates stage rejection requested by specific hook.
// Implements errortypes.Coder interface for compatibility only,
// so as not to be recognized as a fatal error
type RejectError struct {
	Hook   HookID
	Stage  string
	Reason string
}

func (e RejectError) Code() int {
	return errortypes.ModuleRejectionErrorCode
}

func (e RejectError) Severity() errortypes.Severity {
	return errortypes.SeverityWarning
}

func (e RejectError) Error() string {
	msg := fmt.Sprintf(
		`Module %s (hook: %s) rejected request at %s stage`,
		e.Hook.ModuleCode,
		e.Hook.HookImplCode,
		e.Stage,
	)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func FindFirstRejectOrNil(errs []error) *RejectError {
	for _, err := range errs {
		if rejectErr, ok := CastRejectErr(err); ok {
			return rejectErr
		}
	}
	return nil
}

func CastRejectErr(err error) (*RejectError, bool) {
	var rejectErr *RejectError
	ok := errors.As(err, &rejectErr)
	return rejectErr, ok
}
