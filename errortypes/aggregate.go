package errortypes

import (
	"fmt"
	"strings"
)

// AggregateErrors collects the problems found in one pass, such as every invalid setting of a
// configuration, so they can be reported together.
type AggregateErrors struct {
	Message string
	Errors  []error
}

func NewAggregateErrors(msg string, errs []error) AggregateErrors {
	return AggregateErrors{
		Message: msg,
		Errors:  errs,
	}
}

// Error lists the collected errors one per line, numbered from 1. It is empty when nothing was collected.
func (e AggregateErrors) Error() string {
	if len(e.Errors) == 0 {
		return ""
	}

	var sb strings.Builder
	if len(e.Errors) == 1 {
		fmt.Fprintf(&sb, "%s (1 error):\n", e.Message)
	} else {
		fmt.Fprintf(&sb, "%s (%d errors):\n", e.Message, len(e.Errors))
	}
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d: %v\n", i+1, err)
	}
	return sb.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e AggregateErrors) Unwrap() []error {
	return e.Errors
}
