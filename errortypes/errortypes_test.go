package errortypes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCode(t *testing.T) {
	assert.Equal(t, BadServerResponseErrorCode, ReadCode(&BadServerResponse{Message: "status 500"}))
	assert.Equal(t, ScoringSkippedWarningCode, ReadCode(&Warning{Message: "skipped", WarningCode: ScoringSkippedWarningCode}))
	assert.Equal(t, UnknownErrorCode, ReadCode(errors.New("plain")))
}

func TestSeverityPartitioning(t *testing.T) {
	fatal := &FailedToRequestBids{Message: "connection refused"}
	warning := &Warning{Message: "malformed vast", WarningCode: MalformedVASTWarningCode}
	plain := errors.New("plain")

	errs := []error{fatal, warning, plain}

	assert.True(t, ContainsFatalError(errs))
	assert.False(t, ContainsFatalError([]error{warning}))
	assert.Equal(t, []error{fatal, plain}, FatalOnly(errs))
	assert.Equal(t, []error{warning}, WarningOnly(errs))
	assert.True(t, IsWarning(warning))
	assert.False(t, IsWarning(plain))
}

func TestAggregateErrors(t *testing.T) {
	assert.Equal(t, "", NewAggregateErrors("config", nil).Error())

	single := NewAggregateErrors("validation failed", []error{errors.New("domain is required")})
	assert.Equal(t, "validation failed (1 error):\n  1: domain is required\n", single.Error())

	multi := NewAggregateErrors("validation failed", []error{errors.New("a"), errors.New("b")})
	assert.Equal(t, "validation failed (2 errors):\n  1: a\n  2: b\n", multi.Error())
}

func TestAggregateErrorsUnwrap(t *testing.T) {
	badInput := &BadInput{Message: "max_request_size must be positive, got 0"}
	err := error(NewAggregateErrors("validation errors", []error{errors.New("port is required"), badInput}))

	var target *BadInput
	require.True(t, errors.As(err, &target))
	assert.Same(t, badInput, target)
	assert.True(t, errors.Is(err, badInput))
}
