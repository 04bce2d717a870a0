package hookstage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeSetAppliesMutationsInOrder(t *testing.T) {
	changeSet := ChangeSet[[]string]{}
	changeSet.AddMutation(func(p []string) ([]string, error) {
		return append(p, "first"), nil
	}, MutationAdd, "list", "first").AddMutation(func(p []string) ([]string, error) {
		return append(p, "second"), nil
	}, MutationAdd, "list", "second")

	var payload []string
	for _, mutation := range changeSet.Mutations() {
		var err error
		payload, err = mutation.Apply(payload)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"first", "second"}, payload)
	assert.Equal(t, "list.second", changeSet.Mutations()[1].Key())
}

func TestMutationApplyError(t *testing.T) {
	changeSet := ChangeSet[int]{}
	changeSet.AddMutation(func(p int) (int, error) {
		return 0, errors.New("boom")
	}, MutationDelete, "value")

	result, err := changeSet.Mutations()[0].Apply(42)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 0, result)

	_, err = Mutation[int]{}.Apply(1)
	assert.Error(t, err)
}

func TestMutationTypeString(t *testing.T) {
	assert.Equal(t, "add", MutationAdd.String())
	assert.Equal(t, "update", MutationUpdate.String())
	assert.Equal(t, "delete", MutationDelete.String())
	assert.Equal(t, "unknown", MutationType(42).String())
}

func TestModuleContext(t *testing.T) {
	var nilContext *ModuleContext
	nilContext.Set("ignored", 1)
	_, ok := nilContext.Get("ignored")
	assert.False(t, ok)

	moduleContext := NewModuleContext()
	moduleContext.Set("contexts", []string{"outstream"})

	other := &ModuleContext{}
	other.Set("transactions", 2)
	moduleContext.Merge(other)

	value, ok := moduleContext.Get("contexts")
	assert.True(t, ok)
	assert.Equal(t, []string{"outstream"}, value)

	value, ok = moduleContext.Get("transactions")
	assert.True(t, ok)
	assert.Equal(t, 2, value)
}
