package hookstage

import (
	"errors"
	"strings"
)

// MutationType describes the kind of change a Mutation makes to the payload.
type MutationType int

const (
	MutationAdd MutationType = iota
	MutationUpdate
	MutationDelete
)

func (t MutationType) String() string {
	switch t {
	case MutationAdd:
		return "add"
	case MutationUpdate:
		return "update"
	case MutationDelete:
		return "delete"
	}
	return "unknown"
}

// MutationFunc is a function that applies a change to the payload
// and returns the changed payload.
type MutationFunc[T any] func(T) (T, error)

// Mutation is a single change requested by a hook.
// The host applies it after the hook has returned successfully.
type Mutation[T any] struct {
	mutType MutationType
	key     []string
	fn      MutationFunc[T]
}

// Key returns the path of the payload field affected by the mutation.
func (m Mutation[T]) Key() string {
	return strings.Join(m.key, ".")
}

func (m Mutation[T]) Type() MutationType {
	return m.mutType
}

// Apply returns the payload with the mutation applied.
func (m Mutation[T]) Apply(p T) (T, error) {
	if m.fn == nil {
		return p, errors.New("mutation function not provided")
	}
	return m.fn(p)
}

// ChangeSet collects the mutations returned by a hook.
type ChangeSet[T any] struct {
	mutations []Mutation[T]
}

func (c *ChangeSet[T]) Mutations() []Mutation[T] {
	return c.mutations
}

// AddMutation registers a mutation affecting the payload field identified by key.
func (c *ChangeSet[T]) AddMutation(fn MutationFunc[T], t MutationType, key ...string) *ChangeSet[T] {
	c.mutations = append(c.mutations, Mutation[T]{mutType: t, key: key, fn: fn})
	return c
}
