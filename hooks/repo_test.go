package hooks

import (
	"context"
	"fmt"
	"testing"

	"github.com/oxxion/rtd-server/hooks/hookstage"
	"github.com/stretchr/testify/assert"
)

type fakeProcessedAuctionHook struct{ name string }

func (h fakeProcessedAuctionHook) HandleProcessedAuctionHook(_ context.Context, _ hookstage.ModuleInvocationContext, _ hookstage.ProcessedAuctionRequestPayload) (hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload], error) {
	return hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload]{}, nil
}

type fakeAllStagesHook struct{ fakeProcessedAuctionHook }

func (h fakeAllStagesHook) HandleAuctionResponseHook(_ context.Context, _ hookstage.ModuleInvocationContext, _ hookstage.AuctionResponsePayload) (hookstage.HookResult[hookstage.AuctionResponsePayload], error) {
	return hookstage.HookResult[hookstage.AuctionResponsePayload]{}, nil
}

func TestNewHookRepository(t *testing.T) {
	id := "foobar"
	testCases := map[string]struct {
		isFound      bool
		providedHook interface{}
		expectedHook interface{}
		expectedErr  error
		getHookFn    func(HookRepository) (interface{}, bool)
	}{
		"Added hook returns": {
			isFound:      true,
			providedHook: fakeProcessedAuctionHook{},
			expectedHook: fakeProcessedAuctionHook{},
			getHookFn: func(repo HookRepository) (interface{}, bool) {
				return repo.GetProcessedAuctionHook(id)
			},
		},
		"Hook implementing every stage is registered for auction response": {
			isFound:      true,
			providedHook: fakeAllStagesHook{},
			expectedHook: fakeAllStagesHook{},
			getHookFn: func(repo HookRepository) (interface{}, bool) {
				return repo.GetAuctionResponseHook(id)
			},
		},
		"Not found hook": {
			isFound:      false,
			providedHook: fakeProcessedAuctionHook{},
			expectedHook: hookstage.AuctionResponse(nil),
			getHookFn: func(repo HookRepository) (interface{}, bool) {
				return repo.GetAuctionResponseHook(id)
			},
		},
		"Fails to add type that does not implement any hook interface": {
			providedHook: struct{}{},
			expectedErr:  fmt.Errorf(`hook "%s" does not implement any supported hook interface`, id),
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			repo, err := NewHookRepository(map[string]interface{}{id: test.providedHook})
			assert.Equal(t, test.expectedErr, err)
			if err == nil {
				hook, found := test.getHookFn(repo)
				assert.Equal(t, test.isFound, found)
				assert.Equal(t, test.expectedHook, hook)
			}
		})
	}
}

func TestAddHookRejectsDuplicates(t *testing.T) {
	hooks, err := addHook(nil, 1, "foo")
	assert.NoError(t, err)

	_, err = addHook(hooks, 2, "foo")
	assert.EqualError(t, err, `hook with ID "foo" already exists`)
}
