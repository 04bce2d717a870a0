package hooks

import (
	"github.com/oxxion/rtd-server/config"
	"github.com/oxxion/rtd-server/hooks/hookstage"
)

// EmptyPlanBuilder implements the ExecutionPlanBuilder interface
// and used as the stub when the hooks' functionality is disabled.
type EmptyPlanBuilder struct{}

func (e EmptyPlanBuilder) PlanForProcessedAuctionStage(endpoint string, account *config.Account) Plan[hookstage.ProcessedAuctionRequest] {
	return nil
}

func (e EmptyPlanBuilder) PlanForAuctionResponseStage(endpoint string, account *config.Account) Plan[hookstage.AuctionResponse] {
	return nil
}
