package rtd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/oxxion/rtd-server/errortypes"
	"github.com/oxxion/rtd-server/logger"
	"github.com/oxxion/rtd-server/util/jsonutil"
)

const (
	interestsPath = "/analytics/bid_rate_interests"
	rejectedPath  = "/analytics/request_rejecteds"
)

type interestsRequest struct {
	GDPR     *string            `json:"gdpr"`
	Requests []BidRequestRecord `json:"requests"`
}

type rejectedReport struct {
	Bids []RejectedBid `json:"bids"`
	GDPR *string       `json:"gdpr"`
}

// scoringClient talks to the scoring service of an Oxxion domain.
type scoringClient struct {
	httpClient *http.Client
	host       func(domain string) string
	pending    sync.WaitGroup
}

func newScoringClient(httpClient *http.Client) *scoringClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &scoringClient{
		httpClient: httpClient,
		host:       oxxionHost,
	}
}

// fetchInterests posts the bid records and waits for the verdicts.
func (c *scoringClient) fetchInterests(ctx context.Context, domain string, gdpr *string, records []BidRequestRecord) ([]InterestVerdict, error) {
	body, err := jsonutil.Marshal(interestsRequest{GDPR: gdpr, Requests: records})
	if err != nil {
		return nil, &errortypes.FailedToMarshal{Message: err.Error()}
	}

	resp, err := c.post(ctx, c.host(domain)+interestsPath, body)
	if err != nil {
		return nil, &errortypes.FailedToRequestBids{Message: fmt.Sprintf("scoring request failed: %s", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errortypes.BadServerResponse{Message: fmt.Sprintf("failed to read scoring response: %s", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &errortypes.BadServerResponse{Message: fmt.Sprintf("unexpected scoring response status %d", resp.StatusCode)}
	}

	var verdicts []InterestVerdict
	if err := jsonutil.UnmarshalValid(respBody, &verdicts); err != nil {
		return nil, &errortypes.BadServerResponse{Message: fmt.Sprintf("failed to decode scoring response: %s", err)}
	}
	return verdicts, nil
}

// reportRejected sends the rejected bids in the background. The report outlives the hook
// context and its response is ignored.
func (c *scoringClient) reportRejected(ctx context.Context, domain string, gdpr *string, bids []RejectedBid, timeout time.Duration) {
	body, err := jsonutil.Marshal(rejectedReport{Bids: bids, GDPR: gdpr})
	if err != nil {
		logger.Warnf("oxxion.rtd: failed to marshal rejected bids: %v", err)
		return
	}

	endpoint := c.host(domain) + rejectedPath
	reportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		defer cancel()

		resp, err := c.post(reportCtx, endpoint, body)
		if err != nil {
			logger.Warnf("oxxion.rtd: rejected bids report failed: %v", err)
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
}

// wait blocks until the background reports are done.
func (c *scoringClient) wait() {
	c.pending.Wait()
}

func (c *scoringClient) post(ctx context.Context, endpoint string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	return c.httpClient.Do(req)
}
