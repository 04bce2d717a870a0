package rtd

import (
	"github.com/oxxion/rtd-server/util/jsonutil"
)

// InterestVerdict is the scoring service's opinion about one reported bid.
type InterestVerdict struct {
	ID         int  `json:"id"`
	Rate       Rate `json:"rate"`
	Suggestion bool `json:"suggestion,omitempty"`
}

// Rate is either a numeric interest rate or a boolean. A literal true always clears the
// threshold; false compares as 0.
type Rate struct {
	Value  float64
	Always bool
}

func (r *Rate) UnmarshalJSON(bytes []byte) error {
	var rateData interface{}
	if err := jsonutil.UnmarshalValid(bytes, &rateData); err != nil {
		return err
	}

	switch rateValue := rateData.(type) {
	case bool:
		r.Always = rateValue
		if rateValue {
			r.Value = 1
		}
	case float64:
		r.Value = rateValue
	}

	return nil
}

func (r Rate) MarshalJSON() ([]byte, error) {
	if r.Always {
		return []byte("true"), nil
	}
	return jsonutil.Marshal(r.Value)
}

// Exceeds reports whether the rate is above threshold.
func (r Rate) Exceeds(threshold float64) bool {
	return r.Always || r.Value > threshold
}
