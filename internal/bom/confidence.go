package bom

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Confidence is the match certainty tier. The zero value is ConfidenceNone
// and tiers compare with the usual integer operators.
type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
)

var confidenceNames = [...]string{"none", "low", "medium", "high"}

func (c Confidence) String() string {
	if c < ConfidenceNone || c > ConfidenceHigh {
		return fmt.Sprintf("confidence(%d)", int(c))
	}
	return confidenceNames[c]
}

// ParseConfidence parses a tier name, case-insensitively.
func ParseConfidence(s string) (Confidence, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range confidenceNames {
		if s == name {
			return Confidence(i), nil
		}
	}
	return ConfidenceNone, fmt.Errorf("invalid confidence %q (use none, low, medium or high)", s)
}

func (c Confidence) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *Confidence) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseConfidence(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// RowState is the lifecycle state of a row in an upload session.
type RowState string

const (
	StateAutoHigh     RowState = "auto_high"
	StateAutoMedium   RowState = "auto_medium"
	StateAutoLow      RowState = "auto_low"
	StateUnmatched    RowState = "unmatched"
	StateManualMapped RowState = "manual_mapped"
	StateDeleted      RowState = "deleted"
)

// IsAuto reports whether the state still reflects the engine's decision.
func (s RowState) IsAuto() bool {
	return s == StateAutoHigh || s == StateAutoMedium || s == StateAutoLow
}

// initialState maps a matcher tier to the state a new row starts in.
func initialState(c Confidence) RowState {
	switch c {
	case ConfidenceHigh:
		return StateAutoHigh
	case ConfidenceMedium:
		return StateAutoMedium
	case ConfidenceLow:
		return StateAutoLow
	default:
		return StateUnmatched
	}
}

// Breakdown holds the scoring components behind a MatchResult.
type Breakdown struct {
	Dimension float64 `json:"dimension"`
	Grade     float64 `json:"grade"`
	Coverage  float64 `json:"coverage"`
}

// MatchResult is the matcher's verdict for one line.
type MatchResult struct {
	Confidence Confidence `json:"confidence"`
	ProductID  string     `json:"matchedProductId,omitempty"`
	Reason     string     `json:"reason"`
	Score      float64    `json:"score"`
	Breakdown  Breakdown  `json:"breakdown"`
}

// Matched reports whether a product was assigned.
func (m MatchResult) Matched() bool { return m.Confidence != ConfidenceNone && m.ProductID != "" }
