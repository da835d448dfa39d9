package bom

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"sync"
)

// Row is one parsed line together with the engine's decision and the
// user's changes. Match is never modified after creation.
type Row struct {
	Line             Line
	Match            MatchResult
	State            RowState
	IsManuallyMapped bool
	MappedProductID  string
	Accepted         bool
}

// NewRow wraps a matched line in its initial state.
func NewRow(line Line, match MatchResult) Row {
	return Row{Line: line, Match: match, State: initialState(match.Confidence)}
}

// Index is the row's stable identity.
func (r Row) Index() int { return r.Line.RowIndex }

// Confidence is the effective tier: high after a manual mapping, none after
// a rejection, otherwise the engine's tier.
func (r Row) Confidence() Confidence {
	switch {
	case r.IsManuallyMapped:
		return ConfidenceHigh
	case r.State == StateUnmatched:
		return ConfidenceNone
	}
	return r.Match.Confidence
}

// ProductID is the effective product, or "" when the row has none.
func (r Row) ProductID() string {
	switch {
	case r.IsManuallyMapped:
		return r.MappedProductID
	case r.State == StateUnmatched:
		return ""
	}
	return r.Match.ProductID
}

func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RowIndex         int         `json:"rowIndex"`
		Line             Line        `json:"line"`
		Match            MatchResult `json:"match"`
		State            RowState    `json:"state"`
		Confidence       Confidence  `json:"confidence"`
		ProductID        string      `json:"matchedProductId,omitempty"`
		IsManuallyMapped bool        `json:"isManuallyMapped"`
		Accepted         bool        `json:"accepted"`
	}{
		RowIndex:         r.Index(),
		Line:             r.Line,
		Match:            r.Match,
		State:            r.State,
		Confidence:       r.Confidence(),
		ProductID:        r.ProductID(),
		IsManuallyMapped: r.IsManuallyMapped,
		Accepted:         r.Accepted,
	})
}

// Transition records a state change, for logging and metrics.
type Transition struct {
	Row    int
	Action string
	From   RowState
	To     RowState
}

// UploadResult is the outcome of one upload. Rows live in an arena
// addressed by row index and change only through the transition methods.
// Concurrent transitions are serialized; the last write wins.
type UploadResult struct {
	FileName      string
	TotalRows     int
	ParseErrors   []string
	HeaderWarning string

	mu    sync.RWMutex
	rows  []Row
	index map[int]int
}

// Aggregate builds an UploadResult. Rows and errors are ordered by row index.
func Aggregate(fileName string, totalRows int, rows []Row, errs []RowError) *UploadResult {
	rows = slices.Clone(rows)
	slices.SortStableFunc(rows, func(a, b Row) int { return a.Index() - b.Index() })
	errs = slices.Clone(errs)
	slices.SortStableFunc(errs, func(a, b RowError) int { return a.Row - b.Row })

	res := &UploadResult{
		FileName:    fileName,
		TotalRows:   totalRows,
		ParseErrors: make([]string, len(errs)),
		rows:        rows,
		index:       make(map[int]int, len(rows)),
	}
	for i, e := range errs {
		res.ParseErrors[i] = e.String()
	}
	for i, r := range rows {
		res.index[r.Index()] = i
	}
	return res
}

// Rows returns a copy of all rows, deleted ones included.
func (u *UploadResult) Rows() []Row {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return slices.Clone(u.rows)
}

// Row returns a copy of one row.
func (u *UploadResult) Row(rowIndex int) (Row, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	i, ok := u.index[rowIndex]
	if !ok {
		return Row{}, false
	}
	return u.rows[i], true
}

// Len is the number of rows in the arena.
func (u *UploadResult) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.rows)
}

// transition runs fn on a live row under the write lock.
func (u *UploadResult) transition(rowIndex int, action string, fn func(r *Row) error) (Transition, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	i, ok := u.index[rowIndex]
	if !ok {
		return Transition{}, fmt.Errorf("%w: %d", ErrRowNotFound, rowIndex)
	}
	r := &u.rows[i]
	if r.State == StateDeleted {
		return Transition{}, fmt.Errorf("%w: %d", ErrRowDeleted, rowIndex)
	}
	t := Transition{Row: rowIndex, Action: action, From: r.State}
	if err := fn(r); err != nil {
		return Transition{}, err
	}
	t.To = r.State
	return t, nil
}

// ManuallyMap assigns a product chosen by the user. It is allowed from every
// live state, including manual_mapped, and the row reports high confidence
// from then on.
func (u *UploadResult) ManuallyMap(rowIndex int, productID string) (Transition, error) {
	if productID == "" {
		return Transition{}, ErrEmptyProductID
	}
	return u.transition(rowIndex, "map", func(r *Row) error {
		r.State = StateManualMapped
		r.IsManuallyMapped = true
		r.MappedProductID = productID
		r.Accepted = true
		return nil
	})
}

// AcceptRow confirms the row's current product.
func (u *UploadResult) AcceptRow(rowIndex int) (Transition, error) {
	return u.transition(rowIndex, "accept", func(r *Row) error {
		if r.ProductID() == "" {
			return fmt.Errorf("%w: %d", ErrNotMatched, rowIndex)
		}
		r.Accepted = true
		return nil
	})
}

// RejectRow discards the engine's match and leaves the row unmatched. A
// manual mapping cannot be rejected back.
func (u *UploadResult) RejectRow(rowIndex int) (Transition, error) {
	return u.transition(rowIndex, "reject", func(r *Row) error {
		switch {
		case r.State == StateManualMapped:
			return fmt.Errorf("%w: row %d is manually mapped", ErrInvalidTransition, rowIndex)
		case !r.State.IsAuto():
			return fmt.Errorf("%w: %d", ErrNotMatched, rowIndex)
		}
		r.State = StateUnmatched
		r.Accepted = false
		return nil
	})
}

// DeleteRow removes the row from further consideration. It is terminal.
func (u *UploadResult) DeleteRow(rowIndex int) (Transition, error) {
	return u.transition(rowIndex, "delete", func(r *Row) error {
		r.State = StateDeleted
		r.Accepted = false
		return nil
	})
}

// AcceptAll accepts every live auto row whose tier is at least floor and
// returns the transitions made. Rows already accepted are skipped.
func (u *UploadResult) AcceptAll(floor Confidence) []Transition {
	if floor < ConfidenceLow {
		floor = ConfidenceLow
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	var out []Transition
	for i := range u.rows {
		r := &u.rows[i]
		if !r.State.IsAuto() || r.Accepted || r.Confidence() < floor {
			continue
		}
		r.Accepted = true
		out = append(out, Transition{Row: r.Index(), Action: "accept", From: r.State, To: r.State})
	}
	return out
}

// TierCounts holds per-tier row counts.
type TierCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
	None   int `json:"none"`
}

// Stats summarizes an upload.
type Stats struct {
	TotalRows      int        `json:"totalRows"`
	Rows           int        `json:"rows"`
	Tiers          TierCounts `json:"tiers"`
	Accepted       int        `json:"accepted"`
	ManuallyMapped int        `json:"manuallyMapped"`
	Deleted        int        `json:"deleted"`
	ParseErrors    int        `json:"parseErrors"`
}

// Stats counts live rows by effective confidence.
func (u *UploadResult) Stats() Stats {
	u.mu.RLock()
	defer u.mu.RUnlock()

	s := Stats{TotalRows: u.TotalRows, ParseErrors: len(u.ParseErrors)}
	for _, r := range u.rows {
		if r.State == StateDeleted {
			s.Deleted++
			continue
		}
		s.Rows++
		if r.Accepted {
			s.Accepted++
		}
		if r.IsManuallyMapped {
			s.ManuallyMapped++
		}
		switch r.Confidence() {
		case ConfidenceHigh:
			s.Tiers.High++
		case ConfidenceMedium:
			s.Tiers.Medium++
		case ConfidenceLow:
			s.Tiers.Low++
		default:
			s.Tiers.None++
		}
	}
	return s
}

// CartItems exports accepted and manually mapped rows in row order.
func (u *UploadResult) CartItems() []CartItem {
	u.mu.RLock()
	defer u.mu.RUnlock()

	items := make([]CartItem, 0, len(u.rows))
	for _, r := range u.rows {
		if r.State == StateDeleted || !r.Accepted || r.ProductID() == "" {
			continue
		}
		items = append(items, CartItem{
			RowIndex:  r.Index(),
			ProductID: r.ProductID(),
			Quantity:  r.Line.Quantity,
			Unit:      r.Line.Unit,
			Specs:     specs(r.Line),
		})
	}
	return items
}

func specs(l Line) map[string]string {
	s := make(map[string]string, 5)
	if l.Family.Known() {
		s[ColFamily] = string(l.Family)
	}
	if l.Grade != "" {
		s[ColGrade] = l.Grade
	}
	if l.DimensionText != "" {
		s[ColDimensions] = l.DimensionText
	}
	if l.LengthM != nil {
		s[ColLengthM] = l.LengthM.String()
	}
	if l.Finish != "" {
		s[ColFinish] = l.Finish
	}
	return s
}

func (u *UploadResult) MarshalJSON() ([]byte, error) {
	stats := u.Stats()
	rows := u.Rows()
	return json.Marshal(struct {
		FileName      string   `json:"fileName"`
		TotalRows     int      `json:"totalRows"`
		HeaderWarning string   `json:"headerWarning,omitempty"`
		Rows          []Row    `json:"rows"`
		ParseErrors   []string `json:"parseErrors"`
		Stats         Stats    `json:"stats"`
	}{
		FileName:      u.FileName,
		TotalRows:     u.TotalRows,
		HeaderWarning: u.HeaderWarning,
		Rows:          rows,
		ParseErrors:   u.ParseErrors,
		Stats:         stats,
	})
}

// ParseRowIndex parses a row index from a path segment.
func ParseRowIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrRowNotFound, s)
	}
	return n, nil
}
