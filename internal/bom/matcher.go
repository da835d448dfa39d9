package bom

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Matcher scores lines against a catalog. It is a pure function of its
// policy, vocabulary and arguments.
type Matcher struct {
	policy Policy
	vocab  *Vocabulary
}

// NewMatcher returns a Matcher. A nil vocabulary means the default one.
func NewMatcher(p Policy, v *Vocabulary) *Matcher {
	if v == nil {
		v = DefaultVocabulary()
	}
	return &Matcher{policy: p, vocab: v}
}

// Policy returns the matcher's scoring policy.
func (m *Matcher) Policy() Policy { return m.policy }

// candidate is a catalog product prepared for scoring.
type candidate struct {
	product  Product
	grade    string
	order    int
	coverage float64
}

// Catalog is a catalog snapshot indexed by family. Build it once per upload
// with NewCatalog and reuse it for every line.
type Catalog struct {
	byFamily map[Family][]candidate
	byID     map[string]Product
	size     int
}

// NewCatalog prepares products for matching. Product families and grades
// are folded through the vocabulary so both sides compare in canonical
// form. Products with an unknown family are kept for lookup by id only.
func NewCatalog(products []Product, v *Vocabulary) *Catalog {
	if v == nil {
		v = DefaultVocabulary()
	}
	c := &Catalog{
		byFamily: make(map[Family][]candidate),
		byID:     make(map[string]Product, len(products)),
		size:     len(products),
	}
	for i, p := range products {
		if _, dup := c.byID[p.ID]; !dup {
			c.byID[p.ID] = p
		}
		family := v.Family(string(p.Family))
		if !family.Known() {
			continue
		}
		c.byFamily[family] = append(c.byFamily[family], candidate{
			product:  p,
			grade:    v.NormalizeGrade(p.Grade),
			order:    i,
			coverage: coverage(family, p.Dimensions),
		})
	}
	return c
}

// Len is the number of products in the snapshot.
func (c *Catalog) Len() int { return c.size }

// FamilySize is the number of products in a family.
func (c *Catalog) FamilySize(f Family) int { return len(c.byFamily[f]) }

// Product looks up a product by id.
func (c *Catalog) Product(id string) (Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Index prepares a catalog using the matcher's vocabulary.
func (m *Matcher) Index(products []Product) *Catalog {
	return NewCatalog(products, m.vocab)
}

// Match scores line against every product of its family and returns the
// best candidate's tier. It never fails; missing evidence lowers the tier.
func (m *Matcher) Match(line Line, catalog []Product) MatchResult {
	return m.MatchIndexed(line, m.Index(catalog))
}

// scored is the evaluation of one candidate.
type scored struct {
	cand       *candidate
	breakdown  Breakdown
	composite  float64
	exactGrade bool
	reason     string
}

// MatchIndexed is Match against a prepared catalog.
func (m *Matcher) MatchIndexed(line Line, c *Catalog) MatchResult {
	if gate, ok := m.familyGate(line, c); !ok {
		return MatchResult{Confidence: ConfidenceNone, Reason: gate}
	}

	var best *scored
	for i := range c.byFamily[line.Family] {
		s := m.score(line, &c.byFamily[line.Family][i])
		if best == nil || better(s, *best) {
			best = &s
		}
	}

	tier := m.policy.Tier(best.composite)
	res := MatchResult{
		Confidence: tier,
		Score:      best.composite,
		Breakdown:  best.breakdown,
	}
	if tier == ConfidenceNone {
		res.Reason = fmt.Sprintf("best candidate %s too weak (score %.2f): %s",
			best.cand.product.ID, best.composite, best.reason)
		return res
	}
	res.ProductID = best.cand.product.ID
	res.Reason = best.reason
	return res
}

// Suggestion is one ranked candidate offered for manual mapping.
type Suggestion struct {
	Product    Product    `json:"product"`
	Score      float64    `json:"score"`
	Confidence Confidence `json:"confidence"`
	Reason     string     `json:"reason"`
}

// Suggest returns up to n candidates of the line's family ranked the way
// Match ranks them. Candidates below the low threshold are included so the
// user can still pick them.
func (m *Matcher) Suggest(line Line, c *Catalog, n int) []Suggestion {
	if _, ok := m.familyGate(line, c); !ok || n <= 0 {
		return nil
	}
	cands := c.byFamily[line.Family]
	all := make([]scored, len(cands))
	for i := range cands {
		all[i] = m.score(line, &cands[i])
	}
	slices.SortStableFunc(all, func(a, b scored) int {
		switch {
		case better(a, b):
			return -1
		case better(b, a):
			return 1
		}
		return 0
	})
	if len(all) > n {
		all = all[:n]
	}
	out := make([]Suggestion, len(all))
	for i, s := range all {
		out[i] = Suggestion{
			Product:    s.cand.product,
			Score:      s.composite,
			Confidence: m.policy.Tier(s.composite),
			Reason:     s.reason,
		}
	}
	return out
}

func (m *Matcher) familyGate(line Line, c *Catalog) (string, bool) {
	switch {
	case !line.Family.Known() && line.FamilyText != "":
		return fmt.Sprintf("unknown or empty family %q", line.FamilyText), false
	case !line.Family.Known():
		return "unknown or empty family", false
	case c == nil || c.FamilySize(line.Family) == 0:
		return fmt.Sprintf("unknown or empty family: catalog has no %s", line.Family), false
	}
	return "", true
}

// better reports whether a ranks above b: higher composite, then exact
// grade over partial, then earlier catalog position.
func better(a, b scored) bool {
	if d := a.composite - b.composite; math.Abs(d) > scoreEpsilon {
		return d > 0
	}
	if a.exactGrade != b.exactGrade {
		return a.exactGrade
	}
	return a.cand.order < b.cand.order
}

func (m *Matcher) score(line Line, c *candidate) scored {
	gradeScore, gradePhrase := scoreGrade(line.Grade, c.grade)
	dimScore, dimPhrase := m.scoreDimensions(line.Family, line.Dimensions, c.product.Dimensions)

	b := Breakdown{Dimension: dimScore, Grade: gradeScore, Coverage: c.coverage}
	reason := gradePhrase + ", " + dimPhrase
	if c.coverage < 1 {
		reason += ", candidate partially specified"
	}
	return scored{
		cand:       c,
		breakdown:  b,
		composite:  m.policy.composite(b),
		exactGrade: line.Grade != "" && line.Grade == c.grade,
		reason:     reason,
	}
}

// scoreGrade compares canonical grades. Either side missing earns partial
// credit, containment (S235 vs S235JR) earns the same.
func scoreGrade(line, cand string) (float64, string) {
	switch {
	case line == "" || cand == "":
		return 0.5, "family match only"
	case line == cand:
		return 1, "exact grade"
	case strings.Contains(line, cand) || strings.Contains(cand, line):
		return 0.5, "partial grade match"
	default:
		return 0, "grade mismatch"
	}
}

// scoreDimensions averages the relative error over the features both sides
// specify and maps it onto the policy bands.
func (m *Matcher) scoreDimensions(f Family, line, cand Dimensions) (float64, string) {
	const unavailable = "dimensions unavailable"

	layout := Layout(f)
	if f == FamilyPipes {
		ls, cs := pipeShape(line), pipeShape(cand)
		if ls == nil || cs == nil {
			return m.policy.NoEvidenceScore, unavailable
		}
		if ls[0] != cs[0] {
			return 0, "pipe shape differs"
		}
		layout = ls
	}

	var sum float64
	var n int
	for _, name := range layout {
		a, okA := line.Value(name)
		b, okB := cand.Value(name)
		if !okA || !okB {
			continue
		}
		sum += relativeError(a, b)
		n++
	}
	if n == 0 {
		return m.policy.NoEvidenceScore, unavailable
	}

	meanErr := sum / float64(n)
	band := m.policy.bandFor(meanErr)
	if band == nil {
		return 0, fmt.Sprintf("dimensions differ by more than %g%%", m.policy.Bands[len(m.policy.Bands)-1].MaxError*100)
	}
	return band.Score, fmt.Sprintf("dimensions within %g%%", band.MaxError*100)
}

func relativeError(a, b float64) float64 {
	d := math.Max(math.Abs(a), math.Abs(b))
	if d == 0 {
		return 0
	}
	return math.Abs(a-b) / d
}

// pipeShape returns the layout a pipe vector uses, or nil if it has no
// values. A diameter means a round section.
func pipeShape(d Dimensions) []string {
	if _, ok := d.Value(DimDiameter); ok {
		return pipeRound
	}
	for _, name := range pipeRectangular {
		if _, ok := d.Value(name); ok {
			return pipeRectangular
		}
	}
	return nil
}

// coverage is the fraction of the family layout a catalog entry specifies.
func coverage(f Family, d Dimensions) float64 {
	layout := Layout(f)
	if f == FamilyPipes {
		layout = pipeShape(d)
	}
	if len(layout) == 0 {
		return 0
	}
	known := 0
	for _, name := range layout {
		if _, ok := d.Value(name); ok {
			known++
		}
	}
	return float64(known) / float64(len(layout))
}
