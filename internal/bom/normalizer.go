package bom

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalizer converts raw records into canonical lines using a vocabulary.
// It holds no mutable state and may be shared.
type Normalizer struct {
	vocab *Vocabulary
}

// NewNormalizer returns a Normalizer backed by v, or by the default
// vocabulary when v is nil.
func NewNormalizer(v *Vocabulary) *Normalizer {
	if v == nil {
		v = DefaultVocabulary()
	}
	return &Normalizer{vocab: v}
}

// Normalize converts one record. The returned error is always a RowError.
func (n *Normalizer) Normalize(rec RawRecord) (Line, error) {
	rowErr := func(format string, args ...any) (Line, error) {
		return Line{}, RowError{Row: rec.RowIndex, Reason: fmt.Sprintf(format, args...)}
	}

	line := Line{
		RowIndex:      rec.RowIndex,
		Family:        n.vocab.Family(rec.Get(ColFamily)),
		Grade:         n.vocab.NormalizeGrade(rec.Get(ColGrade)),
		DimensionText: strings.TrimSpace(rec.Get(ColDimensions)),
		Finish:        strings.TrimSpace(rec.Get(ColFinish)),
	}
	if !line.Family.Known() {
		line.FamilyText = strings.TrimSpace(rec.Get(ColFamily))
	}
	line.Dimensions = ParseDimensions(line.Family, line.DimensionText)

	rawQty := strings.TrimSpace(rec.Get(ColQuantity))
	qty, err := parseLocaleDecimal(rawQty)
	if err != nil {
		return rowErr("non-numeric quantity %q", rawQty)
	}
	unit, factor, ok := n.vocab.Unit(rec.Get(ColUnit))
	if !ok {
		return rowErr("unknown unit %q", strings.TrimSpace(rec.Get(ColUnit)))
	}
	qty = qty.Mul(factor)
	if !qty.IsPositive() {
		return rowErr("quantity must be greater than zero, got %s", rawQty)
	}
	line.Quantity = qty
	line.Unit = unit

	if raw := strings.TrimSpace(rec.Get(ColLengthM)); raw != "" {
		l, err := parseLocaleDecimal(raw)
		if err != nil {
			return rowErr("non-numeric length_m %q", raw)
		}
		if !l.IsPositive() {
			return rowErr("length_m must be greater than zero, got %s", raw)
		}
		line.LengthM = &l
	}

	return line, nil
}

var dimNumber = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// dimToken is one number read from dimension text, in millimetres unless a
// suffix said otherwise.
type dimToken struct {
	value float64
	scale float64 // 0 when no unit suffix followed the number
}

// ParseDimensions reads dimension text into the family layout. Only the
// dimension expression is read: the longest run of numbers joined by "x",
// "×" or "*", so "60.3x2.9 L=6m" yields 60.3 and 2.9. Numbers are taken in
// order; missing trailing fields stay nil and extra numbers are ignored. An
// unknown family yields an empty vector.
func ParseDimensions(f Family, text string) Dimensions {
	layout := Layout(f)
	if layout == nil {
		return Dimensions{}
	}
	dims := make(Dimensions, len(layout))
	for _, name := range layout {
		dims[name] = nil
	}

	tokens := tokenizeDimensions(text)
	order := layout
	if f == FamilyPipes {
		order = pipeLayout(len(tokens))
	}
	for i, name := range order {
		if i >= len(tokens) {
			break
		}
		dims[name] = Float(tokens[i].value)
	}
	return dims
}

// pipeLayout picks the pipe shape from the number of values in the
// dimension expression:
// two values are a round section, three or more a rectangular one.
func pipeLayout(n int) []string {
	if n >= 3 {
		return pipeRectangular
	}
	return pipeRound
}

// tokenizeDimensions returns the numbers of the dimension expression in
// millimetres.
func tokenizeDimensions(text string) []dimToken {
	var best, chain []dimToken
	prevEnd := -1
	for _, loc := range dimNumber.FindAllStringIndex(text, -1) {
		v, err := strconv.ParseFloat(strings.Replace(text[loc[0]:loc[1]], ",", ".", 1), 64)
		if err != nil {
			continue
		}
		if prevEnd < 0 || !isDimSeparator(text[prevEnd:loc[0]]) {
			if len(chain) > len(best) {
				best = chain
			}
			chain = nil
		}
		chain = append(chain, dimToken{value: v, scale: unitSuffix(text[loc[1]:])})
		prevEnd = loc[1]
	}
	if len(chain) > len(best) {
		best = chain
	}

	// "100x50x5 mm" or "1,5x1x2 m": a suffix on the last number only applies
	// to the whole expression.
	if n := len(best); n > 1 && best[n-1].scale != 0 {
		shared := true
		for _, t := range best[:n-1] {
			if t.scale != 0 {
				shared = false
				break
			}
		}
		if shared {
			for i := range best[:n-1] {
				best[i].scale = best[n-1].scale
			}
		}
	}

	for i := range best {
		if best[i].scale != 0 {
			best[i].value *= best[i].scale
		}
	}
	return best
}

// isDimSeparator reports whether the text between two numbers joins them
// into one expression: an optional unit, then "x", "×" or "*".
func isDimSeparator(gap string) bool {
	g := strings.ToLower(strings.TrimSpace(gap))
	for _, u := range []string{"mm", "cm", "m"} {
		if strings.HasPrefix(g, u) {
			g = strings.TrimSpace(g[len(u):])
			break
		}
	}
	switch g {
	case "x", "×", "*":
		return true
	}
	return false
}

// unitSuffix returns the millimetre scale of a length unit directly after a
// number, or 0 if there is none. The separator "x" is never a unit.
func unitSuffix(rest string) float64 {
	rest = strings.TrimLeft(rest, " ")
	lower := strings.ToLower(rest)
	for _, u := range []struct {
		token string
		scale float64
	}{{"mm", 1}, {"cm", 10}, {"m", 1000}} {
		if !strings.HasPrefix(lower, u.token) {
			continue
		}
		next, _ := utf8.DecodeRuneInString(lower[len(u.token):])
		if next == utf8.RuneError || next == 'x' || next == '×' || !unicode.IsLetter(next) {
			return u.scale
		}
		return 0
	}
	return 0
}
