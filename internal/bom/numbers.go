package bom

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var errNotNumeric = errors.New("not a number")

// groupingReplacer drops characters used only for digit grouping.
var groupingReplacer = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "'", "", "\t", "")

// parseLocaleDecimal parses a number written with either '.' or ',' as the
// decimal separator. When both appear the last one is the decimal mark. A
// single separator is a decimal mark, repeated separators group thousands.
func parseLocaleDecimal(s string) (decimal.Decimal, error) {
	s = groupingReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, errNotNumeric
	}

	sign := ""
	if s[0] == '-' || s[0] == '+' {
		sign, s = s[:1], s[1:]
	}

	dots, commas := strings.Count(s, "."), strings.Count(s, ",")
	switch {
	case dots > 0 && commas > 0:
		group, mark := ".", ","
		if strings.LastIndex(s, ".") > strings.LastIndex(s, ",") {
			group, mark = ",", "."
		}
		i := strings.LastIndex(s, mark)
		if strings.Count(s, mark) > 1 || !validGrouping(s[:i], group) {
			return decimal.Zero, errNotNumeric
		}
		s = strings.ReplaceAll(s[:i], group, "") + "." + s[i+1:]
	case commas == 1:
		s = strings.Replace(s, ",", ".", 1)
	case commas > 1:
		if !validGrouping(s, ",") {
			return decimal.Zero, errNotNumeric
		}
		s = strings.ReplaceAll(s, ",", "")
	case dots > 1:
		if !validGrouping(s, ".") {
			return decimal.Zero, errNotNumeric
		}
		s = strings.ReplaceAll(s, ".", "")
	}

	if !isPlainDecimal(s) {
		return decimal.Zero, errNotNumeric
	}
	return decimal.NewFromString(sign + s)
}

// isPlainDecimal accepts digits with at most one '.', and at least one digit.
// decimal.NewFromString alone would also accept exponents.
func isPlainDecimal(s string) bool {
	digits, dot := 0, false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return digits > 0
}

// validGrouping checks thousands grouping: a leading group of one to three
// digits followed by groups of exactly three.
func validGrouping(s, sep string) bool {
	groups := strings.Split(s, sep)
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}
