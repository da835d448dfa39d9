package bom

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Column names of the positional BOM template, in file order.
const (
	ColFamily     = "family"
	ColGrade      = "grade"
	ColDimensions = "dimensions"
	ColQuantity   = "quantity"
	ColUnit       = "unit"
	ColLengthM    = "length_m"
	ColFinish     = "finish"
)

// Columns is the fixed column order of template version 1.
var Columns = []string{ColFamily, ColGrade, ColDimensions, ColQuantity, ColUnit, ColLengthM, ColFinish}

// requiredColumns is the number of leading columns every data row must have.
const requiredColumns = 5

// Family is a normalized product category token. The empty value means the
// family was missing or not part of the vocabulary.
type Family string

const (
	FamilyProfiles   Family = "profiles"
	FamilyPlates     Family = "plates"
	FamilyPipes      Family = "pipes"
	FamilyFasteners  Family = "fasteners"
	FamilyStainless  Family = "stainless"
	FamilyNonferrous Family = "nonferrous"
)

// Known reports whether f is set.
func (f Family) Known() bool { return f != "" }

// MarshalJSON encodes an unknown family as null.
func (f Family) MarshalJSON() ([]byte, error) {
	if f == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(f))
}

// UnmarshalJSON accepts a string or null.
func (f *Family) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*f = Family(s)
	return nil
}

// Unit is the measurement category a quantity is expressed in.
// Mass quantities are kilograms, length quantities are metres.
type Unit string

const (
	UnitMass   Unit = "mass"
	UnitLength Unit = "length"
	UnitCount  Unit = "count"
)

// Dimensions is a family-dependent feature vector in millimetres. Every
// field of the family layout is present as a key; unknown values are nil.
type Dimensions map[string]*float64

// Value returns the feature and whether it is known.
func (d Dimensions) Value(name string) (float64, bool) {
	v, ok := d[name]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// Known returns the number of non-nil features.
func (d Dimensions) Known() int {
	n := 0
	for _, v := range d {
		if v != nil {
			n++
		}
	}
	return n
}

// Float returns a pointer to v, for building Dimensions literals.
func Float(v float64) *float64 { return &v }

// RawRecord is one data row as read from the file.
type RawRecord struct {
	RowIndex int               // 1-based row number in the file, header included
	Fields   map[string]string // raw cell text keyed by column name
}

// Get returns the raw value of a column, or "" when absent.
func (r RawRecord) Get(col string) string { return r.Fields[col] }

// Line is the canonical representation of one BOM row.
type Line struct {
	RowIndex      int              `json:"rowIndex"`
	Family        Family           `json:"family"`
	FamilyText    string           `json:"familyText,omitempty"` // raw cell, kept when Family is unknown
	Grade         string           `json:"grade,omitempty"`
	Dimensions    Dimensions       `json:"dimensionFeatures"`
	DimensionText string           `json:"dimensionText,omitempty"`
	Quantity      decimal.Decimal  `json:"quantity"`
	Unit          Unit             `json:"unit"`
	LengthM       *decimal.Decimal `json:"lengthM,omitempty"`
	Finish        string           `json:"finish,omitempty"`
}

// Product is a catalog entry as supplied by the caller.
type Product struct {
	ID         string     `json:"id" yaml:"id"`
	Family     Family     `json:"family" yaml:"family"`
	Grade      string     `json:"grade" yaml:"grade"`
	Dimensions Dimensions `json:"dimensionFeatures" yaml:"dimensions"`
	Name       string     `json:"name,omitempty" yaml:"name"`
}

// RowError describes a row that could not be turned into a Line.
type RowError struct {
	Row    int
	Reason string
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %s", e.Row, e.Reason) }

// String is the form stored in UploadResult.ParseErrors.
func (e RowError) String() string { return e.Error() }

// CartItem is the flat hand-off shape for the cart collaborator.
type CartItem struct {
	RowIndex  int               `json:"rowIndex"`
	ProductID string            `json:"productId"`
	Quantity  decimal.Decimal   `json:"quantity"`
	Unit      Unit              `json:"unit"`
	Specs     map[string]string `json:"specs,omitempty"`
}
