package bom

import (
	"errors"
	"fmt"
	"math"
)

// Band maps a mean relative dimension error to a dimension score.
type Band struct {
	MaxError float64 // inclusive upper bound, as a fraction (0.02 = 2%)
	Score    float64
}

// Policy holds the tunable constants of the matcher. The defaults were
// chosen empirically and should be revalidated against real BOM samples.
type Policy struct {
	DimensionWeight float64
	GradeWeight     float64
	CoverageWeight  float64

	// Bands must be sorted by MaxError. Errors above the last band score 0.
	Bands []Band
	// NoEvidenceScore is the dimension score when no feature pair could be
	// compared.
	NoEvidenceScore float64

	HighThreshold   float64
	MediumThreshold float64
	LowThreshold    float64
}

// DefaultPolicy returns the standard weights, bands and tier thresholds.
func DefaultPolicy() Policy {
	return Policy{
		DimensionWeight: 0.5,
		GradeWeight:     0.3,
		CoverageWeight:  0.2,
		Bands: []Band{
			{MaxError: 0.02, Score: 1.0},
			{MaxError: 0.05, Score: 0.8},
			{MaxError: 0.10, Score: 0.5},
		},
		NoEvidenceScore: 0.3,
		HighThreshold:   0.85,
		MediumThreshold: 0.6,
		LowThreshold:    0.35,
	}
}

// Validate checks that the policy is internally consistent.
func (p Policy) Validate() error {
	var errs []error
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"dimension weight", p.DimensionWeight},
		{"grade weight", p.GradeWeight},
		{"coverage weight", p.CoverageWeight},
	} {
		if w.value < 0 || w.value > 1 {
			errs = append(errs, fmt.Errorf("%s must be in [0,1], got %g", w.name, w.value))
		}
	}
	if sum := p.DimensionWeight + p.GradeWeight + p.CoverageWeight; math.Abs(sum-1) > 1e-6 {
		errs = append(errs, fmt.Errorf("weights must sum to 1, got %g", sum))
	}
	if len(p.Bands) == 0 {
		errs = append(errs, errors.New("at least one dimension band is required"))
	}
	for i := 1; i < len(p.Bands); i++ {
		if p.Bands[i].MaxError <= p.Bands[i-1].MaxError {
			errs = append(errs, errors.New("dimension bands must be sorted by max error"))
			break
		}
		if p.Bands[i].Score > p.Bands[i-1].Score {
			errs = append(errs, errors.New("dimension band scores must not increase with error"))
			break
		}
	}
	if !(p.LowThreshold > 0 && p.LowThreshold <= p.MediumThreshold && p.MediumThreshold <= p.HighThreshold && p.HighThreshold <= 1) {
		errs = append(errs, fmt.Errorf("thresholds must satisfy 0 < low <= medium <= high <= 1, got %g/%g/%g",
			p.LowThreshold, p.MediumThreshold, p.HighThreshold))
	}
	return errors.Join(errs...)
}

// scoreEpsilon absorbs floating point noise in composite sums so that a
// score landing exactly on a threshold gets that tier.
const scoreEpsilon = 1e-9

// Tier maps a composite score onto a confidence tier.
func (p Policy) Tier(score float64) Confidence {
	score += scoreEpsilon
	switch {
	case score >= p.HighThreshold:
		return ConfidenceHigh
	case score >= p.MediumThreshold:
		return ConfidenceMedium
	case score >= p.LowThreshold:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// bandFor returns the band containing meanErr, or nil when it exceeds all.
func (p Policy) bandFor(meanErr float64) *Band {
	for i := range p.Bands {
		if meanErr <= p.Bands[i].MaxError+scoreEpsilon {
			return &p.Bands[i]
		}
	}
	return nil
}

func (p Policy) composite(b Breakdown) float64 {
	return p.DimensionWeight*b.Dimension + p.GradeWeight*b.Grade + p.CoverageWeight*b.Coverage
}
