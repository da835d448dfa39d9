package bom

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Dimension feature names.
const (
	DimHeight          = "height"
	DimWidth           = "width"
	DimWebThickness    = "webThickness"
	DimFlangeThickness = "flangeThickness"
	DimThickness       = "thickness"
	DimWidthMm         = "widthMm"
	DimLengthMm        = "lengthMm"
	DimDiameter        = "diameter"
	DimLength          = "length"
)

// layouts lists, per family, the feature names in the order dimension text
// is read. Pipes are special-cased by shape, see pipeLayout.
var layouts = map[Family][]string{
	FamilyProfiles:   {DimHeight, DimWidth, DimWebThickness, DimFlangeThickness},
	FamilyPlates:     {DimThickness, DimWidthMm, DimLengthMm},
	FamilyPipes:      {DimDiameter, DimHeight, DimWidth, DimThickness},
	FamilyFasteners:  {DimDiameter, DimLength},
	FamilyStainless:  {DimThickness, DimWidth, DimLength},
	FamilyNonferrous: {DimThickness, DimWidth, DimLength},
}

var (
	pipeRound       = []string{DimDiameter, DimThickness}
	pipeRectangular = []string{DimWidth, DimHeight, DimThickness}
)

// Layout returns the feature names used by a family, or nil if unknown.
func Layout(f Family) []string {
	return layouts[f]
}

// unitFold is the target of a unit synonym: the unit category and the
// factor that converts the written quantity into the category's base unit.
type unitFold struct {
	unit   Unit
	factor decimal.Decimal
}

// Vocabulary holds the static lookup tables used by the normalizer. It is
// built once at start-up and never modified afterwards, so it is safe to
// share between goroutines.
type Vocabulary struct {
	version  string
	families map[string]Family
	grades   map[string]string // compact alias -> canonical grade
	units    map[string]unitFold
}

var defaultFamilySynonyms = map[string]Family{
	"profiles": FamilyProfiles, "profile": FamilyProfiles, "beams": FamilyProfiles, "beam": FamilyProfiles,
	"sections": FamilyProfiles, "profile stalowe": FamilyProfiles, "profil": FamilyProfiles, "kształtowniki": FamilyProfiles,
	"plates": FamilyPlates, "plate": FamilyPlates, "sheet": FamilyPlates, "sheets": FamilyPlates, "blachy": FamilyPlates, "blacha": FamilyPlates,
	"pipes": FamilyPipes, "pipe": FamilyPipes, "tube": FamilyPipes, "tubes": FamilyPipes, "rury": FamilyPipes, "rura": FamilyPipes,
	"fasteners": FamilyFasteners, "fastener": FamilyFasteners, "bolts": FamilyFasteners, "screws": FamilyFasteners, "śruby": FamilyFasteners,
	"stainless": FamilyStainless, "inox": FamilyStainless, "stainless steel": FamilyStainless, "nierdzewne": FamilyStainless,
	"nonferrous": FamilyNonferrous, "non-ferrous": FamilyNonferrous, "aluminium": FamilyNonferrous, "aluminum": FamilyNonferrous,
	"copper": FamilyNonferrous, "brass": FamilyNonferrous, "kolorowe": FamilyNonferrous,
}

// defaultGradeAliases maps canonical grades to the designations that fold
// onto them. Every canonical grade also matches itself.
var defaultGradeAliases = map[string][]string{
	"S235JR":     {"St37-2", "RSt37-2", "1.0038", "St3S"},
	"S235J2":     {"1.0117"},
	"S275JR":     {"St44-2", "1.0044"},
	"S355J2":     {"St52-3", "1.0570", "S355J2G3", "18G2A"},
	"S355JR":     {"1.0045"},
	"1.4301":     {"AISI 304", "304", "X5CrNi18-10", "0H18N9"},
	"1.4404":     {"AISI 316L", "316L", "X2CrNiMo17-12-2", "00H17N14M2"},
	"1.4571":     {"AISI 316Ti", "316Ti", "X6CrNiMoTi17-12-2", "H17N13M2T"},
	"EN AW-6060": {"6060", "AlMgSi", "PA38"},
	"EN AW-6082": {"6082", "AlSi1MgMn", "PA4"},
	"EN AW-5754": {"5754", "AlMg3", "PA11"},
	"8.8":        {"kl. 8.8", "class 8.8"},
	"10.9":       {"kl. 10.9", "class 10.9"},
	"A2-70":      {"A2"},
	"A4-80":      {"A4"},
}

var (
	one      = decimal.NewFromInt(1)
	thousand = decimal.NewFromInt(1000)
	milli    = decimal.New(1, -3)
)

var defaultUnits = map[string]unitFold{
	"mass": {UnitMass, one}, "kg": {UnitMass, one}, "kgs": {UnitMass, one}, "kilogram": {UnitMass, one}, "kilograms": {UnitMass, one},
	"t": {UnitMass, thousand}, "ton": {UnitMass, thousand}, "tons": {UnitMass, thousand}, "tonne": {UnitMass, thousand}, "tonnes": {UnitMass, thousand},
	"length": {UnitLength, one}, "m": {UnitLength, one}, "mb": {UnitLength, one}, "m.b.": {UnitLength, one}, "lm": {UnitLength, one},
	"metre": {UnitLength, one}, "metres": {UnitLength, one}, "meter": {UnitLength, one}, "meters": {UnitLength, one},
	"mm": {UnitLength, milli},
	"count": {UnitCount, one}, "pcs": {UnitCount, one}, "pc": {UnitCount, one}, "piece": {UnitCount, one}, "pieces": {UnitCount, one},
	"szt": {UnitCount, one}, "szt.": {UnitCount, one}, "sztuk": {UnitCount, one}, "stk": {UnitCount, one}, "st": {UnitCount, one},
	"ea": {UnitCount, one}, "each": {UnitCount, one}, "units": {UnitCount, one},
}

// DefaultVocabularyVersion identifies the built-in tables.
const DefaultVocabularyVersion = "v1"

var defaultVocabulary = newVocabulary(DefaultVocabularyVersion, defaultFamilySynonyms, defaultGradeAliases, defaultUnits)

// DefaultVocabulary returns the built-in vocabulary.
func DefaultVocabulary() *Vocabulary { return defaultVocabulary }

func newVocabulary(version string, families map[string]Family, grades map[string][]string, units map[string]unitFold) *Vocabulary {
	v := &Vocabulary{
		version:  version,
		families: make(map[string]Family, len(families)),
		grades:   make(map[string]string),
		units:    make(map[string]unitFold, len(units)),
	}
	for k, f := range families {
		v.families[strings.ToLower(k)] = f
	}
	for canonical, aliases := range grades {
		v.grades[compactGrade(canonical)] = canonical
		for _, a := range aliases {
			v.grades[compactGrade(a)] = canonical
		}
	}
	for k, u := range units {
		v.units[strings.ToLower(k)] = u
	}
	return v
}

// Version identifies the tables, for logging.
func (v *Vocabulary) Version() string { return v.version }

// vocabularyFile is the on-disk shape of a vocabulary extension.
type vocabularyFile struct {
	Version  string              `yaml:"version"`
	Families map[string]string   `yaml:"families"`
	Grades   map[string][]string `yaml:"grades"`
	Units    map[string]string   `yaml:"units"`
}

// LoadVocabulary reads a YAML file and returns the built-in vocabulary
// extended with its entries. Families and units must name existing tokens.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return ParseVocabulary(data)
}

// ParseVocabulary is LoadVocabulary for in-memory YAML.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var vf vocabularyFile
	if err := yaml.Unmarshal(data, &vf); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}

	families := make(map[string]Family, len(defaultFamilySynonyms)+len(vf.Families))
	for k, f := range defaultFamilySynonyms {
		families[k] = f
	}
	for k, target := range vf.Families {
		f := Family(strings.ToLower(strings.TrimSpace(target)))
		if _, ok := layouts[f]; !ok {
			return nil, fmt.Errorf("vocabulary family %q: unknown target %q", k, target)
		}
		families[k] = f
	}

	grades := make(map[string][]string, len(defaultGradeAliases)+len(vf.Grades))
	for k, aliases := range defaultGradeAliases {
		grades[k] = aliases
	}
	for k, aliases := range vf.Grades {
		grades[k] = append(append([]string(nil), grades[k]...), aliases...)
	}

	units := make(map[string]unitFold, len(defaultUnits)+len(vf.Units))
	for k, u := range defaultUnits {
		units[k] = u
	}
	for k, target := range vf.Units {
		fold, ok := defaultUnits[strings.ToLower(strings.TrimSpace(target))]
		if !ok {
			return nil, fmt.Errorf("vocabulary unit %q: unknown target %q", k, target)
		}
		units[k] = fold
	}

	version := vf.Version
	if version == "" {
		version = DefaultVocabularyVersion + "+custom"
	}
	return newVocabulary(version, families, grades, units), nil
}

// Family folds a raw family cell onto the vocabulary. Unknown values
// return the empty Family.
func (v *Vocabulary) Family(raw string) Family {
	key := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	if key == "" {
		return ""
	}
	return v.families[key]
}

// NormalizeGrade returns the canonical form of a grade designation:
// NFC, upper case, single spaces, aliases folded. Diacritics are kept.
func (v *Vocabulary) NormalizeGrade(raw string) string {
	s := norm.NFC.String(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	s = cases.Upper(language.Und).String(s)
	s = strings.Join(strings.Fields(s), " ")
	if canonical, ok := v.grades[compactGrade(s)]; ok {
		return canonical
	}
	return s
}

// Unit folds a unit token. An empty token is a count.
func (v *Vocabulary) Unit(raw string) (Unit, decimal.Decimal, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return UnitCount, one, true
	}
	fold, ok := v.units[key]
	if !ok {
		return "", decimal.Zero, false
	}
	return fold.unit, fold.factor, true
}

// compactGrade is the alias lookup key: upper case with separators removed.
func compactGrade(s string) string {
	s = cases.Upper(language.Und).String(norm.NFC.String(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '_', '.', '/':
			return -1
		}
		return r
	}, s)
}
