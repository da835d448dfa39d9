package bom

// Engine runs the parse, normalize, match and aggregate stages for one
// upload. It holds only immutable configuration and may be shared.
type Engine struct {
	normalizer *Normalizer
	matcher    *Matcher
}

// NewEngine builds an engine from a policy and vocabulary. A nil
// vocabulary means the default one.
func NewEngine(p Policy, v *Vocabulary) *Engine {
	if v == nil {
		v = DefaultVocabulary()
	}
	return &Engine{normalizer: NewNormalizer(v), matcher: NewMatcher(p, v)}
}

// Matcher returns the engine's matcher, for suggestions and indexing.
func (e *Engine) Matcher() *Matcher { return e.matcher }

// Process parses and matches a whole file as one batch.
func (e *Engine) Process(fileName string, data []byte, mimeType string, catalog []Product) (*UploadResult, error) {
	return e.ProcessIndexed(fileName, data, mimeType, e.matcher.Index(catalog))
}

// ProcessIndexed is Process against a prepared catalog.
func (e *Engine) ProcessIndexed(fileName string, data []byte, mimeType string, c *Catalog) (*UploadResult, error) {
	table, err := ParseTable(data, mimeType)
	if err != nil {
		return nil, err
	}

	errs := append([]RowError(nil), table.Errors...)
	rows := make([]Row, 0, len(table.Records))
	for _, rec := range table.Records {
		line, err := e.normalizer.Normalize(rec)
		if err != nil {
			if re, ok := err.(RowError); ok {
				errs = append(errs, re)
			} else {
				errs = append(errs, RowError{Row: rec.RowIndex, Reason: err.Error()})
			}
			continue
		}
		rows = append(rows, NewRow(line, e.matcher.MatchIndexed(line, c)))
	}

	res := Aggregate(fileName, table.TotalRows(), rows, errs)
	res.HeaderWarning = table.HeaderWarning
	return res, nil
}
