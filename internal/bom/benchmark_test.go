package bom

import (
	"bytes"
	"fmt"
	"testing"
)

// ============================================================================
// Normalization Benchmarks
// ============================================================================

// BenchmarkParseLocaleDecimal benchmarks quantity parsing.
// Every row goes through it at least once.
func BenchmarkParseLocaleDecimal(b *testing.B) {
	testCases := []string{
		"6",
		"12.5",
		"12,5",       // Decimal comma
		"1.234,56",   // European grouping
		"1,234.56",   // US grouping
		"1\u00a0234", // NBSP grouping
		"  999.99  ", // Whitespace
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			_, _ = parseLocaleDecimal(tc)
		}
	}
}

// BenchmarkParseDimensions benchmarks dimension tokenizing per family.
func BenchmarkParseDimensions(b *testing.B) {
	testCases := []struct {
		family Family
		text   string
	}{
		{FamilyProfiles, "96x100x5x8"},
		{FamilyPlates, "2x1000x2000"},
		{FamilyPipes, "48.3x3.2"},
		{FamilyPlates, "0.2cm x 1m x 2m"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseDimensions(tc.family, tc.text)
		}
	}
}

// BenchmarkNormalize benchmarks a full record through the normalizer.
func BenchmarkNormalize(b *testing.B) {
	n := NewNormalizer(nil)
	rec := record(2, "Profiles", "s235 jr", "96 x 100 x 5 x 8", "6", "m", "6", "raw")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := n.Normalize(rec); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Matching Benchmarks
// ============================================================================

// benchCatalog builds n profiles with increasing heights.
func benchCatalog(n int) []Product {
	products := make([]Product, n)
	for i := range products {
		h := float64(80 + i)
		products[i] = profile(fmt.Sprintf("P-%d", i), "S235JR", Float(h), Float(100), Float(5), Float(8))
	}
	return products
}

// BenchmarkMatchIndexed benchmarks matching one line against a family of 1000.
func BenchmarkMatchIndexed(b *testing.B) {
	m := newTestMatcher()
	c := NewCatalog(benchCatalog(1000), nil)
	line := profileLine("S235JR", 96)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.MatchIndexed(line, c)
	}
}

// BenchmarkMatch_Unindexed benchmarks the slice form, which indexes per call.
func BenchmarkMatch_Unindexed(b *testing.B) {
	m := newTestMatcher()
	products := benchCatalog(1000)
	line := profileLine("S235JR", 96)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Match(line, products)
	}
}

// BenchmarkSuggest benchmarks ranking the top 5 candidates.
func BenchmarkSuggest(b *testing.B) {
	m := newTestMatcher()
	c := NewCatalog(benchCatalog(1000), nil)
	line := profileLine("S235JR", 96)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Suggest(line, c, 5)
	}
}

// ============================================================================
// End-to-End Benchmarks
// ============================================================================

// generateBOM builds a CSV file with the given number of data rows.
func generateBOM(rows int) []byte {
	var buf bytes.Buffer
	buf.WriteString(templateHeader)
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&buf, "profiles,S235JR,%dx100x5x8,%d,m,6,raw\n", 80+i%200, 1+i%10)
	}
	return buf.Bytes()
}

// BenchmarkProcess benchmarks parsing, normalizing and matching 1000 rows.
func BenchmarkProcess(b *testing.B) {
	e := NewEngine(DefaultPolicy(), nil)
	c := NewCatalog(benchCatalog(200), nil)
	data := generateBOM(1000)

	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.ProcessIndexed("bench.csv", data, MimeCSV, c); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkProcessParallel benchmarks concurrent uploads sharing one catalog.
func BenchmarkProcessParallel(b *testing.B) {
	e := NewEngine(DefaultPolicy(), nil)
	c := NewCatalog(benchCatalog(200), nil)
	data := generateBOM(200)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := e.ProcessIndexed("bench.csv", data, MimeCSV, c); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
