package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/bomquote/internal/bom"
)

// =============================================================================
// File source
// =============================================================================

const yamlCatalog = `
products:
  - id: HEA-100
    family: profiles
    grade: S235JR
    name: HEA 100 S235JR
    dimensions:
      height: 96
      width: 100
      webThickness: 5
      flangeThickness: 8
  - id: PL-2
    family: Blachy
    grade: St37-2
    dimensions:
      thickness: 2
      widthMm: 1000
      lengthMm: 2000
`

func TestDecodeProducts_YAMLDocument(t *testing.T) {
	products, err := DecodeProducts([]byte(yamlCatalog))
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "HEA-100", products[0].ID)
	assert.Equal(t, bom.FamilyProfiles, products[0].Family)
	assert.Equal(t, 96.0, *products[0].Dimensions[bom.DimHeight])
	assert.Equal(t, "HEA 100 S235JR", products[0].Name)
}

func TestDecodeProducts_JSONList(t *testing.T) {
	products, err := DecodeProducts([]byte(`[
		{"id": "M10", "family": "fasteners", "grade": "8.8", "dimensions": {"diameter": 10, "length": 40}}
	]`))
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 40.0, *products[0].Dimensions[bom.DimLength])
}

func TestDecodeProducts_APIProductJSON(t *testing.T) {
	// Products as the API returns them use the dimensionFeatures key.
	data, err := json.Marshal([]bom.Product{{
		ID:         "HEA100",
		Family:     bom.FamilyProfiles,
		Grade:      "S235JR",
		Dimensions: bom.Dimensions{bom.DimHeight: bom.Float(96)},
	}})
	require.NoError(t, err)
	require.Contains(t, string(data), `"dimensionFeatures"`)

	products, err := DecodeProducts(data)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Contains(t, products[0].Dimensions, bom.DimHeight)
	assert.Equal(t, 96.0, *products[0].Dimensions[bom.DimHeight])
	assert.Equal(t, bom.FamilyProfiles, products[0].Family)
}

func TestDecodeProducts_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"not yaml", "products: [", "parse catalog"},
		{"scalar", "hello", "expected a list"},
		{"missing id", "- family: plates\n", "missing id"},
		{"duplicate id", "- id: A\n- id: A\n", `duplicate id "A"`},
		{"unknown key", "- id: A\n  dimension: {height: 96}\n", "field dimension not found"},
		{"unknown document key", "items:\n  - id: A\n", "field items not found"},
		{"both dimension keys", "- id: A\n  dimensions: {height: 96}\n  dimensionFeatures: {height: 96}\n", "both dimensions and dimensionFeatures"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeProducts([]byte(tt.data))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestDecodeProducts_Empty(t *testing.T) {
	products, err := DecodeProducts(nil)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlCatalog), 0o600))

	src := NewFileSource(path)
	products, err := src.Products(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, "file:"+path, src.Name())

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.yaml")).Products(context.Background())
	assert.ErrorContains(t, err, "read catalog file")
}

// =============================================================================
// Cache
// =============================================================================

type countingSource struct {
	mu       sync.Mutex
	products []bom.Product
	err      error
	calls    atomic.Int32
	delay    time.Duration
}

func (s *countingSource) Products(ctx context.Context) ([]bom.Product, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products, s.err
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func TestCache_ReusesFreshSnapshot(t *testing.T) {
	src := &countingSource{products: Static{{ID: "A", Family: bom.FamilyPlates}}}
	c := NewCache(src, CacheOptions{TTL: time.Minute})

	first, err := c.Catalog(context.Background())
	require.NoError(t, err)
	second, err := c.Catalog(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), src.calls.Load())
	_, ok := first.Product("A")
	assert.True(t, ok)
}

func TestCache_ReloadsWhenStale(t *testing.T) {
	src := &countingSource{products: Static{{ID: "A"}}}
	c := NewCache(src, CacheOptions{TTL: time.Minute})
	now := time.Now()
	c.now = func() time.Time { return now }

	_, err := c.Catalog(context.Background())
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = c.Catalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCache_ServesStaleOnFailure(t *testing.T) {
	src := &countingSource{products: Static{{ID: "A"}}}
	var loads, failures int
	c := NewCache(src, CacheOptions{TTL: time.Minute, OnLoad: func(_ int, err error) {
		loads++
		if err != nil {
			failures++
		}
	}})
	now := time.Now()
	c.now = func() time.Time { return now }

	first, err := c.Catalog(context.Background())
	require.NoError(t, err)

	src.fail(errors.New("connection refused"))
	now = now.Add(2 * time.Minute)

	got, err := c.Catalog(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, got)
	assert.Equal(t, 2, loads)
	assert.Equal(t, 1, failures)

	_, err = c.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCache_FirstLoadFailure(t *testing.T) {
	src := &countingSource{err: errors.New("boom")}
	_, err := NewCache(src, CacheOptions{}).Catalog(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorContains(t, err, "boom")
}

func TestCache_CollapsesConcurrentLoads(t *testing.T) {
	src := &countingSource{products: Static{{ID: "A"}}, delay: 50 * time.Millisecond}
	c := NewCache(src, CacheOptions{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Catalog(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
}

func TestStatic_ReturnsCopy(t *testing.T) {
	s := Static{{ID: "A"}}
	products, err := s.Products(context.Background())
	require.NoError(t, err)
	products[0].ID = "B"
	assert.Equal(t, "A", s[0].ID)
}

// =============================================================================
// PostgreSQL
// =============================================================================

func TestQuoteQualified(t *testing.T) {
	assert.Equal(t, `"catalog_products"`, quoteQualified("catalog_products"))
	assert.Equal(t, `"shop"."products"`, quoteQualified("shop.products"))
}

func TestPostgresSource_Order(t *testing.T) {
	tests := []struct {
		orderBy string
		want    string
	}{
		{"", `FROM "catalog_products" ORDER BY id`},
		{"id", `FROM "catalog_products" ORDER BY id`},
		{"position", `FROM "catalog_products" ORDER BY "position", id`},
	}
	for _, tt := range tests {
		src := NewPostgresSource(nil, "catalog_products", tt.orderBy)
		assert.True(t, strings.HasSuffix(src.query, tt.want), src.query)
	}
}

func TestProductFromRow(t *testing.T) {
	grade := "S235JR"
	p, err := productFromRow("HEA-100", "profiles", &grade, []byte(`{"height": 96, "width": null}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "S235JR", p.Grade)
	assert.Empty(t, p.Name)
	assert.Equal(t, 96.0, *p.Dimensions[bom.DimHeight])
	assert.Nil(t, p.Dimensions[bom.DimWidth])

	_, err = productFromRow("X", "plates", nil, []byte(`[1,2]`), nil)
	assert.ErrorContains(t, err, "decode dimensions")
}
