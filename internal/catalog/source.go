// Package catalog supplies the product catalog the matcher scores against.
//
// The catalog is owned by another system; this package only reads it. A
// Source returns the raw product list and a Cache turns it into an indexed
// bom.Catalog snapshot that is reused until it goes stale.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/bomquote/internal/bom"
)

// ErrUnavailable is returned when no catalog snapshot can be produced.
var ErrUnavailable = errors.New("catalog unavailable")

// Source loads the full product list.
type Source interface {
	Products(ctx context.Context) ([]bom.Product, error)
	// Name identifies the source in logs.
	Name() string
}

// Static is an in-memory product list.
type Static []bom.Product

// Products returns a copy of the list.
func (s Static) Products(context.Context) ([]bom.Product, error) {
	return slices.Clone(s), nil
}

func (s Static) Name() string { return "static" }

// FileSource reads products from a YAML or JSON file. The file is either a
// bare list of products or a document with a top-level "products" key.
type FileSource struct {
	Path string
}

// NewFileSource returns a source reading path on every load.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) Name() string { return "file:" + f.Path }

// Products reads and decodes the catalog file.
func (f *FileSource) Products(ctx context.Context) ([]bom.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return DecodeProducts(data)
}

// fileProduct is a product as written in a catalog file. The dimension
// vector is accepted under "dimensions" or under "dimensionFeatures", the
// key the API uses when it returns products.
type fileProduct struct {
	ID                string         `yaml:"id"`
	Family            bom.Family     `yaml:"family"`
	Grade             string         `yaml:"grade"`
	Dimensions        bom.Dimensions `yaml:"dimensions"`
	DimensionFeatures bom.Dimensions `yaml:"dimensionFeatures"`
	Name              string         `yaml:"name"`
}

type productDocument struct {
	Products []fileProduct `yaml:"products"`
}

// DecodeProducts parses a YAML or JSON product list and checks that every
// product has a unique, non-empty id. Unknown keys are rejected so a
// misspelled field fails the load instead of silently emptying products.
func DecodeProducts(data []byte) ([]bom.Product, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	var entries []fileProduct
	if len(node.Content) > 0 {
		root := node.Content[0]
		switch root.Kind {
		case yaml.SequenceNode:
			if err := decodeStrict(data, &entries); err != nil {
				return nil, err
			}
		case yaml.MappingNode:
			var doc productDocument
			if err := decodeStrict(data, &doc); err != nil {
				return nil, err
			}
			entries = doc.Products
		default:
			return nil, fmt.Errorf("parse catalog: expected a list or a products key at line %d", root.Line)
		}
	}

	products := make([]bom.Product, 0, len(entries))
	var errs []error
	for i, e := range entries {
		dims := e.Dimensions
		switch {
		case len(e.Dimensions) > 0 && len(e.DimensionFeatures) > 0:
			errs = append(errs, fmt.Errorf("product %d: both dimensions and dimensionFeatures set", i+1))
		case len(dims) == 0:
			dims = e.DimensionFeatures
		}
		products = append(products, bom.Product{
			ID:         e.ID,
			Family:     e.Family,
			Grade:      e.Grade,
			Dimensions: dims,
			Name:       e.Name,
		})
	}
	if err := errors.Join(append(errs, validateProducts(products))...); err != nil {
		return nil, err
	}
	return products, nil
}

func decodeStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	return nil
}

func validateProducts(products []bom.Product) error {
	seen := make(map[string]struct{}, len(products))
	var errs []error
	for i, p := range products {
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("product %d: missing id", i+1))
			continue
		}
		if _, dup := seen[p.ID]; dup {
			errs = append(errs, fmt.Errorf("product %d: duplicate id %q", i+1, p.ID))
		}
		seen[p.ID] = struct{}{}
	}
	return errors.Join(errs...)
}
