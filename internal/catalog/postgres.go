package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/bomquote/internal/bom"
)

// Querier is the subset of *pgxpool.Pool and pgx.Tx used by PostgresSource.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads the catalog from a table or view with the columns
// id, family, grade, dimensions (jsonb object of feature -> number) and name.
// Rows come back in orderBy order, then by id; the matcher treats that as
// insertion order when scores tie.
type PostgresSource struct {
	db    Querier
	table string
	query string
}

// NewPostgresSource returns a source reading table, which may be
// schema-qualified. An empty orderBy orders by id.
func NewPostgresSource(db Querier, table, orderBy string) *PostgresSource {
	order := "id"
	if orderBy != "" && orderBy != "id" {
		order = quoteQualified(orderBy) + ", id"
	}
	return &PostgresSource{
		db:    db,
		table: table,
		query: fmt.Sprintf(
			"SELECT id, family, grade, dimensions, name FROM %s ORDER BY %s",
			quoteQualified(table), order,
		),
	}
}

func (s *PostgresSource) Name() string { return "postgres:" + s.table }

// Products runs the catalog query.
func (s *PostgresSource) Products(ctx context.Context) ([]bom.Product, error) {
	rows, err := s.db.Query(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var products []bom.Product
	for rows.Next() {
		var (
			id, family  string
			grade, name *string
			dims        []byte
		)
		if err := rows.Scan(&id, &family, &grade, &dims, &name); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		p, err := productFromRow(id, family, grade, dims, name)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return products, nil
}

func productFromRow(id, family string, grade *string, dims []byte, name *string) (bom.Product, error) {
	p := bom.Product{ID: id, Family: bom.Family(family)}
	if grade != nil {
		p.Grade = *grade
	}
	if name != nil {
		p.Name = *name
	}
	if len(dims) > 0 {
		if err := json.Unmarshal(dims, &p.Dimensions); err != nil {
			return bom.Product{}, fmt.Errorf("product %s: decode dimensions: %w", id, err)
		}
	}
	return p, nil
}

// quoteQualified quotes each dot-separated part of an identifier.
func quoteQualified(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}
