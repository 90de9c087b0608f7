// Package data implements the "data" capability block: tabular input from a
// Postgres query or a YAML file.
package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/vk/plangridgo/internal/artifact"
	"github.com/vk/plangridgo/internal/ctxlog"
	"github.com/vk/plangridgo/internal/registry"
)

// Block implements registry.Block for kind "data".
type Block struct {
	// openDB is swappable for tests.
	openDB func(dsn string) (*sql.DB, error)
}

// New creates the data block.
func New() *Block {
	return &Block{
		openDB: func(dsn string) (*sql.DB, error) { return sql.Open("pgx", dsn) },
	}
}

// Describe implements registry.Block.
func (b *Block) Describe() registry.Contract {
	return registry.Contract{
		Kind:        "data",
		Description: "Loads a table from a Postgres query or a YAML file.",
		Params: []registry.ParamSpec{
			{Name: "source", Type: cty.String, Required: true, Description: `"postgres" or "file"`},
			{Name: "path", Type: cty.String, Description: "YAML file path (source = file)"},
			{Name: "query", Type: cty.String, Description: "SQL query (source = postgres)"},
			{Name: "dsn", Type: cty.String, Description: "connection string; falls back to DATABASE_URL"},
		},
		Output: artifact.KindTable,
	}
}

// Run implements registry.Block.
func (b *Block) Run(ctx context.Context, params registry.Params) (artifact.Artifact, error) {
	source, err := params.String("source")
	if err != nil {
		return artifact.Artifact{}, err
	}

	switch source {
	case "file":
		path, err := params.String("path")
		if err != nil {
			return artifact.Artifact{}, err
		}
		return b.runFile(ctx, path)
	case "postgres":
		query, err := params.String("query")
		if err != nil {
			return artifact.Artifact{}, err
		}
		dsn, err := params.StringOr("dsn", os.Getenv("DATABASE_URL"))
		if err != nil {
			return artifact.Artifact{}, err
		}
		if dsn == "" {
			return artifact.Artifact{}, fmt.Errorf("postgres source needs a dsn parameter or DATABASE_URL")
		}
		return b.runPostgres(ctx, dsn, query)
	default:
		return artifact.Artifact{}, fmt.Errorf("unknown data source %q (want \"postgres\" or \"file\")", source)
	}
}

// fileTable is the YAML document shape for file sources.
type fileTable struct {
	Columns []string `yaml:"columns"`
	Rows    [][]any  `yaml:"rows"`
}

func (b *Block) runFile(ctx context.Context, path string) (artifact.Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("failed to read table file: %w", err)
	}

	var doc fileTable
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return artifact.Artifact{}, fmt.Errorf("failed to parse table file %q: %w", path, err)
	}
	if len(doc.Columns) == 0 {
		return artifact.Artifact{}, fmt.Errorf("table file %q declares no columns", path)
	}

	table := artifact.Table{Columns: doc.Columns}
	for i, row := range doc.Rows {
		if len(row) != len(doc.Columns) {
			return artifact.Artifact{}, fmt.Errorf("table file %q row %d has %d cells, want %d", path, i, len(row), len(doc.Columns))
		}
		out := make(map[string]cty.Value, len(row))
		for ci, cell := range row {
			v, err := cellValue(cell)
			if err != nil {
				return artifact.Artifact{}, fmt.Errorf("table file %q row %d column %q: %w", path, i, doc.Columns[ci], err)
			}
			out[doc.Columns[ci]] = v
		}
		table.Rows = append(table.Rows, out)
	}

	ctxlog.FromContext(ctx).Debug("Loaded table from file.", "path", path, "rows", len(table.Rows))
	return artifact.NewTable(table), nil
}

func (b *Block) runPostgres(ctx context.Context, dsn, query string) (artifact.Artifact, error) {
	db, err := b.openDB(dsn)
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("failed to read result columns: %w", err)
	}

	table := artifact.Table{Columns: columns}
	scan := make([]any, len(columns))
	for i := range scan {
		scan[i] = new(any)
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return artifact.Artifact{}, fmt.Errorf("failed to scan row: %w", err)
		}
		out := make(map[string]cty.Value, len(columns))
		for i, col := range columns {
			v, err := cellValue(*scan[i].(*any))
			if err != nil {
				return artifact.Artifact{}, fmt.Errorf("row %d column %q: %w", len(table.Rows), col, err)
			}
			out[col] = v
		}
		table.Rows = append(table.Rows, out)
	}
	if err := rows.Err(); err != nil {
		return artifact.Artifact{}, fmt.Errorf("result iteration failed: %w", err)
	}

	ctxlog.FromContext(ctx).Debug("Loaded table from postgres.", "rows", len(table.Rows))
	return artifact.NewTable(table), nil
}

// cellValue converts a scanned or decoded cell into a cty value.
func cellValue(cell any) (cty.Value, error) {
	switch v := cell.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(v), nil
	case []byte:
		return cty.StringVal(string(v)), nil
	case bool:
		return cty.BoolVal(v), nil
	case int:
		return cty.NumberIntVal(int64(v)), nil
	case int32:
		return cty.NumberIntVal(int64(v)), nil
	case int64:
		return cty.NumberIntVal(v), nil
	case float32:
		return cty.NumberFloatVal(float64(v)), nil
	case float64:
		return cty.NumberFloatVal(v), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported cell type %T", cell)
	}
}
