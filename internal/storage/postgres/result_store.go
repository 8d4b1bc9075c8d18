// Package postgres provides a Postgres-backed tabular store for result rows.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultTable = "lighthouse_results"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Columns in insert order; they match audit.Header.
var Columns = []string{
	"recorded_at",
	"device",
	"url_key",
	"final_url",
	"performance",
	"accessibility",
	"best_practices",
	"seo",
	"pwa",
	"user_agent",
	"artifact_link",
}

// ResultStoreConfig controls the Postgres connection pool used for result rows.
type ResultStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// ResultStore appends result rows into a Postgres table.
type ResultStore struct {
	pool  execCloser
	table string
	query string
}

// NewResultStore creates a Postgres-backed ResultStore using the provided config.
func NewResultStore(ctx context.Context, cfg ResultStoreConfig) (*ResultStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewResultStoreWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewResultStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewResultStoreWithPool(pool execCloser, table string) (*ResultStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	placeholders := make([]string, len(Columns))
	for i := range Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(Columns, ", "),
		strings.Join(placeholders, ", "),
	)
	return &ResultStore{pool: pool, table: table, query: query}, nil
}

// Close releases the underlying pool resources.
func (s *ResultStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Append inserts one result row. Values are stored as text, so "N/A" scores
// survive unchanged.
func (s *ResultStore) Append(ctx context.Context, row []any) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("result store is not configured")
	}
	if len(row) != len(Columns) {
		return fmt.Errorf("row has %d values, want %d", len(row), len(Columns))
	}
	if _, err := s.pool.Exec(ctx, s.query, row...); err != nil {
		return fmt.Errorf("insert result into %s: %w", s.table, err)
	}
	return nil
}
