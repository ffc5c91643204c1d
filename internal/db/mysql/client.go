package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Registers the "mysql" driver with database/sql.
	_ "github.com/go-sql-driver/mysql"

	"github.com/openshelf/bookdex/internal/db"
)

// Config holds connection parameters for the relational full-text store.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Client wraps database/sql for the catalog store. Connections are pooled
// and acquired per statement, so the client is safe for concurrent use.
type Client struct {
	sqldb *sql.DB
}

// NewClient opens a connection pool against the catalog store.
func NewClient(cfg Config) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	sqldb, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog store: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &Client{sqldb: sqldb}, nil
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.sqldb.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the pool.
func (c *Client) Close() {
	_ = c.sqldb.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for catalog store: %w", ctx.Err())
		case <-ticker.C:
			if err := c.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// QueryRows executes a parametrized statement and returns every row as a
// column-name-to-value map. Byte slices are copied out as strings so the
// maps stay valid after the rows are closed.
func (c *Client) QueryRows(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := c.sqldb.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &db.Error{Op: db.OpQuery, Err: err}
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	return out, nil
}

// QueryCount executes a COUNT(*)-style statement returning a single integer.
func (c *Client) QueryCount(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := c.sqldb.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, &db.Error{Op: db.OpQuery, Err: err}
	}
	return n, nil
}

// normalizeValue converts driver types into plain Go values: []byte
// becomes string, everything else passes through.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	default:
		return v
	}
}
