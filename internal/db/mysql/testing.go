package mysql

import "database/sql"

// NewClientForTest creates a Client with the provided database handle (test-only).
func NewClientForTest(sqldb *sql.DB) *Client {
	return &Client{sqldb: sqldb}
}
