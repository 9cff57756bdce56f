// Package database implements the SQL query operation over an explicitly
// owned database/sql handle. The handle's lifetime is tied to host startup
// and shutdown; no package-level state exists.
//
// The operation executes caller-provided SQL verbatim. No sanitization is
// applied here; the host is a trusted-operator tool and injection safety is
// the deployment's responsibility (see README).
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/trialbridge/toolhost/host"
)

// QueryResult is the uniform shape returned by execute_query: column names
// and heterogeneous row cells, plus a row count.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Count   int      `json:"count"`
}

// Querier serves SQL queries against one shared connection pool. The loop
// runs one call at a time, so the pool sees no interleaved reads; if calls
// are ever pipelined, database/sql's per-connection serialization holds.
type Querier struct {
	db *sql.DB
}

// New wraps an opened database handle. The caller keeps ownership of
// closing it.
func New(db *sql.DB) (*Querier, error) {
	if db == nil {
		return nil, errors.New("database: db handle is required")
	}
	return &Querier{db: db}, nil
}

// Operations returns the operation set this querier serves.
func (q *Querier) Operations() []host.Operation {
	return []host.Operation{
		{
			Name:        "execute_query",
			Description: "Execute SQL query on clinical trial database. Returns columns, rows, and count.",
			Input: host.InputSchema{
				"sql": {
					Type:        host.TypeString,
					Required:    true,
					Description: "SQL SELECT query to execute",
				},
			},
			Handler: q.executeQuery,
		},
	}
}

func (q *Querier) executeQuery(ctx context.Context, args host.Args) (any, error) {
	rows, err := q.db.QueryContext(ctx, args.String("sql"))
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := QueryResult{
		Columns: columns,
		Rows:    make([][]any, 0),
	}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	result.Count = len(result.Rows)
	return result, nil
}

// Name identifies the querier's health probe.
func (q *Querier) Name() string { return "database" }

// Check pings the connection pool.
func (q *Querier) Check(ctx context.Context) error {
	return q.db.PingContext(ctx)
}

var _ host.Probe = (*Querier)(nil)
