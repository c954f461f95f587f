package rawsql

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Queryer is the subset of pgxpool.Pool the result set needs. Tests substitute
// a capturing fake; production code passes the pool or a transaction.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ScanFunc decodes the current row of a pgx.Rows into a value.
type ScanFunc[T any] func(rows pgx.Rows) (T, error)

// ResultSet adapts a Query into a lazy sequence: counting and windowing each
// cost exactly one round trip, and nothing is executed until one of them is
// called. A ResultSet is request-scoped and not safe for concurrent use.
type ResultSet[T any] struct {
	db    Queryer
	query Query
	scan  ScanFunc[T]

	total *int
}

// NewResultSet binds a query to a connection and a row decoder.
func NewResultSet[T any](db Queryer, query Query, scan ScanFunc[T]) *ResultSet[T] {
	return &ResultSet[T]{db: db, query: query, scan: scan}
}

// Query returns the underlying unsliced query.
func (rs *ResultSet[T]) Query() Query { return rs.query }

// Count executes SELECT COUNT(*) over the query once and memoizes the result.
// Result rows are never fetched or decoded.
func (rs *ResultSet[T]) Count(ctx context.Context) (int, error) {
	if rs.total != nil {
		return *rs.total, nil
	}
	text, args := rs.query.CountStatement()
	var n int
	if err := rs.db.QueryRow(ctx, text, args...).Scan(&n); err != nil {
		return 0, err
	}
	rs.total = &n
	return n, nil
}

// Window materializes the [start, stop) rows with a single LIMIT/OFFSET
// query. Bounds follow Query.Slice semantics.
func (rs *ResultSet[T]) Window(ctx context.Context, start, stop int) ([]T, error) {
	sliced, err := rs.query.Slice(start, stop)
	if err != nil {
		return nil, err
	}
	text, args := sliced.Statement()
	rows, err := rs.db.Query(ctx, text, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []T
	for rows.Next() {
		item, err := rs.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// At returns the single row at index i, or ErrNoRow when the window is empty.
// Negative indices are rejected by the underlying slice.
func (rs *ResultSet[T]) At(ctx context.Context, i int) (T, error) {
	var zero T
	items, err := rs.Window(ctx, i, i+1)
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, ErrNoRow
	}
	return items[0], nil
}
