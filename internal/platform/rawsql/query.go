// Package rawsql models hand-written SQL statements as lazy, countable,
// windowable sequences. Queries are value types: slicing never mutates the
// original statement or its parameters, and a sliced query is a distinct type
// that cannot be sliced again.
package rawsql

import (
	"errors"
	"fmt"
)

var (
	// ErrNegativeBound is returned when a window is requested with a
	// negative start or stop. Raw SQL has no notion of negative indexing.
	ErrNegativeBound = errors.New("rawsql: negative window bounds are not supported")

	// ErrInvalidBounds is returned when stop precedes start.
	ErrInvalidBounds = errors.New("rawsql: window stop precedes start")

	// ErrNoRow is returned by single-row lookups that match nothing.
	ErrNoRow = errors.New("rawsql: no row at requested index")
)

// Query is an immutable raw SQL statement with bound positional parameters
// and a mandatory ORDER BY expression. LIMIT/OFFSET pagination without a
// stable order can skip or duplicate rows across pages, so the order clause
// is part of the query contract rather than an afterthought in the text.
type Query struct {
	text    string
	args    []any
	orderBy string
}

// NewQuery builds a Query from SQL text and positional $n arguments. The text
// must not already carry ORDER BY, LIMIT or OFFSET clauses; those belong to
// WithOrderBy and Slice.
func NewQuery(text string, args ...any) Query {
	return Query{text: text, args: args}
}

// WithOrderBy returns a copy of the query ordered by the given expression,
// e.g. "o.id" or "created_at DESC". The expression is appended verbatim and
// must never contain caller-supplied input.
func (q Query) WithOrderBy(expr string) Query {
	q.orderBy = expr
	return q
}

// Args returns the bound arguments.
func (q Query) Args() []any { return q.args }

// Statement returns the executable SQL and its arguments, including the
// ORDER BY clause when one is set.
func (q Query) Statement() (string, []any) {
	text := q.text
	if q.orderBy != "" {
		text += " ORDER BY " + q.orderBy
	}
	return text, q.args
}

// CountStatement wraps the query in SELECT COUNT(*) so the total can be
// computed without fetching or decoding result rows. The ORDER BY clause is
// dropped inside the subquery; it cannot change the count.
func (q Query) CountStatement() (string, []any) {
	return "SELECT COUNT(*) FROM (" + q.text + ") AS _sub", q.args
}

// Slice returns the [start, stop) window of the query as a SlicedQuery.
// Bounds must be non-negative with stop >= start. Because SlicedQuery has no
// Slice method, applying a second LIMIT/OFFSET is a compile-time error rather
// than a silently corrupted statement.
func (q Query) Slice(start, stop int) (SlicedQuery, error) {
	if start < 0 || stop < 0 {
		return SlicedQuery{}, ErrNegativeBound
	}
	if stop < start {
		return SlicedQuery{}, fmt.Errorf("%w: [%d, %d)", ErrInvalidBounds, start, stop)
	}
	return SlicedQuery{base: q, limit: stop - start, offset: start}, nil
}

// SlicedQuery is a Query carrying exactly one LIMIT/OFFSET window.
type SlicedQuery struct {
	base   Query
	limit  int
	offset int
}

// Limit returns the window size.
func (s SlicedQuery) Limit() int { return s.limit }

// Offset returns the window start.
func (s SlicedQuery) Offset() int { return s.offset }

// Statement returns the executable SQL with LIMIT/OFFSET bound as trailing
// positional parameters. OFFSET is omitted when zero, matching the plan the
// planner would pick anyway and keeping first-page statements minimal.
func (s SlicedQuery) Statement() (string, []any) {
	text, args := s.base.Statement()
	out := make([]any, len(args), len(args)+2)
	copy(out, args)

	n := len(args)
	text += fmt.Sprintf(" LIMIT $%d", n+1)
	out = append(out, s.limit)
	if s.offset > 0 {
		text += fmt.Sprintf(" OFFSET $%d", n+2)
		out = append(out, s.offset)
	}
	return text, out
}
