package rawsql

import (
	"errors"
	"testing"
)

func TestStatementAppendsOrderBy(t *testing.T) {
	q := NewQuery(`SELECT id FROM observation WHERE status = $1`, "final").WithOrderBy("id")
	text, args := q.Statement()

	want := `SELECT id FROM observation WHERE status = $1 ORDER BY id`
	if text != want {
		t.Errorf("Statement() = %q, want %q", text, want)
	}
	if len(args) != 1 || args[0] != "final" {
		t.Errorf("Statement() args = %v, want [final]", args)
	}
}

func TestCountStatementWrapsSubquery(t *testing.T) {
	q := NewQuery(`SELECT id FROM observation WHERE status = $1`, "final").WithOrderBy("id")
	text, args := q.CountStatement()

	want := `SELECT COUNT(*) FROM (SELECT id FROM observation WHERE status = $1) AS _sub`
	if text != want {
		t.Errorf("CountStatement() = %q, want %q", text, want)
	}
	if len(args) != 1 {
		t.Errorf("CountStatement() args = %v, want 1 arg", args)
	}
}

func TestSliceRejectsNegativeBounds(t *testing.T) {
	q := NewQuery(`SELECT id FROM observation`)

	if _, err := q.Slice(-1, 10); !errors.Is(err, ErrNegativeBound) {
		t.Errorf("Slice(-1, 10) error = %v, want ErrNegativeBound", err)
	}
	if _, err := q.Slice(0, -5); !errors.Is(err, ErrNegativeBound) {
		t.Errorf("Slice(0, -5) error = %v, want ErrNegativeBound", err)
	}
}

func TestSliceRejectsInvertedBounds(t *testing.T) {
	q := NewQuery(`SELECT id FROM observation`)
	if _, err := q.Slice(10, 5); !errors.Is(err, ErrInvalidBounds) {
		t.Errorf("Slice(10, 5) error = %v, want ErrInvalidBounds", err)
	}
}

func TestSlicedStatementBindsLimitAndOffset(t *testing.T) {
	q := NewQuery(`SELECT id FROM observation WHERE status = $1`, "final").WithOrderBy("id")

	sliced, err := q.Slice(20, 30)
	if err != nil {
		t.Fatalf("Slice(20, 30) error = %v", err)
	}
	text, args := sliced.Statement()

	want := `SELECT id FROM observation WHERE status = $1 ORDER BY id LIMIT $2 OFFSET $3`
	if text != want {
		t.Errorf("Statement() = %q, want %q", text, want)
	}
	if len(args) != 3 || args[1] != 10 || args[2] != 20 {
		t.Errorf("Statement() args = %v, want [final 10 20]", args)
	}
}

func TestSlicedStatementOmitsZeroOffset(t *testing.T) {
	q := NewQuery(`SELECT id FROM observation`).WithOrderBy("id")

	sliced, err := q.Slice(0, 20)
	if err != nil {
		t.Fatalf("Slice(0, 20) error = %v", err)
	}
	text, args := sliced.Statement()

	want := `SELECT id FROM observation ORDER BY id LIMIT $1`
	if text != want {
		t.Errorf("Statement() = %q, want %q", text, want)
	}
	if len(args) != 1 || args[0] != 20 {
		t.Errorf("Statement() args = %v, want [20]", args)
	}
}

func TestSliceDoesNotMutateBaseQuery(t *testing.T) {
	q := NewQuery(`SELECT id FROM observation WHERE status = $1`, "final").WithOrderBy("id")

	if _, err := q.Slice(10, 20); err != nil {
		t.Fatalf("Slice(10, 20) error = %v", err)
	}

	text, args := q.Statement()
	if text != `SELECT id FROM observation WHERE status = $1 ORDER BY id` {
		t.Errorf("base query text changed after Slice: %q", text)
	}
	if len(args) != 1 {
		t.Errorf("base query args changed after Slice: %v", args)
	}
}
