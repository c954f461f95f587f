package pagination

import (
	"context"
	"errors"
	"net/url"
	"testing"
)

// -- Counting sequence --

// countingSequence wraps a SliceSequence and tallies round trips.
type countingSequence struct {
	data    SliceSequence[int]
	counts  int
	windows int
}

func (s *countingSequence) Count(ctx context.Context) (int, error) {
	s.counts++
	return s.data.Count(ctx)
}

func (s *countingSequence) Window(ctx context.Context, start, stop int) ([]int, error) {
	s.windows++
	return s.data.Window(ctx, start, stop)
}

func ints(n int) SliceSequence[int] {
	out := make(SliceSequence[int], n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func params(cfg Config, page, size string) Params {
	q := url.Values{}
	if page != "" {
		q.Set(cfg.PageParam, page)
	}
	if size != "" {
		q.Set(cfg.SizeParam, size)
	}
	return cfg.FromValues(q)
}

// -- Parameter parsing --

func TestFromValuesDefaults(t *testing.T) {
	p := params(Admin, "", "")
	if p.Page != 1 || p.Size != 20 {
		t.Errorf("defaults = page %d size %d, want page 1 size 20", p.Page, p.Size)
	}
}

func TestFromValuesMalformedFallsBack(t *testing.T) {
	p := params(Admin, "banana", "-3")
	if p.Page != 1 || p.Size != 20 {
		t.Errorf("malformed = page %d size %d, want page 1 size 20", p.Page, p.Size)
	}
}

func TestFromValuesClampsOversize(t *testing.T) {
	p := params(Admin, "2", "5000")
	if p.Size != 1000 {
		t.Errorf("size = %d, want clamp to 1000", p.Size)
	}
}

func TestFHIRParamNames(t *testing.T) {
	q := url.Values{}
	q.Set("_page", "3")
	q.Set("_count", "50")
	p := FHIR.FromValues(q)
	if p.Page != 3 || p.Size != 50 {
		t.Errorf("FHIR params = page %d size %d, want page 3 size 50", p.Page, p.Size)
	}
}

// -- Paginate --

func TestPaginateRoundTripConcatenation(t *testing.T) {
	const total, size = 101, 10
	seq := ints(total)
	ctx := context.Background()

	var got []int
	for page := 1; ; page++ {
		p, err := Paginate(ctx, seq, Params{Page: page, Size: size, cfg: Admin})
		if err != nil {
			if errors.Is(err, ErrPageOutOfRange) {
				break
			}
			t.Fatalf("page %d: %v", page, err)
		}
		got = append(got, p.Items...)
	}

	if len(got) != total {
		t.Fatalf("concatenated %d items, want %d", len(got), total)
	}
	for i, v := range got {
		if v != i+1 {
			t.Fatalf("item %d = %d, want %d: pages overlap or skip", i, v, i+1)
		}
	}
}

func TestPaginateLastPartialPage(t *testing.T) {
	seq := ints(101)
	p, err := Paginate(context.Background(), seq, Params{Page: 11, Size: 10, cfg: Admin})
	if err != nil {
		t.Fatalf("page 11: %v", err)
	}

	if len(p.Items) != 1 || p.Items[0] != 101 {
		t.Errorf("page 11 items = %v, want [101]", p.Items)
	}
	if p.HasNext() {
		t.Error("page 11 of 101/10 should have no next page")
	}
	if !p.HasPrevious() {
		t.Error("page 11 should have a previous page")
	}

	links := p.Links(mustURL(t, "http://localhost/api/v1/observations?page=11&page_size=10"))
	if len(links) != 1 || links[0].Relation != "previous" {
		t.Errorf("links = %v, want previous only", links)
	}
}

func TestPaginatePastEnd(t *testing.T) {
	seq := ints(30)
	_, err := Paginate(context.Background(), seq, Params{Page: 4, Size: 10, cfg: Admin})
	if !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("page past end error = %v, want ErrPageOutOfRange", err)
	}
}

func TestPaginateEmptyFirstPage(t *testing.T) {
	cs := &countingSequence{data: ints(0)}
	p, err := Paginate(context.Background(), cs, Params{Page: 1, Size: 20, cfg: FHIR})
	if err != nil {
		t.Fatalf("empty page 1: %v", err)
	}

	if p.Items == nil || len(p.Items) != 0 {
		t.Errorf("empty page items = %#v, want empty non-nil slice", p.Items)
	}
	if p.TotalPages() != 1 {
		t.Errorf("TotalPages() = %d, want 1 for empty set", p.TotalPages())
	}
	if cs.windows != 0 {
		t.Errorf("empty set fetched a window; want count only")
	}
	if links := p.Links(mustURL(t, "http://localhost/fhir/r5/Observation?_page=1")); len(links) != 0 {
		t.Errorf("empty page links = %v, want none", links)
	}
}

func TestPaginateEmptyPastFirstPage(t *testing.T) {
	seq := ints(0)
	_, err := Paginate(context.Background(), seq, Params{Page: 2, Size: 20, cfg: Admin})
	if !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("empty set page 2 error = %v, want ErrPageOutOfRange", err)
	}
}

func TestPaginateQueryBudget(t *testing.T) {
	cs := &countingSequence{data: ints(55)}
	_, err := Paginate(context.Background(), cs, Params{Page: 2, Size: 10, cfg: Admin})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if cs.counts != 1 {
		t.Errorf("issued %d counts, want 1", cs.counts)
	}
	if cs.windows != 1 {
		t.Errorf("issued %d window fetches, want 1", cs.windows)
	}
}

func TestPaginateQueryBudgetLargeSet(t *testing.T) {
	cs := &countingSequence{data: ints(10_000)}
	p, err := Paginate(context.Background(), cs, Params{Page: 400, Size: 20, cfg: Admin})
	if err != nil {
		t.Fatalf("page 400 of 10000: %v", err)
	}
	if cs.counts != 1 || cs.windows != 1 {
		t.Errorf("issued %d counts and %d windows, want 1 and 1 regardless of set size", cs.counts, cs.windows)
	}
	if len(p.Items) != 20 {
		t.Fatalf("page 400 items = %d, want 20", len(p.Items))
	}
	if p.Items[0] != 7981 || p.Items[19] != 8000 {
		t.Errorf("page 400 spans %d..%d, want 7981..8000", p.Items[0], p.Items[19])
	}
	if p.TotalPages() != 500 {
		t.Errorf("TotalPages() = %d, want 500", p.TotalPages())
	}
}

// -- Totals and links --

func TestTotalPagesCeiling(t *testing.T) {
	cases := []struct {
		total, size, want int
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{101, 10, 11},
	}
	for _, c := range cases {
		p := &Page[int]{Total: c.total, Size: c.size, Number: 1}
		if got := p.TotalPages(); got != c.want {
			t.Errorf("TotalPages(total=%d, size=%d) = %d, want %d", c.total, c.size, got, c.want)
		}
	}
}

func TestPageURLPreservesOtherParams(t *testing.T) {
	p := &Page[int]{Number: 2, Size: 10, Total: 35, cfg: Admin}
	u := mustURL(t, "http://localhost/api/v1/observations?study=7&page=2&page_size=10")

	next := p.NextURL(u)
	if next == nil {
		t.Fatal("NextURL() = nil, want link")
	}
	parsed := mustURL(t, *next)
	q := parsed.Query()
	if q.Get("page") != "3" || q.Get("page_size") != "10" || q.Get("study") != "7" {
		t.Errorf("next link query = %v", q)
	}

	prev := p.PreviousURL(u)
	if prev == nil {
		t.Fatal("PreviousURL() = nil, want link")
	}
	if q := mustURL(t, *prev).Query(); q.Get("page") != "1" {
		t.Errorf("previous link query = %v", q)
	}
}

func TestEnvelopeShape(t *testing.T) {
	seq := ints(5)
	p, err := Paginate(context.Background(), seq, Params{Page: 1, Size: 20, cfg: Admin})
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}

	env := NewEnvelope(p, mustURL(t, "http://localhost/api/v1/organizations"), p.Items)
	if env.Count != 5 {
		t.Errorf("Count = %d, want 5", env.Count)
	}
	if env.Next != nil || env.Previous != nil {
		t.Errorf("single-page envelope has links: next=%v previous=%v", env.Next, env.Previous)
	}
}

// -- SliceSequence --

func TestSliceSequenceRejectsNegativeWindow(t *testing.T) {
	seq := ints(10)
	if _, err := seq.Window(context.Background(), -1, 5); !errors.Is(err, ErrNegativeBound) {
		t.Errorf("Window(-1, 5) error = %v, want ErrNegativeBound", err)
	}
}

func TestSliceSequenceRejectsInvertedWindow(t *testing.T) {
	seq := ints(10)
	if _, err := seq.Window(context.Background(), 5, 2); !errors.Is(err, ErrInvalidBounds) {
		t.Errorf("Window(5, 2) error = %v, want ErrInvalidBounds", err)
	}
}

func TestSliceSequenceClampsOverrun(t *testing.T) {
	seq := ints(3)
	items, err := seq.Window(context.Background(), 2, 10)
	if err != nil {
		t.Fatalf("Window(2, 10) error = %v", err)
	}
	if len(items) != 1 || items[0] != 3 {
		t.Errorf("Window(2, 10) = %v, want [3]", items)
	}
}
