// Package pagination implements page-number pagination over any countable,
// windowable sequence. The same paginator drives the admin JSON API
// (page/page_size, {count,next,previous,results}) and the FHIR API
// (_page/_count, searchset Bundle), differing only in parameter names and
// response rendering.
package pagination

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

// ErrPageOutOfRange is returned when the requested page starts beyond the
// last row of a non-empty result set.
var ErrPageOutOfRange = errors.New("pagination: page out of range")

// ErrNegativeBound mirrors rawsql: in-memory sequences reject negative
// windows the same way raw SQL ones do.
var ErrNegativeBound = errors.New("pagination: negative window bounds are not supported")

// ErrInvalidBounds mirrors rawsql: a window whose stop precedes its start is
// rejected, never silently emptied.
var ErrInvalidBounds = errors.New("pagination: window stop precedes start")

// Sequence is a countable, windowable result sequence. Both
// rawsql.ResultSet and the in-memory SliceSequence satisfy it, so the
// paginator does not care whether rows come from a hand-written SQL statement
// or an already-materialized list.
type Sequence[T any] interface {
	Count(ctx context.Context) (int, error)
	Window(ctx context.Context, start, stop int) ([]T, error)
}

// Config names the query parameters and size limits of a pagination style.
type Config struct {
	PageParam   string
	SizeParam   string
	DefaultSize int
	MaxSize     int
}

// Admin is the admin JSON API style: ?page=N&page_size=M.
var Admin = Config{PageParam: "page", SizeParam: "page_size", DefaultSize: 20, MaxSize: 1000}

// FHIR is the FHIR search style: ?_page=N&_count=M.
var FHIR = Config{PageParam: "_page", SizeParam: "_count", DefaultSize: 20, MaxSize: 1000}

// Params is a validated (page, size) pair. Page is 1-based.
type Params struct {
	Page int
	Size int
	cfg  Config
}

// FromContext extracts pagination parameters from the request. Malformed or
// missing values fall back to defaults; oversized page sizes are clamped to
// MaxSize rather than rejected.
func (cfg Config) FromContext(c echo.Context) Params {
	return cfg.FromValues(c.QueryParams())
}

// FromValues is FromContext over already-parsed query values.
func (cfg Config) FromValues(q url.Values) Params {
	page, _ := strconv.Atoi(q.Get(cfg.PageParam))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(q.Get(cfg.SizeParam))
	if size < 1 {
		size = cfg.DefaultSize
	}
	if size > cfg.MaxSize {
		size = cfg.MaxSize
	}
	return Params{Page: page, Size: size, cfg: cfg}
}

// Page is one page of results plus the totals needed to compute links.
type Page[T any] struct {
	Items  []T
	Number int
	Size   int
	Total  int

	cfg Config
}

// Paginate slices the sequence for the requested page. It issues one count
// and at most one window fetch; an empty result set skips the fetch entirely.
// Requesting a page past the end of a non-empty set is ErrPageOutOfRange.
func Paginate[T any](ctx context.Context, seq Sequence[T], p Params) (*Page[T], error) {
	total, err := seq.Count(ctx)
	if err != nil {
		return nil, err
	}

	start := (p.Page - 1) * p.Size
	page := &Page[T]{Number: p.Page, Size: p.Size, Total: total, cfg: p.cfg}

	if total == 0 {
		if p.Page > 1 {
			return nil, ErrPageOutOfRange
		}
		page.Items = []T{}
		return page, nil
	}
	if start >= total {
		return nil, ErrPageOutOfRange
	}

	items, err := seq.Window(ctx, start, start+p.Size)
	if err != nil {
		return nil, err
	}
	page.Items = items
	return page, nil
}

// TotalPages is ceil(Total/Size), with the FHIR idiom that an empty but valid
// search still has one page.
func (p *Page[T]) TotalPages() int {
	if p.Total == 0 {
		return 1
	}
	pages := p.Total / p.Size
	if p.Total%p.Size != 0 {
		pages++
	}
	return pages
}

// HasNext reports whether rows exist beyond this page.
func (p *Page[T]) HasNext() bool { return p.Number*p.Size < p.Total }

// HasPrevious reports whether this is not the first page.
func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }

// NextURL returns the link to the following page, or nil on the last page.
// Links are computed purely from the request URL: the page parameter is
// substituted and every other query parameter is preserved.
func (p *Page[T]) NextURL(requestURL *url.URL) *string {
	if !p.HasNext() {
		return nil
	}
	return p.pageURL(requestURL, p.Number+1)
}

// PreviousURL returns the link to the preceding page, or nil on page 1.
func (p *Page[T]) PreviousURL(requestURL *url.URL) *string {
	if !p.HasPrevious() {
		return nil
	}
	return p.pageURL(requestURL, p.Number-1)
}

func (p *Page[T]) pageURL(requestURL *url.URL, number int) *string {
	u := *requestURL
	q := u.Query()
	q.Set(p.cfg.PageParam, strconv.Itoa(number))
	q.Set(p.cfg.SizeParam, strconv.Itoa(p.Size))
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}

// Link is a named pagination link.
type Link struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

// Links returns only the navigable links for this page: previous is omitted
// on page 1, next is omitted on the last page. No placeholder entries.
func (p *Page[T]) Links(requestURL *url.URL) []Link {
	links := []Link{}
	if prev := p.PreviousURL(requestURL); prev != nil {
		links = append(links, Link{Relation: "previous", URL: *prev})
	}
	if next := p.NextURL(requestURL); next != nil {
		links = append(links, Link{Relation: "next", URL: *next})
	}
	return links
}

// RequestURL reconstructs the absolute URL of the in-flight request so links
// match what the client asked for.
func RequestURL(c echo.Context) *url.URL {
	u := *c.Request().URL
	if u.Host == "" {
		u.Host = c.Request().Host
	}
	if u.Scheme == "" {
		u.Scheme = c.Scheme()
	}
	return &u
}

// Envelope is the admin list response shape.
type Envelope struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// NewEnvelope renders a page as the admin envelope. results is the serialized
// form of page.Items; passing it separately keeps serialization out of the
// paginator.
func NewEnvelope[T any](page *Page[T], requestURL *url.URL, results any) Envelope {
	return Envelope{
		Count:    page.Total,
		Next:     page.NextURL(requestURL),
		Previous: page.PreviousURL(requestURL),
		Results:  results,
	}
}

// Meta is the FHIR Bundle meta.pagination block.
type Meta struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// MetaOf extracts the FHIR pagination metadata for a page.
func MetaOf[T any](page *Page[T]) Meta {
	return Meta{Page: page.Number, PageSize: page.Size, TotalPages: page.TotalPages()}
}

// SliceSequence adapts an in-memory slice (an ORM-materialized list, fixture
// data) to Sequence, with the same bounds rules as raw SQL windows.
type SliceSequence[T any] []T

func (s SliceSequence[T]) Count(context.Context) (int, error) { return len(s), nil }

func (s SliceSequence[T]) Window(_ context.Context, start, stop int) ([]T, error) {
	if start < 0 || stop < 0 {
		return nil, ErrNegativeBound
	}
	if stop < start {
		return nil, ErrInvalidBounds
	}
	if start > len(s) {
		start = len(s)
	}
	if stop > len(s) {
		stop = len(s)
	}
	return s[start:stop], nil
}
