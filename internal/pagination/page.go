package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gateflow/gateflow/internal/model"
)

// Limit bounds applied server-side. Out-of-range limits are clamped, not
// rejected.
const (
	MinLimit     = 1
	MaxLimit     = 100
	DefaultLimit = 50
)

// ErrInvalidSort is returned when the requested sort field is not in the
// endpoint's whitelist. Every list endpoint rejects unknown fields; there
// is no silent fallback.
var ErrInvalidSort = errors.New("invalid sort field")

// Options declares an endpoint's pagination policy: which fields may be
// sorted on and what the defaults are.
type Options struct {
	AllowedSorts []string
	// NumericSorts names the AllowedSorts entries backed by integer
	// columns. Cursor values for these fields are bound as int64 so the
	// keyset predicate compares numbers, not strings; Postgres and MySQL
	// do not coerce a text parameter against an integer column.
	NumericSorts []string
	DefaultSort  string
	DefaultDesc  bool
	DefaultLimit int // 0 means DefaultLimit
}

// Page is a parsed, validated pagination request.
type Page struct {
	Limit      int
	SortField  string
	Descending bool
	Cursor     *Cursor
	Token      string // the raw cursor token from the request, echoed back

	sortValue interface{} // typed bind value for the cursor position
}

// ParseRequest extracts and validates cursor, limit, and sort parameters
// from the request. Both "sort" and "sort_by" are accepted for the sort
// field, and "sort_order" selects asc/desc.
func ParseRequest(r *http.Request, opts Options) (*Page, error) {
	q := r.URL.Query()

	limit := opts.DefaultLimit
	if limit == 0 {
		limit = DefaultLimit
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid limit %q", raw)
		}
		limit = n
	}
	limit = clamp(limit, MinLimit, MaxLimit)

	sortField := q.Get("sort")
	if sortField == "" {
		sortField = q.Get("sort_by")
	}
	if sortField == "" {
		sortField = opts.DefaultSort
	}
	if !contains(opts.AllowedSorts, sortField) {
		return nil, fmt.Errorf("%w: %q (allowed: %s)", ErrInvalidSort, sortField, strings.Join(opts.AllowedSorts, ", "))
	}

	desc := opts.DefaultDesc
	if raw := q.Get("sort_order"); raw != "" {
		switch strings.ToLower(raw) {
		case "asc":
			desc = false
		case "desc":
			desc = true
		default:
			return nil, fmt.Errorf("invalid sort_order %q (use asc or desc)", raw)
		}
	}

	page := &Page{
		Limit:      limit,
		SortField:  sortField,
		Descending: desc,
	}

	if token := q.Get("cursor"); token != "" {
		c, err := Decode(token)
		if err != nil {
			return nil, err
		}
		page.Cursor = c
		page.Token = token
		page.sortValue = c.SortValue
		if contains(opts.NumericSorts, sortField) {
			n, err := strconv.ParseInt(c.SortValue, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: sort value for %q is not numeric", ErrInvalidCursor, sortField)
			}
			page.sortValue = n
		}
	}

	return page, nil
}

// WhereClause returns the compound keyset predicate restricting the query
// to rows strictly after the cursor in (sortField, id) order, plus its bind
// arguments. Returns an empty clause for the first page.
//
// The tie-break on id is what keeps pages stable when the sort field is
// not unique: two rows sharing a sort value are still totally ordered.
func (p *Page) WhereClause() (string, []interface{}) {
	if p.Cursor == nil {
		return "", nil
	}
	op := ">"
	if p.Descending {
		op = "<"
	}
	clause := fmt.Sprintf("(%s %s ? OR (%s = ? AND id %s ?))",
		p.SortField, op, p.SortField, op)
	v := p.sortValue
	if v == nil {
		v = p.Cursor.SortValue
	}
	return clause, []interface{}{v, v, p.Cursor.RowID}
}

// OrderClause returns the ORDER BY body for the page: the sort field with
// the id tie-break, both in the page direction. The sort field is always
// drawn from the endpoint whitelist, never from raw user input.
func (p *Page) OrderClause() string {
	dir := "ASC"
	if p.Descending {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, id %s", p.SortField, dir, dir)
}

// QueryLimit is the row count to request from the database: one past the
// page size, so BuildPage can tell whether more rows remain.
func (p *Page) QueryLimit() int {
	return p.Limit + 1
}

// BuildPage trims the limit+1 sentinel row and produces the pagination
// metadata. cursorOf extracts the (sortValue, id) cursor from a row; it is
// only called on the last row actually returned.
func BuildPage[T any](rows []T, p *Page, cursorOf func(T) Cursor) ([]T, *model.Pagination) {
	pag := &model.Pagination{
		Cursor: p.Token,
		Limit:  p.Limit,
	}
	if len(rows) > p.Limit {
		rows = rows[:p.Limit]
		token := Encode(cursorOf(rows[len(rows)-1]))
		pag.NextCursor = &token
		pag.HasMore = true
	}
	return rows, pag
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
