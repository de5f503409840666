// Package listquery fetches filtered, paginated and sorted collections
// from the admin API.
package listquery

import (
	"maps"
	"net/url"
	"strconv"
)

// Defaults applied to a zero State.
const (
	DefaultLimit     = 10
	DefaultSortBy    = "created_at"
	DefaultSortOrder = SortDesc
)

// SortOrder is the sort direction sent as sort_order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Valid reports whether o is a known direction.
func (o SortOrder) Valid() bool {
	return o == SortAsc || o == SortDesc
}

// State is the query of one list view. It is a value: the With methods
// return modified copies and never share the filter map.
type State struct {
	Filters   map[string]string
	Page      int
	Limit     int
	SortBy    string
	SortOrder SortOrder
}

// NewState returns the first page with the given page size and the
// default sort.
func NewState(limit int) State {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return State{
		Filters:   map[string]string{},
		Page:      1,
		Limit:     limit,
		SortBy:    DefaultSortBy,
		SortOrder: DefaultSortOrder,
	}
}

// WithFilter sets filter name to value and goes back to the first page.
// An empty value removes the filter.
func (s State) WithFilter(name, value string) State {
	filters := maps.Clone(s.Filters)
	if filters == nil {
		filters = map[string]string{}
	}
	if value == "" {
		delete(filters, name)
	} else {
		filters[name] = value
	}
	s.Filters = filters
	s.Page = 1
	return s
}

// WithPage moves to page, keeping every filter.
func (s State) WithPage(page int) State {
	s.Filters = maps.Clone(s.Filters)
	s.Page = page
	return s
}

// WithLimit changes the page size and goes back to the first page.
func (s State) WithLimit(limit int) State {
	s.Filters = maps.Clone(s.Filters)
	s.Limit = limit
	s.Page = 1
	return s
}

// WithSort changes the sort and goes back to the first page.
func (s State) WithSort(by string, order SortOrder) State {
	s.Filters = maps.Clone(s.Filters)
	s.SortBy = by
	s.SortOrder = order
	s.Page = 1
	return s
}

// Values builds the outgoing query. Filters with an empty value are
// left out; page, limit, sort_by and sort_order are always present.
func (s State) Values() url.Values {
	v := url.Values{}
	for name, value := range s.Filters {
		if value == "" {
			continue
		}
		v.Set(name, value)
	}

	page := s.Page
	if page < 1 {
		page = 1
	}
	limit := s.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	sortBy := s.SortBy
	if sortBy == "" {
		sortBy = DefaultSortBy
	}
	order := s.SortOrder
	if !order.Valid() {
		order = DefaultSortOrder
	}

	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	v.Set("sort_by", sortBy)
	v.Set("sort_order", string(order))
	return v
}
