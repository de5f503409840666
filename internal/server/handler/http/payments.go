package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/atinyakov/opsconsole/internal/client/api"
	"github.com/atinyakov/opsconsole/internal/client/listquery"
)

// PaymentsService fetches pages of the payments list.
type PaymentsService interface {
	FetchPage(context.Context, listquery.State) (*listquery.Page, api.Outcome)
}

// PaymentsHandler handles HTTP requests for the payments list.
type PaymentsHandler struct {
	PaymentsService PaymentsService
	// Limit is the page size used when the request does not set one.
	Limit int
}

// List handles GET /api/payments. page, limit, sort_by and sort_order
// select the page; every other query parameter is a filter.
func (h *PaymentsHandler) List(w http.ResponseWriter, r *http.Request) {
	st, err := h.parseState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, out := h.PaymentsService.FetchPage(r.Context(), st)
	if page == nil {
		writeOutcome(w, out)
		return
	}

	success, err := api.NewSuccess(out.Result().Message, page)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode page")
		return
	}
	writeOutcome(w, success)
}

func (h *PaymentsHandler) parseState(r *http.Request) (listquery.State, error) {
	st := listquery.NewState(h.Limit)
	q := r.URL.Query()

	for name := range q {
		switch name {
		case "page", "limit", "sort_by", "sort_order":
		default:
			st = st.WithFilter(name, q.Get(name))
		}
	}
	if v := q.Get("sort_by"); v != "" {
		order := listquery.SortOrder(q.Get("sort_order"))
		if order == "" {
			order = listquery.DefaultSortOrder
		}
		if !order.Valid() {
			return st, errors.New("invalid sort_order")
		}
		st = st.WithSort(v, order)
	} else if v := q.Get("sort_order"); v != "" {
		order := listquery.SortOrder(v)
		if !order.Valid() {
			return st, errors.New("invalid sort_order")
		}
		st = st.WithSort(st.SortBy, order)
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return st, errors.New("invalid limit")
		}
		st = st.WithLimit(n)
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return st, errors.New("invalid page")
		}
		st = st.WithPage(n)
	}
	return st, nil
}
