package listquery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/atinyakov/opsconsole/internal/client/api"
)

// PaymentsPath and PaymentsKey locate the payments collection.
const (
	PaymentsPath = "/admin/payments"
	PaymentsKey  = "payments"
)

// Doer executes an API request.
type Doer interface {
	Execute(ctx context.Context, req api.Request) api.Outcome
}

// Pagination is the server's paging summary.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is one successfully fetched page.
type Page struct {
	Items      []json.RawMessage `json:"items"`
	Pagination Pagination        `json:"pagination"`
	Stats      json.RawMessage   `json:"stats,omitempty"`
}

// DecodeItems decodes the items of p into T.
func DecodeItems[T any](p *Page) ([]T, error) {
	out := make([]T, 0, len(p.Items))
	for i, raw := range p.Items {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("decode item %d: %w", i, err)
		}
		out = append(out, item)
	}
	return out, nil
}

// Fetcher fetches pages of one collection.
type Fetcher struct {
	doer     Doer
	path     string
	itemsKey string
}

// NewFetcher returns a Fetcher for the collection served at path, whose
// items are listed under itemsKey in the response data.
func NewFetcher(doer Doer, path, itemsKey string) *Fetcher {
	return &Fetcher{doer: doer, path: path, itemsKey: itemsKey}
}

// NewPaymentsFetcher returns a Fetcher for the payments list.
func NewPaymentsFetcher(doer Doer) *Fetcher {
	return NewFetcher(doer, PaymentsPath, PaymentsKey)
}

// FetchPage issues exactly one request for st. The page is non-nil only
// when the outcome is api.Success. NeedsLogin is returned as is and
// never retried.
func (f *Fetcher) FetchPage(ctx context.Context, st State) (*Page, api.Outcome) {
	out := f.doer.Execute(ctx, api.Request{
		Method: http.MethodGet,
		Path:   f.path,
		Query:  st.Values(),
	})
	ok, isSuccess := out.(api.Success)
	if !isSuccess {
		return nil, out
	}

	page, err := f.decode(ok.Data)
	if err != nil {
		return nil, api.UnexpectedError{Message: "invalid list payload: " + err.Error(), StatusCode: http.StatusOK}
	}
	return page, ok
}

func (f *Fetcher) decode(data json.RawMessage) (*Page, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	page := &Page{Items: []json.RawMessage{}, Stats: fields["stats"]}
	if raw, ok := fields[f.itemsKey]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &page.Items); err != nil {
			return nil, fmt.Errorf("%s: %w", f.itemsKey, err)
		}
	}
	if raw, ok := fields["pagination"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &page.Pagination); err != nil {
			return nil, fmt.Errorf("pagination: %w", err)
		}
	}
	return page, nil
}
