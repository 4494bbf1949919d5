package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// HistoryAPI binds the /history endpoints.
type HistoryAPI struct {
	r Requester
}

// NewHistoryAPI builds the history sub-client on r.
func NewHistoryAPI(r Requester) *HistoryAPI {
	return &HistoryAPI{r: r}
}

// List returns up to limit history items starting at offset.
func (h *HistoryAPI) List(ctx context.Context, limit, offset int) (HistoryPage, error) {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		values.Set("offset", strconv.Itoa(offset))
	}
	var page HistoryPage
	err := h.r.Request(ctx, Request{Method: http.MethodGet, Endpoint: "/history/", Query: values, Out: &page})
	return page, err
}

// Stats returns aggregate push statistics.
func (h *HistoryAPI) Stats(ctx context.Context) (PushStats, error) {
	var stats PushStats
	err := h.r.Request(ctx, Request{Method: http.MethodGet, Endpoint: "/history/stats", Out: &stats})
	return stats, err
}
