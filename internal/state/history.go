package state

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/five82/digest/internal/api"
)

// DefaultPageSize is the history page length the dashboard requests.
const DefaultPageSize = 20

// HistoryService is the subset of the API the history controller needs.
type HistoryService interface {
	List(ctx context.Context, limit, offset int) (api.HistoryPage, error)
	Stats(ctx context.Context) (api.PushStats, error)
}

// HistoryState is a snapshot of the history controller.
type HistoryState struct {
	Items   []api.PushHistoryItem
	Loading bool
	Error   string
	HasMore bool
	Total   *int

	Stats        *api.PushStats
	StatsLoading bool
	StatsError   string
}

// HistoryController keeps the paginated push history and aggregate stats.
type HistoryController struct {
	svc      HistoryService
	pageSize int

	mu         sync.Mutex
	st         HistoryState
	generation uint64 // bumped on reset; appends from older generations are dropped
}

// NewHistoryController returns a controller requesting pageSize items per page.
func NewHistoryController(svc HistoryService, pageSize int) *HistoryController {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &HistoryController{svc: svc, pageSize: pageSize, st: HistoryState{HasMore: true}}
}

// State returns the current snapshot.
func (c *HistoryController) State() HistoryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.st
	st.Items = append([]api.PushHistoryItem(nil), c.st.Items...)
	return st
}

// FetchHistory loads one page. With reset the list is replaced, otherwise the
// page is appended at offset len(items), skipping ids already present.
func (c *HistoryController) FetchHistory(ctx context.Context, limit int, reset bool) error {
	if limit <= 0 {
		limit = c.pageSize
	}

	c.mu.Lock()
	if reset {
		c.generation++
	}
	gen := c.generation
	offset := 0
	if !reset {
		offset = len(c.st.Items)
	}
	c.st.Loading = true
	c.mu.Unlock()

	page, err := c.svc.List(ctx, limit, offset)

	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil || gen != c.generation {
		return ctx.Err()
	}
	c.st.Loading = false
	if err != nil {
		c.st.Error = api.MessageOf(err)
		log.Printf("[WARN] fetch history: %v", err)
		return err
	}
	c.st.Error = ""

	if reset {
		c.st.Items = nil
	}
	seen := make(map[string]struct{}, len(c.st.Items))
	for _, item := range c.st.Items {
		seen[item.ID] = struct{}{}
	}
	for _, item := range page.Items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		c.st.Items = append(c.st.Items, item)
	}

	c.st.Total = page.Total
	switch {
	case page.HasMore != nil:
		c.st.HasMore = *page.HasMore
	case page.Total != nil:
		c.st.HasMore = len(c.st.Items) < *page.Total
	default:
		// no cursor from the server: a full page suggests another one
		c.st.HasMore = len(page.Items) == limit
	}
	return nil
}

// LoadMore fetches the next page unless a fetch is running or nothing is left.
func (c *HistoryController) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	skip := c.st.Loading || !c.st.HasMore
	c.mu.Unlock()
	if skip {
		return nil
	}
	return c.FetchHistory(ctx, c.pageSize, false)
}

// FetchStats loads the aggregate statistics.
func (c *HistoryController) FetchStats(ctx context.Context) error {
	c.mu.Lock()
	c.st.StatsLoading = true
	c.mu.Unlock()

	stats, err := c.svc.Stats(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.st.StatsLoading = false
	if err != nil {
		c.st.StatsError = api.MessageOf(err)
		log.Printf("[WARN] fetch history stats: %v", err)
		return err
	}
	c.st.StatsError = ""
	c.st.Stats = &stats
	return nil
}

// Refresh clears the list and reloads the first page and the stats in parallel.
func (c *HistoryController) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.st.Items = nil
	c.st.HasMore = true
	c.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error { return c.FetchHistory(ctx, c.pageSize, true) })
	g.Go(func() error { return c.FetchStats(ctx) })
	return g.Wait()
}

// Reset forgets everything, for example after sign-out.
func (c *HistoryController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.st = HistoryState{HasMore: true}
}
