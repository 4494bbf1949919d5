package api

import (
	"context"
	"net/http"
)

// GuidanceAPI binds the onboarding wizard endpoints. The analysis calls run
// on the 90 second timeout tier.
type GuidanceAPI struct {
	r Requester
}

// NewGuidanceAPI builds the guidance sub-client on r.
func NewGuidanceAPI(r Requester) *GuidanceAPI {
	return &GuidanceAPI{r: r}
}

// Status reports the wizard progress of the current user.
func (g *GuidanceAPI) Status(ctx context.Context) (GuidanceStatus, error) {
	var status GuidanceStatus
	err := g.r.Request(ctx, Request{Method: http.MethodGet, Endpoint: "/guidance/status", Out: &status})
	return status, err
}

// Start opens a guidance session and lists the selectable focus areas.
func (g *GuidanceAPI) Start(ctx context.Context) (GuidanceStart, error) {
	var start GuidanceStart
	err := g.r.Request(ctx, Request{Method: http.MethodPost, Endpoint: "/guidance/start", Out: &start})
	return start, err
}

// SelectFocus records the chosen focus areas and returns keyword suggestions.
func (g *GuidanceAPI) SelectFocus(ctx context.Context, areas []string) (FocusSelection, error) {
	var sel FocusSelection
	body := map[string][]string{"focus_areas": areas}
	err := g.r.Request(ctx, Request{Method: http.MethodPost, Endpoint: "/guidance/investment-focus", Body: body, Out: &sel})
	return sel, err
}

// AnalyzeKeywords clusters keywords and computes their focus score.
func (g *GuidanceAPI) AnalyzeKeywords(ctx context.Context, focusAreas, keywords []string) (KeywordAnalysis, error) {
	var analysis KeywordAnalysis
	body := map[string][]string{"focus_areas": focusAreas, "keywords": keywords}
	err := g.r.Request(ctx, Request{Method: http.MethodPost, Endpoint: "/guidance/analyze-keywords", Body: body, Out: &analysis})
	return analysis, err
}

// Finalize completes the wizard and creates or updates the subscription.
func (g *GuidanceAPI) Finalize(ctx context.Context, in GuidanceFinalize) (GuidanceResult, error) {
	var result GuidanceResult
	err := g.r.Request(ctx, Request{Method: http.MethodPost, Endpoint: "/guidance/finalize", Body: in, Out: &result})
	return result, err
}

// OptimizationSuggestions proposes keyword changes for an existing subscription.
func (g *GuidanceAPI) OptimizationSuggestions(ctx context.Context) (OptimizationSuggestions, error) {
	var out OptimizationSuggestions
	err := g.r.Request(ctx, Request{Method: http.MethodGet, Endpoint: "/guidance/optimization-suggestions", Out: &out})
	return out, err
}

// History lists past guidance runs.
func (g *GuidanceAPI) History(ctx context.Context) ([]GuidanceHistoryEntry, error) {
	var entries []GuidanceHistoryEntry
	err := g.r.Request(ctx, Request{Method: http.MethodGet, Endpoint: "/guidance/history", Out: &entries})
	return entries, err
}
