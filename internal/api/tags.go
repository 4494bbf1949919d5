package api

import (
	"context"
	"net/http"
)

// TagAPI binds the /tags endpoints.
type TagAPI struct {
	r Requester
}

// NewTagAPI builds the tag sub-client on r.
func NewTagAPI(r Requester) *TagAPI {
	return &TagAPI{r: r}
}

// Catalog lists every known tag.
func (t *TagAPI) Catalog(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	err := t.r.Request(ctx, Request{Method: http.MethodGet, Endpoint: "/tags/", Out: &tags})
	return tags, err
}

// Preferences returns the user's tag opt-ins.
func (t *TagAPI) Preferences(ctx context.Context) (TagPreferences, error) {
	var prefs TagPreferences
	err := t.r.Request(ctx, Request{Method: http.MethodGet, Endpoint: "/tags/user-preferences", Out: &prefs})
	return prefs, err
}

// UpdatePreferences replaces the user's tag opt-ins.
func (t *TagAPI) UpdatePreferences(ctx context.Context, codes []string) (TagPreferences, error) {
	var prefs TagPreferences
	err := t.r.Request(ctx, Request{
		Method:   http.MethodPut,
		Endpoint: "/tags/user-preferences",
		Body:     TagPreferences{TagCodes: codes},
		Out:      &prefs,
	})
	return prefs, err
}

// Preview shows which tags keywords would match.
func (t *TagAPI) Preview(ctx context.Context, keywords []string) (TagPreview, error) {
	var preview TagPreview
	body := map[string][]string{"keywords": keywords}
	err := t.r.Request(ctx, Request{Method: http.MethodPost, Endpoint: "/tags/preview", Body: body, Out: &preview})
	return preview, err
}

// ExplainMatch explains why articleID was pushed to the user.
func (t *TagAPI) ExplainMatch(ctx context.Context, articleID string) (MatchExplanation, error) {
	var exp MatchExplanation
	body := map[string]string{"article_id": articleID}
	err := t.r.Request(ctx, Request{Method: http.MethodPost, Endpoint: "/tags/explain-match", Body: body, Out: &exp})
	return exp, err
}

// Stats returns tag usage statistics.
func (t *TagAPI) Stats(ctx context.Context) (TagStats, error) {
	var stats TagStats
	err := t.r.Request(ctx, Request{Method: http.MethodGet, Endpoint: "/tags/stats", Out: &stats})
	return stats, err
}
