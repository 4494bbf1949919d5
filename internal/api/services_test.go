package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	method string
	path   string
	query  url.Values
	body   string
}

func newRecordingServer(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*Services, *[]call) {
	t.Helper()
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		calls = append(calls, call{method: r.Method, path: r.URL.Path, query: r.URL.Query(), body: string(data)})
		w.Header().Set("Content-Type", "application/json")
		respond(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	return NewServices(c), &calls
}

func TestSubClients_BindPathsAndVerbs(t *testing.T) {
	svc, calls := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	ctx := context.Background()

	_, err := svc.Subscriptions.Create(ctx, SubscriptionCreate{DeliveryPlatform: PlatformEmail})
	require.NoError(t, err)
	_, err = svc.Subscriptions.Update(ctx, SubscriptionUpdate{})
	require.NoError(t, err)
	require.NoError(t, svc.Subscriptions.Delete(ctx))
	_, err = svc.Subscriptions.Toggle(ctx)
	require.NoError(t, err)
	_, err = svc.Subscriptions.FrequencyOptions(ctx)
	require.NoError(t, err)
	_, err = svc.History.Stats(ctx)
	require.NoError(t, err)
	_, err = svc.Guidance.Status(ctx)
	require.NoError(t, err)
	_, err = svc.Guidance.Start(ctx)
	require.NoError(t, err)
	_, err = svc.Guidance.SelectFocus(ctx, []string{"tech"})
	require.NoError(t, err)
	_, err = svc.Guidance.AnalyzeKeywords(ctx, []string{"tech"}, []string{"AI"})
	require.NoError(t, err)
	_, err = svc.Guidance.Finalize(ctx, GuidanceFinalize{})
	require.NoError(t, err)
	_, err = svc.Guidance.OptimizationSuggestions(ctx)
	require.NoError(t, err)
	_, err = svc.Onboarding.Setup(ctx, QuickSetupRequest{})
	require.NoError(t, err)
	_, err = svc.Onboarding.ValidateTarget(ctx, PlatformEmail, "a@b.co")
	require.NoError(t, err)
	_, err = svc.Onboarding.MigrationCheck(ctx)
	require.NoError(t, err)
	_, err = svc.Tags.Preferences(ctx)
	require.NoError(t, err)
	_, err = svc.Tags.UpdatePreferences(ctx, []string{"AI"})
	require.NoError(t, err)
	_, err = svc.Tags.Preview(ctx, []string{"NVDA"})
	require.NoError(t, err)
	_, err = svc.Tags.ExplainMatch(ctx, "art-1")
	require.NoError(t, err)
	_, err = svc.Tags.Stats(ctx)
	require.NoError(t, err)
	_, err = svc.System.Health(ctx)
	require.NoError(t, err)
	_, err = svc.System.Config(ctx)
	require.NoError(t, err)

	want := []struct{ method, path string }{
		{"POST", "/api/v1/subscriptions/"},
		{"PUT", "/api/v1/subscriptions/"},
		{"DELETE", "/api/v1/subscriptions/"},
		{"PATCH", "/api/v1/subscriptions/toggle"},
		{"GET", "/api/v1/subscriptions/frequency-options"},
		{"GET", "/api/v1/history/stats"},
		{"GET", "/api/v1/guidance/status"},
		{"POST", "/api/v1/guidance/start"},
		{"POST", "/api/v1/guidance/investment-focus"},
		{"POST", "/api/v1/guidance/analyze-keywords"},
		{"POST", "/api/v1/guidance/finalize"},
		{"GET", "/api/v1/guidance/optimization-suggestions"},
		{"POST", "/api/v1/quick-onboarding/setup"},
		{"POST", "/api/v1/quick-onboarding/validate-target"},
		{"GET", "/api/v1/quick-onboarding/migration-check"},
		{"GET", "/api/v1/tags/user-preferences"},
		{"PUT", "/api/v1/tags/user-preferences"},
		{"POST", "/api/v1/tags/preview"},
		{"POST", "/api/v1/tags/explain-match"},
		{"GET", "/api/v1/tags/stats"},
		{"GET", "/api/v1/health"},
		{"GET", "/api/v1/config"},
	}
	require.Len(t, *calls, len(want))
	for i, w := range want {
		assert.Equal(t, w.method, (*calls)[i].method, "call %d", i)
		assert.Equal(t, w.path, (*calls)[i].path, "call %d", i)
	}
	assert.JSONEq(t, `{"focus_areas":["tech"],"keywords":["AI"]}`, (*calls)[9].body)
	assert.JSONEq(t, `{"platform":"email","target":"a@b.co"}`, (*calls)[13].body)
}

func TestSubscriptionAPI_GetNullAndNotFound(t *testing.T) {
	status := http.StatusOK
	svc, _ := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte("null"))
			return
		}
		_, _ = w.Write([]byte(`{"detail":"Subscription not found"}`))
	})

	sub, err := svc.Subscriptions.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sub)

	status = http.StatusNotFound
	sub, err = svc.Subscriptions.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sub)

	status = http.StatusInternalServerError
	_, err = svc.Subscriptions.Get(context.Background())
	require.Error(t, err)
}

func TestHistoryAPI_ListEncodesQueryAndAcceptsBothShapes(t *testing.T) {
	asObject := false
	svc, calls := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		items := []PushHistoryItem{{ID: "h1", ArticleID: "a1"}, {ID: "h2", ArticleID: "a2"}}
		if asObject {
			_ = json.NewEncoder(w).Encode(map[string]any{"items": items, "total": 2, "has_more": false})
			return
		}
		_ = json.NewEncoder(w).Encode(items)
	})

	page, err := svc.History.List(context.Background(), 20, 40)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Nil(t, page.HasMore)
	assert.Equal(t, "/api/v1/history/", (*calls)[0].path)
	assert.Equal(t, "20", (*calls)[0].query.Get("limit"))
	assert.Equal(t, "40", (*calls)[0].query.Get("offset"))

	asObject = true
	page, err = svc.History.List(context.Background(), 20, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	require.NotNil(t, page.HasMore)
	assert.False(t, *page.HasMore)
	require.NotNil(t, page.Total)
	assert.Equal(t, 2, *page.Total)
	assert.Empty(t, (*calls)[1].query.Get("offset"))
}

func TestArticle_PlainSummary(t *testing.T) {
	a := Article{Summary: "<p>Fed  holds <b>rates</b> &amp; signals</p>\n<script>x()</script> cuts"}
	assert.Equal(t, "Fed holds rates & signals cuts", a.PlainSummary())
}

func TestHealth_OK(t *testing.T) {
	assert.True(t, Health{Status: "ok"}.OK())
	assert.True(t, Health{Status: " Healthy "}.OK())
	assert.False(t, Health{Status: "degraded"}.OK())
}
