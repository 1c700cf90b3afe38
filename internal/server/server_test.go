package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/historylens/internal/activity"
	"github.com/runnerr0/historylens/internal/config"
	"github.com/runnerr0/historylens/internal/logger"
	"github.com/runnerr0/historylens/internal/rules"
	"github.com/runnerr0/historylens/internal/storage"
)

var t0 = time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)

type testServer struct {
	*httptest.Server
	store *storage.SQLiteStore
	svc   *activity.Service
	now   time.Time
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	store, db, err := storage.Open(storage.MemoryPath, "")
	require.NoError(t, err)

	svc := activity.NewService(store, logger.Nop(), activity.Options{})
	require.NoError(t, svc.SetRuleSet(context.Background(), rules.RuleSet{
		{Pattern: "https://github.com/*/pull/*", Category: "🔍 Reviewed PR"},
		{Pattern: "https://qiita.com/*/items/*", Category: "📝 Read Article"},
	}))

	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}

	ts := &testServer{store: store, svc: svc, now: t0}
	srv := New(cfg, logger.Nop(), Deps{
		Service:   svc,
		Version:   "test",
		StartTime: t0.Add(-time.Minute),
		Now:       func() time.Time { return ts.now },
	})
	ts.Server = httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		ts.Close()
		store.Close()
		db.Close()
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, header map[string]string) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[healthzResponse](t, resp)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "test", body.Version)
	assert.InDelta(t, 60, body.UptimeSeconds, 0.001)
}

func TestSubmitActivity(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodPost, "/api/activity", map[string]string{
		"url":      "https://github.com/acme/app/pull/7#discussion_r1",
		"title":    "Fix the thing",
		"bodyText": "diff",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res := decodeJSON[activity.SubmitResult](t, resp)
	assert.Equal(t, activity.StatusOK, res.Status)
	require.NotNil(t, res.Entry)
	assert.Equal(t, "https://github.com/acme/app/pull/7", res.Entry.URL)
	assert.Equal(t, "🔍 Reviewed PR", res.Entry.Category)

	stored, err := ts.store.Get(context.Background(), "https://github.com/acme/app/pull/7")
	require.NoError(t, err)
	assert.Equal(t, "Fix the thing", stored.Title)
	assert.True(t, stored.UpdatedAt.Equal(t0))
}

func TestSubmitActivity_BadRequests(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodPost, "/api/activity", map[string]string{"url": "  "}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid URL", decodeJSON[errorResponse](t, resp).Error)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/activity", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp, err = ts.Client().Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid JSON", decodeJSON[errorResponse](t, resp).Error)
}

func TestSuppressThenSubmit(t *testing.T) {
	ts := newTestServer(t, nil)
	target := "https://qiita.com/alice/items/1"

	resp := ts.do(t, http.MethodPost, "/api/suppress", map[string]string{"url": target}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeJSON[statusResponse](t, resp).Status)

	ts.now = t0.Add(4999 * time.Millisecond)
	resp = ts.do(t, http.MethodPost, "/api/activity", map[string]string{"url": target}, nil)
	res := decodeJSON[activity.SubmitResult](t, resp)
	assert.Equal(t, activity.StatusSkipped, res.Status)
	assert.Equal(t, activity.ReasonSuppressed, res.Reason)

	ts.now = t0.Add(5 * time.Second)
	resp = ts.do(t, http.MethodPost, "/api/activity", map[string]string{"url": target}, nil)
	res = decodeJSON[activity.SubmitResult](t, resp)
	assert.Equal(t, activity.StatusOK, res.Status)

	resp = ts.do(t, http.MethodPost, "/api/suppress", map[string]string{"url": ""}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func seed(t *testing.T, ts *testServer) {
	t.Helper()
	ctx := context.Background()
	for i, u := range []string{
		"https://qiita.com/a/items/1",
		"https://github.com/acme/app/pull/1",
		"https://example.com/unclassified",
	} {
		_, err := ts.svc.SubmitActivity(ctx, activity.Submission{URL: u, Title: u}, t0.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}
}

func TestQueryActivity(t *testing.T) {
	ts := newTestServer(t, nil)
	seed(t, ts)

	t.Run("all", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/activity", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decodeJSON[entriesResponse](t, resp).Entries, 3)
	})

	t.Run("range inclusive descending", func(t *testing.T) {
		q := url.Values{}
		q.Set("from", t0.Format(time.RFC3339))
		q.Set("to", t0.Add(time.Hour).Format(time.RFC3339))
		q.Set("order", "desc")

		resp := ts.do(t, http.MethodGet, "/api/activity?"+q.Encode(), nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		entries := decodeJSON[entriesResponse](t, resp).Entries
		require.Len(t, entries, 2)
		assert.Equal(t, "https://github.com/acme/app/pull/1", entries[0].URL)
		assert.Equal(t, "https://qiita.com/a/items/1", entries[1].URL)
	})

	t.Run("category", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/activity?category="+url.QueryEscape(rules.Unknown), nil, nil)
		entries := decodeJSON[entriesResponse](t, resp).Entries
		require.Len(t, entries, 1)
		assert.Equal(t, "https://example.com/unclassified", entries[0].URL)
	})

	t.Run("empty result is an empty list", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/activity?category=none", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeJSON[map[string]any](t, resp)
		assert.Equal(t, []any{}, body["entries"])
	})

	t.Run("bad bound", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/activity?from=yesterday", nil, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestRecentAndEntry(t *testing.T) {
	ts := newTestServer(t, nil)
	seed(t, ts)

	resp := ts.do(t, http.MethodGet, "/api/activity/recent?limit=2&offset=0", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decodeJSON[entriesResponse](t, resp).Entries
	require.Len(t, entries, 2)
	assert.Equal(t, "https://example.com/unclassified", entries[0].URL)

	resp = ts.do(t, http.MethodGet, "/api/activity/recent?limit=-1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/api/activity/entry?url="+url.QueryEscape("https://qiita.com/a/items/1"), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "📝 Read Article", decodeJSON[storage.ActivityEntry](t, resp).Category)

	resp = ts.do(t, http.MethodGet, "/api/activity/entry?url="+url.QueryEscape("https://nowhere/"), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestWeeklyReport(t *testing.T) {
	ts := newTestServer(t, nil)
	seed(t, ts)

	resp := ts.do(t, http.MethodGet, "/api/report/weekly", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var week struct {
		Days []struct {
			Date   string `json:"date"`
			Groups []struct {
				Category string `json:"category"`
			} `json:"groups"`
		} `json:"days"`
		Unknown []storage.ActivityEntry `json:"unknown"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&week))
	resp.Body.Close()

	require.Len(t, week.Days, 7)
	wednesday := week.Days[4]
	assert.Equal(t, "2024-03-06", wednesday.Date)
	assert.Len(t, wednesday.Groups, 2)
	assert.Len(t, week.Unknown, 1)

	resp = ts.do(t, http.MethodGet, "/api/report/weekly?offset=x", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestRulesEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	seed(t, ts)

	resp := ts.do(t, http.MethodGet, "/api/rules", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeJSON[rulesResponse](t, resp).Rules, 2)

	resp = ts.do(t, http.MethodPost, "/api/rules", map[string]string{
		"pattern":  " https://example.com/* ",
		"category": "🧪 Example",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	added := decodeJSON[addRuleResponse](t, resp)
	assert.Equal(t, "https://example.com/*", added.Rule.Pattern)
	assert.Equal(t, 3, added.Report.Examined)
	assert.Equal(t, 1, added.Report.Changed)

	got, err := ts.store.Get(context.Background(), "https://example.com/unclassified")
	require.NoError(t, err)
	assert.Equal(t, "🧪 Example", got.Category)

	resp = ts.do(t, http.MethodPost, "/api/rules", map[string]string{"pattern": "https://x/*"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid rule", decodeJSON[errorResponse](t, resp).Error)

	resp = ts.do(t, http.MethodGet, "/api/categories", nil, nil)
	cats := decodeJSON[map[string][]string](t, resp)["categories"]
	assert.Equal(t, []string{"🔍 Reviewed PR", "📝 Read Article", "🧪 Example"}, cats)

	resp = ts.do(t, http.MethodGet, "/api/rules/suggest?url="+url.QueryEscape("https://zenn.dev/bob/articles/abc"), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decodeJSON[map[string]string](t, resp)["pattern"])

	resp = ts.do(t, http.MethodGet, "/api/rules/suggest", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestReplaceRulesThenRecategorize(t *testing.T) {
	ts := newTestServer(t, nil)
	seed(t, ts)

	resp := ts.do(t, http.MethodPut, "/api/rules", rulesResponse{Rules: rules.RuleSet{
		{Pattern: "https://qiita.com/*", Category: "Qiita"},
	}}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeJSON[rulesResponse](t, resp).Rules, 1)

	// Replacing rules alone leaves stored categories untouched.
	got, err := ts.store.Get(context.Background(), "https://qiita.com/a/items/1")
	require.NoError(t, err)
	assert.Equal(t, "📝 Read Article", got.Category)

	resp = ts.do(t, http.MethodPost, "/api/recategorize", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON[map[string]int](t, resp)
	assert.Equal(t, 3, body["examined"])
	assert.Equal(t, 2, body["changed"])
	assert.Equal(t, 0, body["failed"])

	got, err = ts.store.Get(context.Background(), "https://github.com/acme/app/pull/1")
	require.NoError(t, err)
	assert.Equal(t, rules.Unknown, got.Category)

	resp = ts.do(t, http.MethodPut, "/api/rules", rulesResponse{Rules: rules.RuleSet{{Pattern: "", Category: "x"}}}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestStats(t *testing.T) {
	ts := newTestServer(t, nil)
	seed(t, ts)

	resp := ts.do(t, http.MethodGet, "/api/stats", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decodeJSON[storage.Stats](t, resp)
	assert.EqualValues(t, 3, st.TotalEntries)
	assert.EqualValues(t, 1, st.UnknownCount)
}

func TestAuthToken(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) { cfg.Daemon.AuthToken = "s3cret" })

	resp := ts.do(t, http.MethodGet, "/api/rules", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "API key required", decodeJSON[errorResponse](t, resp).Error)

	resp = ts.do(t, http.MethodGet, "/api/rules", nil, map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid API key", decodeJSON[errorResponse](t, resp).Error)

	resp = ts.do(t, http.MethodGet, "/api/rules", nil, map[string]string{"X-API-Key": "s3cret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/api/rules", nil, map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Health checks stay open.
	resp = ts.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestRequestSizeLimit(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) { cfg.Daemon.MaxRequestSize = 64 })

	resp := ts.do(t, http.MethodPost, "/api/activity", map[string]string{
		"url":      "https://qiita.com/a/items/1",
		"bodyText": strings.Repeat("x", 256),
	}, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "request too large", decodeJSON[errorResponse](t, resp).Error)
}
