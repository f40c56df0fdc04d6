package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pbaille/journal/internal/classifier"
	"github.com/pbaille/journal/internal/domain"
	"github.com/pbaille/journal/internal/insights"
	"github.com/pbaille/journal/internal/store"
	"github.com/pbaille/journal/internal/tagging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	server *Server
	store  *store.Store
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.New(":memory:", false, "")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	kw := classifier.NewKeyword()
	svc := insights.NewService(st, insights.NewLocalAnalyzer(kw, 0, time.UTC), insights.Options{Location: time.UTC}, zap.NewNop())
	tg := tagging.New(st, kw, tagging.Options{}, zap.NewNop())

	srv, err := NewServer(st, svc, tg, zap.NewNop(), nil)
	require.NoError(t, err)
	return &testEnv{server: srv, store: st}
}

func (e *testEnv) do(t *testing.T, method, target, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	rec := httptest.NewRecorder()
	e.server.Echo().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestNewServer(t *testing.T) {
	st, err := store.New(":memory:", false, "")
	require.NoError(t, err)
	defer st.Close()
	svc := insights.NewService(st, nil, insights.Options{}, nil)

	t.Run("defaults config", func(t *testing.T) {
		srv, err := NewServer(st, svc, nil, zap.NewNop(), nil)
		require.NoError(t, err)
		assert.Equal(t, 8080, srv.config.Port)
	})

	t.Run("requires logger", func(t *testing.T) {
		_, err := NewServer(st, svc, nil, nil, nil)
		assert.ErrorContains(t, err, "logger is required")
	})

	t.Run("requires store", func(t *testing.T) {
		_, err := NewServer(nil, svc, nil, zap.NewNop(), nil)
		assert.Error(t, err)
	})
}

func TestHandleHealth(t *testing.T) {
	env := setupTestServer(t)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestEntryLifecycle(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(t, http.MethodPost, "/entries", "alice", AddEntryRequest{
		Content: "So grateful and thankful for my friend today",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[domain.Entry](t, rec)
	assert.Equal(t, "alice", created.UserID)
	assert.Contains(t, created.Themes, "gratitude")
	require.NotNil(t, created.Sentiment)
	assert.Equal(t, domain.SentimentPositive, *created.Sentiment)

	rec = env.do(t, http.MethodGet, "/entries/"+created.ID[:8], "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[domain.Entry](t, rec).ID)

	// other users cannot see it
	rec = env.do(t, http.MethodGet, "/entries/"+created.ID, "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/entries/"+created.ID, "alice", UpdateEntryRequest{Content: "edited"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "edited", decode[domain.Entry](t, rec).Content)

	rec = env.do(t, http.MethodGet, "/search?q=edit", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[SearchResponse](t, rec).Entries, 1)

	rec = env.do(t, http.MethodDelete, "/entries/"+created.ID, "alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/entries", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[ListEntriesResponse](t, rec)
	assert.Empty(t, list.Entries)
	assert.NotNil(t, list.Entries)
	assert.Equal(t, defaultListLimit, list.Limit)
}

func TestUpdateEntryRetags(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(t, http.MethodPost, "/entries", "alice", AddEntryRequest{
		Content: "So grateful and thankful for my friend today",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[domain.Entry](t, rec)
	require.Contains(t, created.Themes, "gratitude")

	rec = env.do(t, http.MethodPut, "/entries/"+created.ID, "alice", UpdateEntryRequest{
		Content: "terrible stressful deadline at work",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[domain.Entry](t, rec)
	assert.NotContains(t, updated.Themes, "gratitude")
	assert.Contains(t, updated.Themes, "work")
	require.NotNil(t, updated.Sentiment)
	assert.Equal(t, domain.SentimentNegative, *updated.Sentiment)
}

func TestAddEntryValidation(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(t, http.MethodPost, "/entries", "", AddEntryRequest{Content: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	env.server.Echo().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddEntryNoClassifyAndDefaultUser(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(t, http.MethodPost, "/entries", "", AddEntryRequest{Content: "plain", NoClassify: true})
	require.Equal(t, http.StatusCreated, rec.Code)
	e := decode[domain.Entry](t, rec)
	assert.Equal(t, DefaultUserID, e.UserID)
	assert.False(t, e.Tagged())
}

func TestHandleInsights(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(t, http.MethodGet, "/insights", "carol", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[domain.AnalysisReport](t, rec)
	assert.Equal(t, insights.EmptyMessage, empty.Message)
	assert.Zero(t, empty.TotalEntries)

	ctx := context.Background()
	for i, content := range []string{
		"Grateful for a good morning run, my health is improving",
		"Thankful for family dinner, feeling blessed and happy",
		"Work project meeting went great, proud of the team",
	} {
		_, err := env.store.AddEntry(ctx, "carol", content, time.Date(2024, 3, i+1, 9, 0, 0, 0, time.UTC))
		require.NoError(t, err)
	}

	rec = env.do(t, http.MethodGet, "/insights", "carol", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[domain.AnalysisReport](t, rec)
	assert.Equal(t, 3, report.TotalEntries)
	assert.False(t, report.FallbackMode)
	assert.NotEmpty(t, report.Themes)
	require.NotEmpty(t, report.Insights)
	assert.Equal(t, domain.InsightPrimaryTheme, report.Insights[0].Type)

	rec = env.do(t, http.MethodGet, "/insights?format=markdown", "carol", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# Journal Insights")

	rec = env.do(t, http.MethodGet, "/insights?format=pdf", "carol", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type failingInsights struct{}

func (failingInsights) Report(context.Context, string) (*domain.AnalysisReport, error) {
	return nil, insights.ErrInsightsUnavailable
}

func (failingInsights) Stats(context.Context, string) (*insights.Stats, error) {
	return nil, errors.New("database is locked")
}

func (failingInsights) Prompts(context.Context, string) ([]insights.Prompt, error) {
	return nil, errors.New("database is locked")
}

func TestHandleInsightsUnavailable(t *testing.T) {
	env := setupTestServer(t)
	srv, err := NewServer(env.store, failingInsights{}, nil, zap.NewNop(), nil)
	require.NoError(t, err)
	env.server = srv

	rec := env.do(t, http.MethodGet, "/insights", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to generate insights")

	rec = env.do(t, http.MethodGet, "/stats", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "locked")

	rec = env.do(t, http.MethodPost, "/insights/retag", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatsPromptsAndRetag(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for d := 2; d >= 0; d-- {
		_, err := env.store.AddEntry(ctx, "dave", "Hard day, stressed and anxious about work", now.AddDate(0, 0, -d))
		require.NoError(t, err)
	}

	rec := env.do(t, http.MethodGet, "/stats", "dave", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[insights.Stats](t, rec)
	assert.Equal(t, 3, stats.TotalEntries)
	assert.Equal(t, 3, stats.CurrentStreak)

	rec = env.do(t, http.MethodPost, "/insights/retag", "dave", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tagging.Result{Tagged: 3}, decode[tagging.Result](t, rec))

	rec = env.do(t, http.MethodGet, "/prompts", "dave", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	prompts := decode[PromptsResponse](t, rec)
	require.NotEmpty(t, prompts.Prompts)
	assert.NotEmpty(t, prompts.Prompts[0].Prompt)
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestServer(t)
	env.do(t, http.MethodGet, "/insights", "", nil)

	rec := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "journal_insight_reports_total")
}
