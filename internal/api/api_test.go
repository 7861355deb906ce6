package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/spark/internal/config"
	"github.com/hpungsan/spark/internal/db"
	"github.com/hpungsan/spark/internal/errors"
	"github.com/hpungsan/spark/internal/generate"
	"github.com/hpungsan/spark/internal/ops"
	"github.com/hpungsan/spark/internal/project"
	"github.com/hpungsan/spark/internal/query"
)

type stubBackend struct{ reply string }

func (b stubBackend) Complete(context.Context, string) (string, error) { return b.reply, nil }

// failingCatalog fails every read.
type failingCatalog struct {
	ops.Catalog
}

func (failingCatalog) List(context.Context) ([]project.Project, error) {
	return nil, fmt.Errorf("disk on fire")
}

func (failingCatalog) RankedSearch(context.Context, query.Expression, query.Mode, int) ([]project.Project, error) {
	return nil, fmt.Errorf("index unavailable")
}

func (failingCatalog) SubstringSearch(context.Context, []string, []project.Field, int) ([]project.Project, error) {
	return nil, fmt.Errorf("table unavailable")
}

func testServerConfig() config.ServerConfig {
	return config.DefaultConfig().Server
}

// setupRouter returns a router over a temporary SQLite catalog seeded with projects.
func setupRouter(t *testing.T, gen *generate.Generator, cfg config.ServerConfig, projects ...*project.Project) http.Handler {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	store := db.NewStore(database)
	t.Cleanup(func() { store.Close() })

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, p := range projects {
		created := base.Add(-time.Duration(i) * time.Hour)
		p.CreatedAt = &created
		require.NoError(t, store.Insert(context.Background(), p))
	}

	svc := ops.NewService(store, ops.Options{Generator: gen, Logger: zerolog.Nop()})
	return NewRouter(svc, cfg)
}

func reactProject(title string) *project.Project {
	return &project.Project{
		Title:       title,
		Description: "A react web application built with hooks",
		TechStack:   []string{"react"},
	}
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHealth(t *testing.T) {
	h := setupRouter(t, nil, testServerConfig())

	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "ok"}, decode(t, rec))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDEchoed(t *testing.T) {
	h := setupRouter(t, nil, testServerConfig())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := setupRouter(t, nil, testServerConfig())
	do(t, h, http.MethodGet, "/projects", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `spark_api_requests_total{method="GET",route="/projects",status="200"}`)
}

func TestListProjects(t *testing.T) {
	a := reactProject("Portfolio Site")
	b := reactProject("Chat Room")
	h := setupRouter(t, nil, testServerConfig(), a, b)

	rec := do(t, h, http.MethodGet, "/projects", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body projectsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Projects, 2)
	wantFirst := a.ID
	if b.ID < a.ID {
		wantFirst = b.ID
	}
	assert.Equal(t, wantFirst, body.Projects[0].ID, "ordered by id")
}

func TestListProjects_Empty(t *testing.T) {
	h := setupRouter(t, nil, testServerConfig())

	rec := do(t, h, http.MethodGet, "/projects", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"projects": []}`, rec.Body.String())
}

func TestListProjects_StoreFailure(t *testing.T) {
	svc := ops.NewService(failingCatalog{}, ops.Options{Logger: zerolog.Nop()})
	h := NewRouter(svc, testServerConfig())

	rec := do(t, h, http.MethodGet, "/projects", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, errors.MsgInternal, body["error"])
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestGetProject(t *testing.T) {
	p := reactProject("Portfolio Site")
	h := setupRouter(t, nil, testServerConfig(), p)

	rec := do(t, h, http.MethodGet, "/projects/"+p.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body projectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Portfolio Site", body.Project.Title)

	rec = do(t, h, http.MethodGet, "/projects/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(errors.ErrNotFound), decode(t, rec)["code"])
}

func TestRecommend_SearchOnly(t *testing.T) {
	h := setupRouter(t, nil, testServerConfig(), reactProject("Portfolio Site"))

	rec := do(t, h, http.MethodPost, "/recommend-projects", `{"prompt": "React web application"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	projects, ok := body["projects"].([]any)
	require.True(t, ok)
	assert.Len(t, projects, 1)
	assert.NotContains(t, body, "reasoning")
	assert.NotContains(t, body, "aiSuggestions")
}

func TestRecommend_Explain(t *testing.T) {
	h := setupRouter(t, nil, testServerConfig(), reactProject("Portfolio Site"))

	rec := do(t, h, http.MethodPost, "/recommend-projects?explain=true", `{"prompt": "React web application"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	reasoning, ok := decode(t, rec)["reasoning"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1.0, reasoning["confidence"])
	assert.Equal(t, "ranked", reasoning["stage"])
	assert.NotEmpty(t, reasoning["thoughts"])
	assert.NotEmpty(t, reasoning["conclusions"])
}

func TestRecommend_Combined(t *testing.T) {
	reply := `{"intro": "Try these:", "projects": [{"title": "Generated", "description": "d", "techStack": ["react"]}]}`
	gen := generate.New(stubBackend{reply: reply}, generate.Options{Logger: zerolog.Nop(), Timeout: time.Second})
	h := setupRouter(t, gen, testServerConfig(), reactProject("Portfolio Site"))

	rec := do(t, h, http.MethodPost, "/recommend-projects", `{"prompt": "React web application"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Try these:", body["intro"])
	assert.Len(t, body["aiSuggestions"], 1)
	assert.Len(t, body["recommendations"], 1)
	assert.NotContains(t, body, "projects")
}

func TestRecommend_PromptRequired(t *testing.T) {
	h := setupRouter(t, nil, testServerConfig())

	for _, body := range []string{"", "{}", `{"prompt": "   "}`, "null"} {
		rec := do(t, h, http.MethodPost, "/recommend-projects", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		resp := decode(t, rec)
		assert.Equal(t, errors.MsgPromptRequired, resp["error"], body)
		assert.Equal(t, string(errors.ErrInvalidRequest), resp["code"], body)
	}
}

func TestRecommend_PromptRejected(t *testing.T) {
	h := setupRouter(t, nil, testServerConfig())

	rec := do(t, h, http.MethodPost, "/recommend-projects", `{"prompt": "xyzzy plugh"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, errors.MsgPromptRejected, body["error"])
	assert.Equal(t, string(errors.ErrPromptRejected), body["code"])
	assert.Contains(t, body, "details")

	rec = do(t, h, http.MethodPost, "/recommend-projects", `{"prompt": "!!!"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errors.ErrPromptRejected), decode(t, rec)["code"])
}

func TestRecommend_BadBodies(t *testing.T) {
	cfg := testServerConfig()
	cfg.MaxBodyBytes = 64
	h := setupRouter(t, nil, cfg)

	rec := do(t, h, http.MethodPost, "/recommend-projects", `{"prompt": 42}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/recommend-projects", `{"prompt": "`+strings.Repeat("a", 100)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, codePayloadTooLarge, decode(t, rec)["code"])
}

func TestRecommend_PromptTooLong(t *testing.T) {
	h := setupRouter(t, nil, testServerConfig())

	long := strings.Repeat("react ", 700)
	rec := do(t, h, http.MethodPost, "/recommend-projects", `{"prompt": "`+long+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "exceeds")
}

func TestRecommend_SearchExhaustedIsGeneric(t *testing.T) {
	svc := ops.NewService(failingCatalog{}, ops.Options{Logger: zerolog.Nop()})
	h := NewRouter(svc, testServerConfig())

	rec := do(t, h, http.MethodPost, "/recommend-projects", `{"prompt": "React web application"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, errors.MsgInternal, body["error"])
	assert.Equal(t, string(errors.ErrSearchExhausted), body["code"])
	assert.NotContains(t, rec.Body.String(), "unavailable")
}

func TestRateLimit(t *testing.T) {
	cfg := testServerConfig()
	cfg.RateLimitRequests = 1
	cfg.RateLimitWindow = time.Minute
	h := setupRouter(t, nil, cfg)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/projects", "").Code)

	rec := do(t, h, http.MethodGet, "/projects", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, codeRateLimited, decode(t, rec)["code"])

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "").Code, "health is not rate limited")
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := setupRouter(t, nil, testServerConfig())

	rec := do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, codeRouteNotFound, decode(t, rec)["code"])

	rec = do(t, h, http.MethodGet, "/recommend-projects", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := setupRouter(t, nil, testServerConfig())

	req := httptest.NewRequest(http.MethodOptions, "/recommend-projects", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewServer(t *testing.T) {
	cfg := testServerConfig()
	srv := NewServer(ops.NewService(failingCatalog{}, ops.Options{Logger: zerolog.Nop()}), cfg)
	assert.Equal(t, "127.0.0.1:8080", srv.Addr)
	assert.Equal(t, cfg.ReadTimeout, srv.ReadTimeout)
}
