package ops

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/spark/internal/db"
	"github.com/hpungsan/spark/internal/generate"
	"github.com/hpungsan/spark/internal/project"
	"github.com/hpungsan/spark/internal/query"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// setupService creates a Service over a temporary SQLite catalog.
func setupService(t *testing.T, gen *generate.Generator) (*Service, *db.Store) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	store := db.NewStore(database)
	t.Cleanup(func() { store.Close() })

	svc := NewService(store, Options{Generator: gen, Logger: zerolog.Nop()})
	return svc, store
}

// seed inserts projects with decreasing creation times, so the first one is newest.
func seed(t *testing.T, store *db.Store, projects ...*project.Project) {
	t.Helper()
	for i, p := range projects {
		created := baseTime.Add(-time.Duration(i) * time.Hour)
		p.CreatedAt = &created
		require.NoError(t, store.Insert(context.Background(), p))
	}
}

func reactProject(title string) *project.Project {
	return &project.Project{
		Title:       title,
		Description: "A react web application built with hooks",
		Solutions:   "Use **components** and a router.",
		TechStack:   []string{"react", "vite"},
	}
}

// stubBackend returns a fixed reply.
type stubBackend struct {
	reply string
	err   error
}

func (b stubBackend) Complete(context.Context, string) (string, error) {
	return b.reply, b.err
}

func suggestionReply(n int) string {
	reply := `{"intro": "Based on your interest in React, I suggest:", "projects": [`
	for i := 0; i < n; i++ {
		if i > 0 {
			reply += ","
		}
		reply += fmt.Sprintf(`{"title": "Generated %d", "description": "d", "techStack": ["react"]}`, i)
	}
	return reply + "]}"
}

func enabledGenerator(reply string, err error) *generate.Generator {
	return generate.New(stubBackend{reply: reply, err: err}, generate.Options{Logger: zerolog.Nop(), Timeout: time.Second})
}

// failingCatalog fails every search.
type failingCatalog struct {
	Catalog
}

func (failingCatalog) RankedSearch(context.Context, query.Expression, query.Mode, int) ([]project.Project, error) {
	return nil, fmt.Errorf("index unavailable")
}

func (failingCatalog) SubstringSearch(context.Context, []string, []project.Field, int) ([]project.Project, error) {
	return nil, fmt.Errorf("table unavailable")
}
