// Package postgres implements the project catalog on PostgreSQL using a
// generated tsvector column for ranked search and ILIKE for substring search.
package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hpungsan/spark/internal/errors"
	"github.com/hpungsan/spark/internal/project"
	"github.com/hpungsan/spark/internal/query"
)

// DefaultTextSearchConfig is the text search configuration used for indexing.
const DefaultTextSearchConfig = "english"

const uniqueViolation = "23505"

var configName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

const projectColumns = `
	id, title, description, solutions,
	tech_stack, difficulty, estimated_hours,
	learning_outcomes, implementation_steps,
	url, created_at`

// Options configures Open.
type Options struct {
	// TextSearchConfig names the PostgreSQL text search configuration. Default "english".
	TextSearchConfig string
	// MaxConns caps the pool size. 0 keeps the pgxpool default.
	MaxConns int
}

// Store is the PostgreSQL-backed project catalog.
type Store struct {
	pool       *pgxpool.Pool
	textConfig string
}

// Open connects to databaseURL, verifies the connection, and applies the schema.
func Open(ctx context.Context, databaseURL string, opts Options) (*Store, error) {
	textConfig := opts.TextSearchConfig
	if textConfig == "" {
		textConfig = DefaultTextSearchConfig
	}
	if !configName.MatchString(textConfig) {
		return nil, fmt.Errorf("invalid text search config %q", textConfig)
	}

	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		poolCfg.MaxConns = int32(opts.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	s := &Store{pool: pool, textConfig: textConfig}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	// textConfig is validated against configName before reaching here.
	vector := fmt.Sprintf(`
		setweight(to_tsvector('%[1]s', coalesce(title, '')), 'A') ||
		setweight(to_tsvector('%[1]s', coalesce(description, '')), 'B') ||
		setweight(to_tsvector('%[1]s', coalesce(solutions_text, '')), 'C')`, s.textConfig)

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
		  seq                  BIGSERIAL PRIMARY KEY,
		  id                   TEXT NOT NULL UNIQUE,
		  title                TEXT NOT NULL,
		  description          TEXT NOT NULL,
		  solutions            TEXT NOT NULL DEFAULT '',
		  solutions_text       TEXT NOT NULL DEFAULT '',
		  tech_stack           TEXT[],
		  difficulty           TEXT,
		  estimated_hours      DOUBLE PRECISION,
		  learning_outcomes    TEXT[],
		  implementation_steps TEXT[],
		  url                  TEXT,
		  created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
		  search_vector        tsvector GENERATED ALWAYS AS (` + vector + `) STORED
		)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_search ON projects USING GIN (search_vector)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_created ON projects (created_at DESC)`,
	}
	for i, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Insert stores a new project. A missing ID or CreatedAt is filled in.
func (s *Store) Insert(ctx context.Context, p *project.Project) error {
	return s.write(ctx, p, false)
}

// Upsert stores p, replacing any existing project with the same ID.
func (s *Store) Upsert(ctx context.Context, p *project.Project) error {
	return s.write(ctx, p, true)
}

// InsertAll stores every project in one transaction. Any failure rolls the
// whole batch back.
func (s *Store) InsertAll(ctx context.Context, projects []project.Project) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for i := range projects {
			if err := writeProject(ctx, tx, &projects[i], false); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.NewInternal(err)
}

// execer is satisfied by *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Store) write(ctx context.Context, p *project.Project, replace bool) error {
	return writeProject(ctx, s.pool, p, replace)
}

func writeProject(ctx context.Context, exec execer, p *project.Project, replace bool) error {
	if p.ID == "" {
		p.ID = project.NewID()
	}
	if p.CreatedAt == nil {
		now := time.Now().UTC()
		p.CreatedAt = &now
	}

	q := `
		INSERT INTO projects (
			id, title, description, solutions, solutions_text,
			tech_stack, difficulty, estimated_hours,
			learning_outcomes, implementation_steps,
			url, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if replace {
		q += `
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			solutions = EXCLUDED.solutions,
			solutions_text = EXCLUDED.solutions_text,
			tech_stack = EXCLUDED.tech_stack,
			difficulty = EXCLUDED.difficulty,
			estimated_hours = EXCLUDED.estimated_hours,
			learning_outcomes = EXCLUDED.learning_outcomes,
			implementation_steps = EXCLUDED.implementation_steps,
			url = EXCLUDED.url,
			created_at = EXCLUDED.created_at`
	}

	_, err := exec.Exec(ctx, q,
		p.ID, p.Title, p.Description, p.Solutions, project.PlainText(p.Solutions),
		nullSlice(p.TechStack), nullString(p.Difficulty), nullHours(p.EstimatedHours),
		nullSlice(p.LearningOutcomes), nullSlice(p.ImplementationSteps),
		nullString(p.URL), *p.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return errors.NewAlreadyExists(p.ID)
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetByID retrieves a project by id.
func (s *Store) GetByID(ctx context.Context, id string) (*project.Project, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	p, err := scanProject(row)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return p, nil
}

// List returns every project ordered by id ascending.
func (s *Store) List(ctx context.Context) ([]project.Project, error) {
	return s.queryProjects(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id ASC`)
}

// Count returns the number of projects in the catalog.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM projects`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// Delete removes a project by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// RankedSearch matches expr against the search vector. Newest first.
func (s *Store) RankedSearch(ctx context.Context, expr query.Expression, mode query.Mode, limit int) ([]project.Project, error) {
	fn, arg := tsQuery(expr, mode)
	if arg == "" {
		return []project.Project{}, nil
	}

	q := `SELECT ` + projectColumns + ` FROM projects
		WHERE search_vector @@ ` + fn + `($1::regconfig, $2)
		ORDER BY created_at DESC, seq ASC
		LIMIT $3`
	results, err := s.queryProjects(ctx, q, s.textConfig, arg, limit)
	if err != nil {
		return nil, fmt.Errorf("ranked search %s(%q): %w", fn, arg, err)
	}
	return results, nil
}

// SubstringSearch returns projects where any pattern occurs, case-insensitively,
// in any of the given fields. Newest first.
func (s *Store) SubstringSearch(ctx context.Context, patterns []string, fields []project.Field, limit int) ([]project.Project, error) {
	where, args, err := substringClause(patterns, fields)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + projectColumns + ` FROM projects WHERE ` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, seq ASC LIMIT $%d`, len(args)+1)
	args = append(args, limit)
	return s.queryProjects(ctx, q, args...)
}

// tsQuery picks the tsquery constructor for mode and renders its argument.
func tsQuery(expr query.Expression, mode query.Mode) (fn, arg string) {
	if expr.Empty() {
		return "", ""
	}
	terms := strings.Join(expr.Terms(), " ")
	switch mode {
	case query.ModePlain:
		return "plainto_tsquery", terms
	case query.ModePhrase:
		return "phraseto_tsquery", terms
	case query.ModeWebsearch:
		return "websearch_to_tsquery", terms
	default:
		return "to_tsquery", expr.String()
	}
}

// substringClause builds an OR of ILIKE predicates with positional parameters.
func substringClause(patterns []string, fields []project.Field) (string, []any, error) {
	if len(patterns) == 0 {
		return "", nil, errors.NewInvalidRequest("substring search requires at least one pattern")
	}
	if len(fields) == 0 {
		return "", nil, errors.NewInvalidRequest("substring search requires at least one field")
	}

	preds := make([]string, 0, len(patterns)*len(fields))
	args := make([]any, 0, len(patterns)*len(fields))
	for _, pat := range patterns {
		like := "%" + escapeLike(pat) + "%"
		for _, f := range fields {
			if !f.Valid() {
				return "", nil, errors.NewInvalidRequest(fmt.Sprintf("unknown field %q", f))
			}
			args = append(args, like)
			preds = append(preds, fmt.Sprintf(`%s ILIKE $%d ESCAPE '\'`, f, len(args)))
		}
	}
	return "(" + strings.Join(preds, " OR ") + ")", args, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *Store) queryProjects(ctx context.Context, q string, args ...any) ([]project.Project, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	results := make([]project.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		results = append(results, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return results, nil
}

func scanProject(row pgx.Row) (*project.Project, error) {
	var (
		p               project.Project
		difficulty, url *string
		hours           *float64
		createdAt       time.Time
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Solutions,
		&p.TechStack, &difficulty, &hours,
		&p.LearningOutcomes, &p.ImplementationSteps,
		&url, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	if difficulty != nil {
		p.Difficulty = *difficulty
	}
	if url != nil {
		p.URL = *url
	}
	if hours != nil {
		p.EstimatedHours = *hours
	}
	createdAt = createdAt.UTC()
	p.CreatedAt = &createdAt
	return &p, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullHours(h float64) *float64 {
	if h <= 0 {
		return nil
	}
	return &h
}

func nullSlice(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	return items
}
