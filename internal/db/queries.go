package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/hpungsan/spark/internal/errors"
	"github.com/hpungsan/spark/internal/project"
	"github.com/hpungsan/spark/internal/query"
)

const projectColumns = `
	p.id, p.title, p.description, p.solutions,
	p.tech_stack_json, p.difficulty, p.estimated_hours,
	p.learning_outcomes_json, p.implementation_steps_json,
	p.url, p.created_at`

// Store is the SQLite-backed project catalog.
type Store struct {
	db *sql.DB
}

// NewStore wraps an initialized database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	for i := range projects {
		if err := writeProject(ctx, tx, &projects[i], false); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) write(ctx context.Context, p *project.Project, replace bool) error {
	return writeProject(ctx, s.db, p, replace)
}

func writeProject(ctx context.Context, exec execer, p *project.Project, replace bool) error {
	if p.ID == "" {
		p.ID = project.NewID()
	}
	if p.CreatedAt == nil {
		now := time.Now().UTC()
		p.CreatedAt = &now
	}

	techStack, err := toNullJSON(p.TechStack)
	if err != nil {
		return errors.NewInternal(err)
	}
	outcomes, err := toNullJSON(p.LearningOutcomes)
	if err != nil {
		return errors.NewInternal(err)
	}
	steps, err := toNullJSON(p.ImplementationSteps)
	if err != nil {
		return errors.NewInternal(err)
	}

	q := `
		INSERT INTO projects (
			id, title, description, solutions, solutions_text,
			tech_stack_json, difficulty, estimated_hours,
			learning_outcomes_json, implementation_steps_json,
			url, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if replace {
		q += `
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			solutions = excluded.solutions,
			solutions_text = excluded.solutions_text,
			tech_stack_json = excluded.tech_stack_json,
			difficulty = excluded.difficulty,
			estimated_hours = excluded.estimated_hours,
			learning_outcomes_json = excluded.learning_outcomes_json,
			implementation_steps_json = excluded.implementation_steps_json,
			url = excluded.url,
			created_at = excluded.created_at
		`
	}

	_, err = exec.ExecContext(ctx, q,
		p.ID, p.Title, p.Description, p.Solutions, project.PlainText(p.Solutions),
		techStack, toNullString(p.Difficulty), toNullFloat(p.EstimatedHours),
		outcomes, steps,
		toNullString(p.URL), p.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewAlreadyExists(p.ID)
		}
		return errors.NewInternal(err)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetByID retrieves a project by id.
func (s *Store) GetByID(ctx context.Context, id string) (*project.Project, error) {
	q := `SELECT ` + projectColumns + ` FROM projects p WHERE p.id = ?`

	p, err := scanProject(s.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return p, nil
}

// List returns every project ordered by id ascending.
func (s *Store) List(ctx context.Context) ([]project.Project, error) {
	q := `SELECT ` + projectColumns + ` FROM projects p ORDER BY p.id ASC`
	return s.queryProjects(ctx, q)
}

// Count returns the number of projects in the catalog.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// Delete removes a project by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rows == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// RankedSearch runs a full-text query over title, description, and solutions text.
// Matches are returned newest first; ties keep insertion order.
func (s *Store) RankedSearch(ctx context.Context, expr query.Expression, mode query.Mode, limit int) ([]project.Project, error) {
	match := MatchExpression(expr, mode)
	if match == "" {
		return []project.Project{}, nil
	}

	q := `
		SELECT ` + projectColumns + `
		FROM projects_fts
		JOIN projects p ON p.seq = projects_fts.rowid
		WHERE projects_fts MATCH ?
		ORDER BY p.created_at DESC, p.seq ASC
		LIMIT ?
	`
	results, err := s.queryProjects(ctx, q, match, limit)
	if err != nil {
		return nil, fmt.Errorf("ranked search %q: %w", match, err)
	}
	return results, nil
}

// SubstringSearch returns projects where any pattern occurs, case-insensitively,
// in any of the given fields. Newest first; ties keep insertion order.
func (s *Store) SubstringSearch(ctx context.Context, patterns []string, fields []project.Field, limit int) ([]project.Project, error) {
	where, args, err := substringClause(patterns, fields)
	if err != nil {
		return nil, err
	}

	q := `SELECT ` + projectColumns + ` FROM projects p WHERE ` + where +
		` ORDER BY p.created_at DESC, p.seq ASC LIMIT ?`
	args = append(args, limit)
	return s.queryProjects(ctx, q, args...)
}

// substringClause builds an OR of LIKE predicates, one per (pattern, field) pair.
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
			preds = append(preds, "p."+string(f)+` LIKE ? ESCAPE '\'`)
			args = append(args, like)
		}
	}
	return "(" + strings.Join(preds, " OR ") + ")", args, nil
}

// escapeLike escapes LIKE wildcards so patterns match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *Store) queryProjects(ctx context.Context, q string, args ...any) ([]project.Project, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
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

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*project.Project, error) {
	var (
		p                          project.Project
		techStack, outcomes, steps sql.NullString
		difficulty, url            sql.NullString
		hours                      sql.NullFloat64
		createdAt                  int64
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Solutions,
		&techStack, &difficulty, &hours,
		&outcomes, &steps,
		&url, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	if p.TechStack, err = fromNullJSON(techStack); err != nil {
		return nil, err
	}
	if p.LearningOutcomes, err = fromNullJSON(outcomes); err != nil {
		return nil, err
	}
	if p.ImplementationSteps, err = fromNullJSON(steps); err != nil {
		return nil, err
	}
	p.Difficulty = difficulty.String
	p.URL = url.String
	if hours.Valid {
		p.EstimatedHours = hours.Float64
	}
	t := time.UnixMilli(createdAt).UTC()
	p.CreatedAt = &t

	return &p, nil
}

// toNullString maps "" to NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toNullFloat(f float64) sql.NullFloat64 {
	if f <= 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func toNullJSON(items []string) (sql.NullString, error) {
	if len(items) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func fromNullJSON(ns sql.NullString) ([]string, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(ns.String), &items); err != nil {
		return nil, err
	}
	return items, nil
}
