package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/spark/internal/errors"
	"github.com/hpungsan/spark/internal/project"
	"github.com/hpungsan/spark/internal/query"
)

func TestTSQuery(t *testing.T) {
	expr := query.Normalize("React web application")

	tests := []struct {
		mode query.Mode
		fn   string
		arg  string
	}{
		{query.ModeTSQuery, "to_tsquery", "(react | reactjs | react.js) & web & application"},
		{query.ModePlain, "plainto_tsquery", "react web application"},
		{query.ModePhrase, "phraseto_tsquery", "react web application"},
		{query.ModeWebsearch, "websearch_to_tsquery", "react web application"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			fn, arg := tsQuery(expr, tt.mode)
			assert.Equal(t, tt.fn, fn)
			assert.Equal(t, tt.arg, arg)
		})
	}

	fn, arg := tsQuery(query.Expression{}, query.ModeTSQuery)
	assert.Empty(t, fn)
	assert.Empty(t, arg)
}

func TestSubstringClause(t *testing.T) {
	where, args, err := substringClause([]string{"web", "50%"}, []project.Field{project.FieldTitle, project.FieldSolutions})
	require.NoError(t, err)

	assert.Equal(t,
		`(title ILIKE $1 ESCAPE '\' OR solutions ILIKE $2 ESCAPE '\' OR title ILIKE $3 ESCAPE '\' OR solutions ILIKE $4 ESCAPE '\')`,
		where)
	assert.Equal(t, []any{"%web%", "%web%", `%50\%%`, `%50\%%`}, args)
}

func TestSubstringClause_Invalid(t *testing.T) {
	_, _, err := substringClause(nil, project.SearchFields)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, _, err = substringClause([]string{"x"}, []project.Field{"seq; DROP TABLE projects"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestOpen_RejectsBadTextConfig(t *testing.T) {
	_, err := Open(context.Background(), "postgres://localhost/none", Options{TextSearchConfig: "english'; --"})
	assert.ErrorContains(t, err, "invalid text search config")
}
