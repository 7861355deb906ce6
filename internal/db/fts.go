package db

import (
	"strings"

	"github.com/hpungsan/spark/internal/query"
)

// MatchExpression renders expr as an FTS5 MATCH string for mode.
// Every term is quoted, so punctuation such as "react.js" is treated as a
// phrase rather than FTS5 syntax. Returns "" for an empty expression.
//
//	tsquery:          ("react" OR "reactjs" OR "react.js") AND "web"
//	plain, websearch: "react" "web"
//	phrase:           "react web"
func MatchExpression(expr query.Expression, mode query.Mode) string {
	if expr.Empty() {
		return ""
	}

	switch mode {
	case query.ModePlain, query.ModeWebsearch:
		parts := make([]string, 0, len(expr.Groups))
		for _, t := range expr.Terms() {
			parts = append(parts, quoteFTS(t))
		}
		return strings.Join(parts, " ")
	case query.ModePhrase:
		return quoteFTS(strings.Join(expr.Terms(), " "))
	default:
		parts := make([]string, 0, len(expr.Groups))
		for _, g := range expr.Groups {
			alts := g.Alternatives()
			if len(alts) == 1 {
				parts = append(parts, quoteFTS(alts[0]))
				continue
			}
			quoted := make([]string, len(alts))
			for i, a := range alts {
				quoted[i] = quoteFTS(a)
			}
			parts = append(parts, "("+strings.Join(quoted, " OR ")+")")
		}
		return strings.Join(parts, " AND ")
	}
}

// quoteFTS wraps s as an FTS5 string, doubling embedded quotes.
func quoteFTS(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
