// Package query turns a free-text prompt into a boolean search expression.
package query

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/spark/internal/terms"
)

// MinTermLength is the shortest token kept by the normalizer.
const MinTermLength = 3

var (
	tokenSplit = regexp.MustCompile(`[\s,.|&]+`)
	nonWord    = regexp.MustCompile(`[^\w\s]`)
)

// Group is a single search term with its synonym variants.
// A group matches if any of its alternatives matches.
type Group struct {
	Term     string   `json:"term"`
	Variants []string `json:"variants,omitempty"`
}

// Alternatives returns the canonical term followed by its variants.
func (g Group) Alternatives() []string {
	out := make([]string, 0, 1+len(g.Variants))
	out = append(out, g.Term)
	return append(out, g.Variants...)
}

// String renders the group in tsquery syntax: "term" or "(term | v1 | v2)".
func (g Group) String() string {
	if len(g.Variants) == 0 {
		return g.Term
	}
	return "(" + strings.Join(g.Alternatives(), " | ") + ")"
}

// Expression is a conjunction of groups. Every group must match.
type Expression struct {
	Groups []Group `json:"groups"`
}

// Empty reports whether the expression has no terms.
func (e Expression) Empty() bool {
	return len(e.Groups) == 0
}

// String renders the expression in tsquery syntax, e.g.
// "(react | reactjs | react.js) & web & application".
func (e Expression) String() string {
	parts := make([]string, len(e.Groups))
	for i, g := range e.Groups {
		parts[i] = g.String()
	}
	return strings.Join(parts, " & ")
}

// Terms returns the canonical term of each group in order.
// These drive substring fallback matching.
func (e Expression) Terms() []string {
	out := make([]string, len(e.Groups))
	for i, g := range e.Groups {
		out[i] = g.Term
	}
	return out
}

// Expanded reports whether any group carries synonym variants.
func (e Expression) Expanded() bool {
	for _, g := range e.Groups {
		if len(g.Variants) > 0 {
			return true
		}
	}
	return false
}

// StripOperators recovers the canonical term list from a rendered expression
// by removing grouping and operators. StripOperators(e.String()) equals e.Terms().
func StripOperators(expr string) []string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return []string{}
	}
	clauses := strings.Split(expr, " & ")
	out := make([]string, 0, len(clauses))
	for _, c := range clauses {
		c = strings.Trim(strings.TrimSpace(c), "()")
		head, _, _ := strings.Cut(c, " | ")
		if head = strings.TrimSpace(head); head != "" {
			out = append(out, head)
		}
	}
	return out
}

// Normalizer converts prompts into expressions.
type Normalizer struct {
	stopwords terms.Set
	synonyms  terms.Synonyms
}

// New creates a Normalizer with the given tables.
func New(stopwords terms.Set, synonyms terms.Synonyms) *Normalizer {
	return &Normalizer{stopwords: stopwords, synonyms: synonyms}
}

var defaultNormalizer = New(terms.Stopwords(), terms.DefaultSynonyms())

// Normalize converts prompt using the built-in tables.
func Normalize(prompt string) Expression {
	return defaultNormalizer.Normalize(prompt)
}

// Normalize lowercases and tokenizes prompt, drops short tokens and
// stopwords, strips punctuation, and expands synonyms. Duplicate terms
// keep their first position.
func (n *Normalizer) Normalize(prompt string) Expression {
	expr := Expression{Groups: []Group{}}
	prompt = strings.ToLower(strings.TrimSpace(prompt))
	if prompt == "" {
		return expr
	}

	seen := make(map[string]bool)
	for _, tok := range tokenSplit.Split(prompt, -1) {
		if utf8.RuneCountInString(tok) < MinTermLength || n.stopwords.Has(tok) {
			continue
		}
		tok = nonWord.ReplaceAllString(tok, "")
		if utf8.RuneCountInString(tok) < MinTermLength || seen[tok] {
			continue
		}
		seen[tok] = true
		expr.Groups = append(expr.Groups, Group{
			Term:     tok,
			Variants: n.synonyms.Variants(tok),
		})
	}
	return expr
}
