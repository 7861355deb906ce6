// Package terms holds the fixed lookup tables shared by prompt validation,
// query normalization, and topic extraction.
//
// All tables are immutable after construction; callers receive copies.
package terms

import (
	"slices"
	"strings"
)

// Set is an immutable set of lowercase terms.
type Set struct {
	items map[string]struct{}
	order []string
}

// NewSet builds a Set from words. Words are lowercased and trimmed;
// empty words and duplicates are dropped. Iteration order is insertion order.
func NewSet(words ...string) Set {
	s := Set{items: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := s.items[w]; ok {
			continue
		}
		s.items[w] = struct{}{}
		s.order = append(s.order, w)
	}
	return s
}

// Has reports whether word is in the set. The lookup is exact.
func (s Set) Has(word string) bool {
	_, ok := s.items[word]
	return ok
}

// ContainedIn reports whether word equals a term or contains one as a substring.
func (s Set) ContainedIn(word string) bool {
	if word == "" {
		return false
	}
	if s.Has(word) {
		return true
	}
	for _, t := range s.order {
		if strings.Contains(word, t) {
			return true
		}
	}
	return false
}

// Len returns the number of terms.
func (s Set) Len() int {
	return len(s.order)
}

// Words returns the terms in insertion order.
func (s Set) Words() []string {
	return slices.Clone(s.order)
}

// Union returns a new Set containing the terms of s followed by those of other.
func (s Set) Union(other Set) Set {
	return NewSet(append(s.Words(), other.order...)...)
}

// Synonyms maps a canonical term to its ordered variants.
type Synonyms struct {
	table map[string][]string
}

// NewSynonyms builds a synonym table. Keys and variants are lowercased;
// a variant equal to its key is dropped.
func NewSynonyms(table map[string][]string) Synonyms {
	out := Synonyms{table: make(map[string][]string, len(table))}
	for k, vs := range table {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		clean := make([]string, 0, len(vs))
		for _, v := range vs {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "" || v == k || slices.Contains(clean, v) {
				continue
			}
			clean = append(clean, v)
		}
		out.table[k] = clean
	}
	return out
}

// Variants returns the variants for term, or nil if it has none.
func (s Synonyms) Variants(term string) []string {
	vs, ok := s.table[term]
	if !ok || len(vs) == 0 {
		return nil
	}
	return slices.Clone(vs)
}

// Len returns the number of canonical terms with variants.
func (s Synonyms) Len() int {
	return len(s.table)
}
