// Package validate implements the prompt quality gate applied before any
// search or generation work is done.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/spark/internal/terms"
)

// Thresholds for the quality gate.
const (
	MinPromptRunes    = 3
	MinAvgWordLength  = 2.0
	MaxAvgWordLength  = 15.0
	MaxConsonantRatio = 0.7
)

// Rejection reasons reported by Check.
const (
	ReasonTooShort       = "prompt is too short"
	ReasonNoDomainTerm   = "no recognizable technical term"
	ReasonWordLength     = "average word length out of range"
	ReasonConsonantHeavy = "too many consonants"
)

const consonants = "bcdfghjklmnpqrstvwxz"

var nonWord = regexp.MustCompile(`\W+`)

// Verdict is the result of checking a prompt.
type Verdict struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`

	// AvgWordLength and ConsonantRatio are the measured values.
	AvgWordLength  float64 `json:"avg_word_length"`
	ConsonantRatio float64 `json:"consonant_ratio"`
}

// Validator checks prompts against a domain dictionary.
type Validator struct {
	domain terms.Set
}

// New creates a Validator using the given dictionary.
func New(domain terms.Set) *Validator {
	return &Validator{domain: domain}
}

var defaultValidator = New(terms.Domain())

// IsValidInput reports whether prompt passes the quality gate with the
// built-in dictionary.
func IsValidInput(prompt string) bool {
	return defaultValidator.Valid(prompt)
}

// Default returns the validator backed by the built-in dictionary.
func Default() *Validator {
	return defaultValidator
}

// Valid reports whether prompt passes every rule.
func (v *Validator) Valid(prompt string) bool {
	return v.Check(prompt).Valid
}

// Check evaluates prompt and reports the first rule that rejected it.
func (v *Validator) Check(prompt string) Verdict {
	runes := utf8.RuneCountInString(prompt)
	if runes < MinPromptRunes {
		return Verdict{Reason: ReasonTooShort}
	}

	words := nonWord.Split(strings.ToLower(prompt), -1)

	verdict := Verdict{
		AvgWordLength:  averageLength(words),
		ConsonantRatio: consonantRatio(prompt, runes),
	}

	hasTerm := false
	for _, w := range words {
		if v.domain.ContainedIn(w) {
			hasTerm = true
			break
		}
	}

	switch {
	case !hasTerm:
		verdict.Reason = ReasonNoDomainTerm
	case verdict.AvgWordLength < MinAvgWordLength || verdict.AvgWordLength > MaxAvgWordLength:
		verdict.Reason = ReasonWordLength
	case verdict.ConsonantRatio > MaxConsonantRatio:
		verdict.Reason = ReasonConsonantHeavy
	default:
		verdict.Valid = true
	}
	return verdict
}

func averageLength(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	total := 0
	for _, w := range words {
		total += utf8.RuneCountInString(w)
	}
	return float64(total) / float64(len(words))
}

// consonantRatio counts consonants over every rune of the raw prompt,
// including spaces and punctuation.
func consonantRatio(prompt string, runes int) float64 {
	if runes == 0 {
		return 0
	}
	n := 0
	for _, r := range strings.ToLower(prompt) {
		if strings.ContainsRune(consonants, r) {
			n++
		}
	}
	return float64(n) / float64(runes)
}
