package query

import "fmt"

// Mode selects how an expression is interpreted by a ranked text search.
type Mode string

const (
	// ModeTSQuery honors the full boolean structure, synonyms included.
	ModeTSQuery Mode = "tsquery"
	// ModePlain requires every canonical term, ignoring synonyms.
	ModePlain Mode = "plain"
	// ModePhrase requires the canonical terms as one contiguous phrase.
	ModePhrase Mode = "phrase"
	// ModeWebsearch behaves like ModePlain; stores may apply looser web-style parsing.
	ModeWebsearch Mode = "websearch"
)

// DefaultMode is used when no mode is configured.
const DefaultMode = ModeTSQuery

// ParseMode validates s. An empty string yields DefaultMode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "":
		return DefaultMode, nil
	case ModeTSQuery, ModePlain, ModePhrase, ModeWebsearch:
		return m, nil
	default:
		return "", fmt.Errorf("unknown search mode %q (want tsquery, plain, phrase, or websearch)", s)
	}
}
