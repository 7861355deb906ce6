package generate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/hpungsan/spark/internal/project"
)

// Defaults applied to missing or malformed suggestion fields.
const (
	DefaultTitle       = "Project Suggestion"
	DefaultDescription = "No description provided"
	DefaultDifficulty  = project.DifficultyIntermediate
	DefaultHours       = 40
)

var (
	jsonFence  = regexp.MustCompile("```json\\n?")
	plainFence = regexp.MustCompile("```\\n?")
)

// StripCodeFences removes markdown code fences around a JSON reply.
func StripCodeFences(raw string) string {
	s := jsonFence.ReplaceAllString(raw, "")
	s = plainFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ParseSuggestions decodes a backend reply. The reply must be a JSON object
// with a non-empty string intro and a projects array; malformed entries are
// coerced to defaults rather than rejected.
func ParseSuggestions(raw string) (Suggestions, error) {
	doc, err := decodeObject(StripCodeFences(raw))
	if err != nil {
		return Suggestions{}, err
	}

	intro, ok := doc["intro"].(string)
	if !ok || strings.TrimSpace(intro) == "" {
		return Suggestions{}, fmt.Errorf("reply has no intro")
	}
	entries, ok := doc["projects"].([]any)
	if !ok {
		return Suggestions{}, fmt.Errorf("reply projects is %T, want array", doc["projects"])
	}

	projects := make([]project.Project, 0, len(entries))
	for _, e := range entries {
		fields, _ := e.(map[string]any)
		projects = append(projects, coerceProject(fields))
	}
	return Suggestions{Intro: strings.TrimSpace(intro), Projects: projects}, nil
}

// decodeObject parses s as a JSON object, retrying on the outermost brace
// span when the model wrapped the object in prose.
func decodeObject(s string) (map[string]any, error) {
	var doc map[string]any
	err := json.Unmarshal([]byte(s), &doc)
	if err == nil && doc != nil {
		return doc, nil
	}

	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		doc = nil
		if err2 := json.Unmarshal([]byte(s[start:end+1]), &doc); err2 == nil && doc != nil {
			return doc, nil
		}
	}
	if err == nil {
		err = fmt.Errorf("reply is not a JSON object")
	}
	return nil, fmt.Errorf("failed to parse reply: %w", err)
}

// coerceProject builds a synthetic project from a decoded entry. A nil map
// yields an all-default project.
func coerceProject(fields map[string]any) project.Project {
	return project.Project{
		ID:                  project.NewSyntheticID(),
		Title:               stringOr(fields["title"], DefaultTitle),
		Description:         stringOr(fields["description"], DefaultDescription),
		Difficulty:          stringOr(fields["difficulty"], DefaultDifficulty),
		EstimatedHours:      hours(fields["estimatedHours"]),
		TechStack:           stringList(fields["techStack"]),
		LearningOutcomes:    stringList(fields["learningOutcomes"]),
		ImplementationSteps: stringList(fields["implementationSteps"]),
		IsAIGenerated:       true,
	}
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return def
}

// hours accepts JSON numbers and numeric strings; anything else, or a
// non-positive value, is DefaultHours.
func hours(v any) float64 {
	var h float64
	switch x := v.(type) {
	case float64:
		h = x
	case json.Number:
		h, _ = x.Float64()
	case string:
		h, _ = strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	if h <= 0 || math.IsNaN(h) || math.IsInf(h, 0) {
		return DefaultHours
	}
	return h
}

// stringList keeps the string items of an array. Non-arrays become empty.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
