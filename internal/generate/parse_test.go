package generate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/spark/internal/project"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}```", `{"a":1}`},
		{"no fence", "  {\"a\":1}\n", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestParseSuggestions_Valid(t *testing.T) {
	raw := "```json\n" + `{
  "intro": "Based on your interest in React, I suggest:",
  "projects": [
    {
      "title": "Task Board",
      "description": "A kanban board",
      "difficulty": "Beginner",
      "estimatedHours": 20,
      "techStack": ["react", "vite"],
      "learningOutcomes": ["state"],
      "implementationSteps": ["scaffold", "build", "ship"]
    }
  ]
}` + "\n```"

	s, err := ParseSuggestions(raw)
	require.NoError(t, err)

	assert.Equal(t, "Based on your interest in React, I suggest:", s.Intro)
	require.Len(t, s.Projects, 1)
	p := s.Projects[0]
	assert.Equal(t, "Task Board", p.Title)
	assert.Equal(t, "A kanban board", p.Description)
	assert.Equal(t, project.DifficultyBeginner, p.Difficulty)
	assert.Equal(t, 20.0, p.EstimatedHours)
	assert.Equal(t, []string{"react", "vite"}, p.TechStack)
	assert.Equal(t, []string{"state"}, p.LearningOutcomes)
	assert.Len(t, p.ImplementationSteps, 3)
	assert.True(t, p.IsAIGenerated)
	assert.True(t, project.IsSynthetic(p.ID))
	assert.Empty(t, p.URL)
	assert.Nil(t, p.CreatedAt)
}

func TestParseSuggestions_Coercion(t *testing.T) {
	raw := `{"intro": "Ideas:", "projects": [
		{"title": "", "estimatedHours": "35", "techStack": "react", "learningOutcomes": ["a", 3, null, "b"]},
		{"title": "Negative", "estimatedHours": -5, "difficulty": 7},
		{"estimatedHours": "lots"},
		"not an object",
		null
	]}`

	s, err := ParseSuggestions(raw)
	require.NoError(t, err)
	require.Len(t, s.Projects, 5)

	first := s.Projects[0]
	assert.Equal(t, DefaultTitle, first.Title)
	assert.Equal(t, DefaultDescription, first.Description)
	assert.Equal(t, DefaultDifficulty, first.Difficulty)
	assert.Equal(t, 35.0, first.EstimatedHours, "numeric strings are accepted")
	assert.Equal(t, []string{}, first.TechStack)
	assert.Equal(t, []string{"a", "b"}, first.LearningOutcomes)

	assert.Equal(t, "Negative", s.Projects[1].Title)
	assert.Equal(t, float64(DefaultHours), s.Projects[1].EstimatedHours)
	assert.Equal(t, DefaultDifficulty, s.Projects[1].Difficulty)
	assert.Equal(t, float64(DefaultHours), s.Projects[2].EstimatedHours)

	for _, p := range s.Projects[3:] {
		assert.Equal(t, DefaultTitle, p.Title)
		assert.Equal(t, DefaultDescription, p.Description)
		assert.Equal(t, float64(DefaultHours), p.EstimatedHours)
		assert.True(t, p.IsAIGenerated)
	}

	seen := map[string]bool{}
	for _, p := range s.Projects {
		assert.False(t, seen[p.ID], "ids are unique")
		seen[p.ID] = true
	}
}

func TestParseSuggestions_ProseAroundJSON(t *testing.T) {
	raw := `Sure! Here you go: {"intro": "Try these:", "projects": []} Hope it helps.`

	s, err := ParseSuggestions(raw)
	require.NoError(t, err)
	assert.Equal(t, "Try these:", s.Intro)
	assert.Empty(t, s.Projects)
}

func TestParseSuggestions_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "I cannot help with that."},
		{"empty", ""},
		{"array", `[{"intro": "x"}]`},
		{"null", "null"},
		{"missing intro", `{"projects": []}`},
		{"blank intro", `{"intro": "  ", "projects": []}`},
		{"numeric intro", `{"intro": 5, "projects": []}`},
		{"projects object", `{"intro": "x", "projects": {"title": "t"}}`},
		{"projects missing", `{"intro": "x"}`},
		{"truncated", `{"intro": "x", "projects": [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSuggestions(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("  React web app  ")
	assert.Contains(t, p, `"React web app"`)
	assert.Contains(t, p, "exactly 3 projects")
	assert.Contains(t, p, "Beginner/Intermediate/Advanced")
	assert.True(t, strings.HasSuffix(p, "Do not add any other text before or after."))
}
