package project

import (
	"time"
)

// Project is a recommendable project idea, either from the catalog
// or synthesized by the suggestion backend.
type Project struct {
	// ID is a ULID for catalog projects or "ai-<ulid>" for synthetic ones
	ID string `json:"id"`

	Title       string `json:"title"`
	Description string `json:"description"`

	// Solutions is free-form markdown describing approaches
	Solutions string `json:"solutions"`

	TechStack           []string `json:"techStack,omitempty"`
	Difficulty          string   `json:"difficulty,omitempty"`
	EstimatedHours      float64  `json:"estimatedHours,omitempty"`
	LearningOutcomes    []string `json:"learningOutcomes,omitempty"`
	ImplementationSteps []string `json:"implementationSteps,omitempty"`

	IsAIGenerated bool   `json:"isAiGenerated,omitempty"`
	URL           string `json:"url,omitempty"`

	// CreatedAt is unset for synthetic projects
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Difficulty levels requested from the suggestion backend.
const (
	DifficultyBeginner     = "Beginner"
	DifficultyIntermediate = "Intermediate"
	DifficultyAdvanced     = "Advanced"
)

// Field names a searchable text column.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldSolutions   Field = "solutions"
)

// SearchFields are the fields covered by ranked and fuzzy search.
var SearchFields = []Field{FieldTitle, FieldDescription, FieldSolutions}

// Valid reports whether f is a known field.
func (f Field) Valid() bool {
	switch f {
	case FieldTitle, FieldDescription, FieldSolutions:
		return true
	}
	return false
}
