package generate

import (
	"fmt"
	"strings"
)

const promptTemplate = `Act as a helpful project advisor. For this request: %q, suggest 3 practical project ideas.
First, write a single sentence introduction like "Here are some project ideas for you:" or "Based on your interest in [technology], I suggest:"

Then, list exactly 3 projects in this JSON format:
{
  "intro": "your introduction text here",
  "projects": [
    {
      "title": "Project Name",
      "description": "A brief but engaging description",
      "difficulty": "Beginner/Intermediate/Advanced",
      "estimatedHours": number between 10-100,
      "techStack": ["main tech", "library1", "tool1"],
      "learningOutcomes": ["outcome1", "outcome2", "outcome3"],
      "implementationSteps": ["step1", "step2", "step3", "step4"]
    }
  ]
}
Note: Respond ONLY with the JSON. Do not add any other text before or after.`

// BuildPrompt renders the backend instruction for a user prompt.
func BuildPrompt(prompt string) string {
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(prompt))
}
