// Package reasoning records how a recommendation was reached and how much
// it should be trusted.
package reasoning

import (
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/hpungsan/spark/internal/terms"
)

// DefaultImpact is the confidence lost per uncertainty.
const DefaultImpact = 0.1

// Confidence thresholds for conclusions.
const (
	HighConfidence = 0.8
	GoodConfidence = 0.5
)

// Conclusion texts.
const (
	ConclusionHigh = "High confidence in project matches and suggestions"
	ConclusionGood = "Good confidence in recommendations, with some assumptions"
	ConclusionLow  = "Consider providing more specific requirements for better recommendations"
)

const maxFocusAreas = 3

var wordSplit = regexp.MustCompile(`\W+`)

// Tracker accumulates thoughts and uncertainties for one request.
// Confidence starts at 1 and only decreases.
type Tracker struct {
	mu            sync.Mutex
	topics        terms.Set
	thoughts      []string
	uncertainties []string
	confidence    float64
}

// New creates a Tracker that ranks focus areas from topics.
func New(topics terms.Set) *Tracker {
	return &Tracker{topics: topics, confidence: 1.0}
}

// NewDefault creates a Tracker over the built-in technical terms.
func NewDefault() *Tracker {
	return New(terms.Technical())
}

// AddThought appends a thought.
func (t *Tracker) AddThought(thought string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.thoughts = append(t.thoughts, thought)
}

// MarkUncertainty records area with DefaultImpact.
func (t *Tracker) MarkUncertainty(area string) {
	t.MarkUncertaintyWithImpact(area, DefaultImpact)
}

// MarkUncertaintyWithImpact records area and lowers confidence by impact.
// Areas are deduplicated, but every call costs confidence. Negative
// impacts count as zero; confidence never drops below zero.
func (t *Tracker) MarkUncertaintyWithImpact(area string, impact float64) {
	if impact < 0 {
		impact = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if !slices.Contains(t.uncertainties, area) {
		t.uncertainties = append(t.uncertainties, area)
	}
	t.confidence -= impact
	if t.confidence < 0 {
		t.confidence = 0
	}
}

// Thoughts returns a copy of the recorded thoughts.
func (t *Tracker) Thoughts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.thoughts)
}

// Uncertainties returns a copy of the recorded areas in insertion order.
func (t *Tracker) Uncertainties() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.uncertainties)
}

// Confidence returns the current confidence in [0, 1].
func (t *Tracker) Confidence() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.confidence
}

// SynthesizeConclusions summarizes the focus areas, the open questions, and
// the confidence level.
func (t *Tracker) SynthesizeConclusions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []string
	if areas := t.focusAreas(); len(areas) > 0 {
		out = append(out, "Main focus areas: "+strings.Join(areas, ", "))
	}
	if len(t.uncertainties) > 0 {
		out = append(out, "Areas needing clarification: "+strings.Join(t.uncertainties, ", "))
	}

	switch {
	case t.confidence > HighConfidence:
		out = append(out, ConclusionHigh)
	case t.confidence > GoodConfidence:
		out = append(out, ConclusionGood)
	default:
		out = append(out, ConclusionLow)
	}
	return out
}

// focusAreas returns up to three topic words by frequency across all
// thoughts, ties broken by first appearance. Must be called with mu held.
func (t *Tracker) focusAreas() []string {
	counts := make(map[string]int)
	var order []string
	for _, thought := range t.thoughts {
		for _, w := range wordSplit.Split(strings.ToLower(thought), -1) {
			if w == "" || !t.topics.Has(w) {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > maxFocusAreas {
		order = order[:maxFocusAreas]
	}
	return order
}

// Snapshot is the serializable state of a Tracker.
type Snapshot struct {
	Confidence    float64  `json:"confidence"`
	Thoughts      []string `json:"thoughts"`
	Uncertainties []string `json:"uncertainties"`
	Conclusions   []string `json:"conclusions"`
}

// Snapshot captures the tracker state, conclusions included.
func (t *Tracker) Snapshot() Snapshot {
	conclusions := t.SynthesizeConclusions()
	return Snapshot{
		Confidence:    t.Confidence(),
		Thoughts:      t.Thoughts(),
		Uncertainties: t.Uncertainties(),
		Conclusions:   conclusions,
	}
}
