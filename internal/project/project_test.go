package project

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestNewID(t *testing.T) {
	id := NewID()
	if _, err := ulid.Parse(id); err != nil {
		t.Fatalf("NewID() = %q, not a ULID: %v", id, err)
	}
	if IsSynthetic(id) {
		t.Errorf("catalog id %q reported as synthetic", id)
	}
}

func TestNewSyntheticID(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := NewSyntheticID()
		if !strings.HasPrefix(id, "ai-") {
			t.Fatalf("NewSyntheticID() = %q, want ai- prefix", id)
		}
		if id != strings.ToLower(id) {
			t.Errorf("NewSyntheticID() = %q, want lowercase", id)
		}
		if !IsSynthetic(id) {
			t.Errorf("IsSynthetic(%q) = false", id)
		}
		if seen[id] {
			t.Fatalf("duplicate synthetic id %q", id)
		}
		seen[id] = true
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		md   string
		want string
	}{
		{
			name: "empty",
			md:   "   ",
			want: "",
		},
		{
			name: "heading and emphasis",
			md:   "# Approach\n\nUse **React** hooks.",
			want: "Approach Use React hooks.",
		},
		{
			name: "list items",
			md:   "- one\n- two",
			want: "one two",
		},
		{
			name: "link keeps label",
			md:   "See [the docs](https://example.com/docs) first.",
			want: "See the docs first.",
		},
		{
			name: "fenced code kept",
			md:   "Run:\n\n```go\nfmt.Println()\n```",
			want: "Run: fmt.Println()",
		},
		{
			name: "soft line breaks",
			md:   "line one\nline two",
			want: "line one line two",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.md); got != tt.want {
				t.Errorf("PlainText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProject_JSONFieldNames(t *testing.T) {
	p := Project{
		ID:             NewSyntheticID(),
		Title:          "Habit Tracker",
		Description:    "Track habits",
		TechStack:      []string{"react"},
		EstimatedHours: 40,
		IsAIGenerated:  true,
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	for _, key := range []string{"id", "title", "description", "solutions", "techStack", "estimatedHours", "isAiGenerated"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	for _, key := range []string{"url", "created_at", "difficulty"} {
		if _, ok := m[key]; ok {
			t.Errorf("unexpected key %q in %s", key, data)
		}
	}
}

func TestField_Valid(t *testing.T) {
	for _, f := range SearchFields {
		if !f.Valid() {
			t.Errorf("%q.Valid() = false", f)
		}
	}
	if Field("url").Valid() {
		t.Error(`"url".Valid() = true`)
	}
}

func TestProject_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Project
		wantErr string
	}{
		{"valid", Project{Title: "Chat", Description: "Realtime chat"}, ""},
		{"valid with url", Project{Title: "Chat", Description: "d", URL: "https://example.com/chat"}, ""},
		{"blank title", Project{Title: "  ", Description: "d"}, "title"},
		{"missing description", Project{Title: "Chat"}, "description"},
		{"long title", Project{Title: strings.Repeat("x", 201), Description: "d"}, "title"},
		{"negative hours", Project{Title: "Chat", Description: "d", EstimatedHours: -1}, "estimatedhours"},
		{"bad url", Project{Title: "Chat", Description: "d", URL: "not a url"}, "url"},
		{"reserved id", Project{ID: SyntheticPrefix + "x", Title: "Chat", Description: "d"}, "reserved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
