package stages

import "testing"

func TestDefaultCatalogOrder(t *testing.T) {
	c := Default()
	want := []string{Concept, Mood, Subjects, Visual, Polish}
	if c.Len() != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), c.Len())
	}
	for i, s := range c.Stages() {
		if s.ID != want[i] {
			t.Errorf("stage %d = %q, want %q", i, s.ID, want[i])
		}
		if len(s.Questions) != 3 {
			t.Errorf("stage %q has %d questions, want 3", s.ID, len(s.Questions))
		}
		if len(s.Suggestions) != 5 {
			t.Errorf("stage %q has %d suggestions, want 5", s.ID, len(s.Suggestions))
		}
	}
	if c.First().ID != Concept || c.Last().ID != Polish {
		t.Errorf("unexpected bounds %q..%q", c.First().ID, c.Last().ID)
	}
}

func TestNavigation(t *testing.T) {
	c := Default()

	if _, ok := c.Prev(Concept); ok {
		t.Error("expected no stage before concept")
	}
	if _, ok := c.Next(Polish); ok {
		t.Error("expected no stage after polish")
	}
	next, ok := c.Next(Mood)
	if !ok || next.ID != Subjects {
		t.Errorf("Next(mood) = %q, %v", next.ID, ok)
	}
	prev, ok := c.Prev(Mood)
	if !ok || prev.ID != Concept {
		t.Errorf("Prev(mood) = %q, %v", prev.ID, ok)
	}
	if !c.IsLast(Polish) || c.IsLast(Visual) {
		t.Error("IsLast mismatch")
	}
	if c.Index("bogus") != -1 {
		t.Error("expected -1 for unknown stage")
	}
	if _, ok := c.Lookup(InitialIdeaKey); ok {
		t.Error("initial_idea must not be a stage")
	}
}

func TestStagesReturnsCopy(t *testing.T) {
	c := Default()
	s := c.Stages()
	s[0].Title = "mutated"
	if c.First().Title == "mutated" {
		t.Error("Stages() must not expose internal state")
	}
}

func TestTemplates(t *testing.T) {
	c := Default()
	if len(c.Templates()) != 3 {
		t.Fatalf("expected 3 templates, got %d", len(c.Templates()))
	}
	tpl, ok := c.Template("product_showcase")
	if !ok {
		t.Fatal("expected product_showcase template")
	}
	if tpl.Title != "Premium Product Showcase" {
		t.Errorf("unexpected title %q", tpl.Title)
	}
	if len(tpl.Tags) != 5 {
		t.Errorf("expected 5 tags, got %d", len(tpl.Tags))
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"empty":     "",
		"no stages": "stages: []",
		"reserved":  "stages:\n  - id: initial_idea\n    title: X",
		"duplicate": "stages:\n  - id: a\n    title: A\n  - id: a\n    title: B",
		"no title":  "stages:\n  - id: a",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(data), nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestComposeGuidedInput(t *testing.T) {
	tests := []struct {
		selected []string
		details  string
		want     string
	}{
		{[]string{"Warm and inviting", "Calm and serene"}, "", "Selected: Warm and inviting, Calm and serene"},
		{nil, "soft rain", "Additional details: soft rain"},
		{[]string{"Static wide shots"}, " slow dolly ", "Selected: Static wide shots. Additional details: slow dolly"},
		{[]string{" "}, "", ""},
	}
	for _, tt := range tests {
		if got := ComposeGuidedInput(tt.selected, tt.details); got != tt.want {
			t.Errorf("ComposeGuidedInput(%v, %q) = %q, want %q", tt.selected, tt.details, got, tt.want)
		}
	}
}
