package assets

import (
	"strings"
	"testing"
)

func TestRenderSuggestionPrompts(t *testing.T) {
	data := SuggestionData{
		Stage:       "mood",
		Title:       "Mood & Atmosphere",
		Description: "Set the emotional tone, lighting, and atmosphere",
		Input:       "eerie fog",
		Context:     "{\n  \"initial_idea\": \"a lighthouse\"\n}",
	}

	system := RenderSuggestionSystemPrompt(data)
	if !strings.Contains(system, "Current stage: Mood & Atmosphere - Set the emotional tone") {
		t.Errorf("system prompt missing stage header:\n%s", system)
	}
	if !strings.Contains(system, "\"initial_idea\": \"a lighthouse\"") {
		t.Errorf("system prompt missing context:\n%s", system)
	}

	user := RenderSuggestionUserPrompt(data)
	if !strings.HasPrefix(user, "Stage: mood\nUser input: eerie fog") {
		t.Errorf("unexpected user prompt:\n%s", user)
	}
}

func TestRenderSynthesisUserPrompt(t *testing.T) {
	got := RenderSynthesisUserPrompt(`{"concept": "noir"}`)
	want := "Combine these refinements into one optimized video prompt:\n\n{\"concept\": \"noir\"}"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if !strings.Contains(SynthesisSystemPrompt, "Return ONLY the final prompt") {
		t.Error("synthesis system prompt must demand prompt-only output")
	}
}

func TestCatalogEmbedded(t *testing.T) {
	if len(StagesYAML) == 0 || len(TemplatesYAML) == 0 {
		t.Fatal("expected embedded catalog files")
	}
}
