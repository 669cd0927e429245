// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at compile time.

package assets

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

// SynthesisSystemPrompt instructs the model to merge all stage answers into
// one video prompt and return nothing else.
//
//go:embed prompts/synthesis-system.txt
var SynthesisSystemPrompt string

//go:embed prompts/suggestion-system.txt
var suggestionSystemTemplate string

//go:embed prompts/suggestion-user.txt
var suggestionUserTemplate string

//go:embed prompts/synthesis-user.txt
var synthesisUserTemplate string

// template.Must panics on malformed templates, so a broken asset fails at startup.
var (
	suggestionSystemTmpl = template.Must(template.New("suggestion-system").Parse(suggestionSystemTemplate))
	suggestionUserTmpl   = template.Must(template.New("suggestion-user").Parse(suggestionUserTemplate))
	synthesisUserTmpl    = template.Must(template.New("synthesis-user").Parse(synthesisUserTemplate))
)

// SuggestionData is injected into the suggestion prompts.
type SuggestionData struct {
	Stage       string
	Title       string
	Description string
	Input       string
	// Context is the accumulated stage answers, serialized as indented JSON.
	Context string
}

// RenderSuggestionSystemPrompt renders the system instruction for a stage suggestion.
func RenderSuggestionSystemPrompt(data SuggestionData) string {
	return renderTemplate(suggestionSystemTmpl, data)
}

// RenderSuggestionUserPrompt renders the user turn for a stage suggestion.
func RenderSuggestionUserPrompt(data SuggestionData) string {
	return renderTemplate(suggestionUserTmpl, data)
}

// RenderSynthesisUserPrompt renders the user turn asking for the final prompt.
// answersJSON is the full answer map serialized as indented JSON.
func RenderSynthesisUserPrompt(answersJSON string) string {
	return renderTemplate(synthesisUserTmpl, SuggestionData{Context: answersJSON})
}

func renderTemplate(tmpl *template.Template, data SuggestionData) string {
	var buf bytes.Buffer
	_ = tmpl.Execute(&buf, data)
	return strings.TrimSpace(buf.String())
}
