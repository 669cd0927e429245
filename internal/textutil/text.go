// Package textutil cleans and validates text that flows between the browser
// and the generative providers.
package textutil

import (
	"strings"
	"unicode/utf8"

	"github.com/fpang/prompt-studio/internal/apperr"
)

// MaxPromptLength is the longest prompt accepted from the browser, in characters.
const MaxPromptLength = 1000

const invalidFilenameChars = `<>:"/\|?*`

// ValidatePrompt trims prompt and rejects it when empty or too long.
func ValidatePrompt(op, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", apperr.Validation(op, "Prompt cannot be empty")
	}
	if utf8.RuneCountInString(prompt) > MaxPromptLength {
		return "", apperr.Validation(op, "Prompt must be less than 1000 characters long")
	}
	return prompt, nil
}

// SanitizeFilename replaces characters that are invalid in download names
// with '_' and caps the result at 50 characters.
func SanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidFilenameChars, r) {
			return '_'
		}
		return r
	}, name)
	return Truncate(name, 50)
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Preview is Truncate with a trailing ellipsis, for log fields.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return Truncate(s, n) + "..."
}

// StripMarkdownFences removes ```lang ... ``` wrapping from model output.
// Text without a leading fence is returned trimmed.
func StripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}

	end := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[1:end], "\n"))
}

// KeyPrefix returns the first seven characters of a credential for logging.
func KeyPrefix(key string) string {
	if len(key) > 7 {
		return key[:7] + "..."
	}
	return "short_key"
}
