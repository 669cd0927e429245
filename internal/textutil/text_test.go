package textutil

import (
	"strings"
	"testing"

	"github.com/fpang/prompt-studio/internal/apperr"
)

func TestValidatePrompt(t *testing.T) {
	got, err := ValidatePrompt("image", "  a red fox  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a red fox" {
		t.Errorf("expected trimmed prompt, got %q", got)
	}

	for _, in := range []string{"", "   \n\t", strings.Repeat("x", MaxPromptLength+1)} {
		if _, err := ValidatePrompt("image", in); !apperr.Is(err, apperr.ErrTypeValidation) {
			t.Errorf("ValidatePrompt(%q...) expected validation error, got %v", Truncate(in, 10), err)
		}
	}

	if _, err := ValidatePrompt("image", strings.Repeat("é", MaxPromptLength)); err != nil {
		t.Errorf("expected %d multibyte characters to be accepted: %v", MaxPromptLength, err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := SanitizeFilename(`a<b>c:d"e/f\g|h?i*j`); got != "a_b_c_d_e_f_g_h_i_j" {
		t.Errorf("unexpected sanitized name %q", got)
	}
	if got := SanitizeFilename(strings.Repeat("n", 80)); len(got) != 50 {
		t.Errorf("expected 50 characters, got %d", len(got))
	}
}

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain prompt", "plain prompt"},
		{"```\nA slow pan.\n```", "A slow pan."},
		{"```text\nline one\nline two\n```\n", "line one\nline two"},
		{"  ```", "```"},
	}
	for _, tt := range tests {
		if got := StripMarkdownFences(tt.in); got != tt.want {
			t.Errorf("StripMarkdownFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKeyPrefix(t *testing.T) {
	if got := KeyPrefix("sk-abcdefghijkl"); got != "sk-abcd..." {
		t.Errorf("got %q", got)
	}
	if got := KeyPrefix("sk"); got != "short_key" {
		t.Errorf("got %q", got)
	}
}
