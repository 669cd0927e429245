package metrics

import (
	"errors"
	"testing"

	"github.com/fpang/prompt-studio/internal/apperr"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{apperr.Timeout("video", "timed out"), "timeout"},
		{apperr.Auth("image", "no key", nil), "auth"},
		{errors.New("plain"), "error"},
	}
	for _, tt := range tests {
		if got := Result(tt.err); got != tt.want {
			t.Errorf("Result(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestTimerDone(t *testing.T) {
	before := testutil.ToFloat64(GenerationTotal.WithLabelValues("image", "success"))

	StartCall("image").Done(nil)

	after := testutil.ToFloat64(GenerationTotal.WithLabelValues("image", "success"))
	if after != before+1 {
		t.Errorf("expected counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestEnhanceOp(t *testing.T) {
	before := testutil.ToFloat64(EnhanceOperationsTotal.WithLabelValues("submit_stage", "validation"))

	EnhanceOp("submit_stage", apperr.Validation("submit_stage", "empty input"))

	after := testutil.ToFloat64(EnhanceOperationsTotal.WithLabelValues("submit_stage", "validation"))
	if after != before+1 {
		t.Errorf("expected counter to increase by 1, got %v -> %v", before, after)
	}
}
