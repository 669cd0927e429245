package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fpang/prompt-studio/internal/apperr"
)

func TestVideoStatistics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	l := Open(path)

	if _, err := l.IncrementVideos(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, err := l.IncrementVideos(8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected count 2, got %d", n)
	}

	s := l.Statistics()
	if s.Videos5s != 1 || s.Videos8s != 1 {
		t.Errorf("expected one 5s and one 8s video, got %d/%d", s.Videos5s, s.Videos8s)
	}
	if s.TotalVideos != 2 {
		t.Errorf("expected 2 videos, got %d", s.TotalVideos)
	}
	if s.AverageVideoDurationSeconds != 6.5 {
		t.Errorf("expected average 6.5, got %v", s.AverageVideoDurationSeconds)
	}
	if s.TotalVideoDurationSeconds != 13 {
		t.Errorf("expected total 13, got %d", s.TotalVideoDurationSeconds)
	}
	if s.VideoCountByDuration[5] != 1 || s.VideoCountByDuration[8] != 1 {
		t.Errorf("unexpected histogram %v", s.VideoCountByDuration)
	}
	if s.FormattedTotalDuration != "13s" {
		t.Errorf("unexpected formatted duration %q", s.FormattedTotalDuration)
	}
}

func TestCountersPersistAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	l := Open(path)
	l.IncrementChats()
	l.IncrementChats()
	l.IncrementImages()
	l.IncrementEnhancedPrompts()

	reopened := Open(path)
	s := reopened.Statistics()
	if s.TotalChats != 2 || s.TotalImages != 1 || s.TotalEnhancedPrompts != 1 {
		t.Errorf("unexpected counters after reopen: %+v", s)
	}
	if s.FirstUsed == "" || s.LastUpdated == "" {
		t.Error("expected timestamps to be set")
	}
}

func TestCorruptFileStartsFromZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := Open(path).Statistics()
	if s.TotalVideos != 0 || s.TotalChats != 0 || s.TotalImages != 0 || s.TotalEnhancedPrompts != 0 {
		t.Errorf("expected zero defaults, got %+v", s)
	}
	if s.AverageVideoDurationSeconds != 0 {
		t.Errorf("expected zero average, got %v", s.AverageVideoDurationSeconds)
	}
}

func TestMissingFieldsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	if err := os.WriteFile(path, []byte(`{"videos_generated": 3, "chat_messages": 7}`), 0o644); err != nil {
		t.Fatal(err)
	}

	l := Open(path)
	s := l.Statistics()
	if s.TotalVideos != 3 || s.TotalChats != 7 {
		t.Errorf("expected loaded counters, got %+v", s)
	}
	if s.TotalEnhancedPrompts != 0 || s.Videos6s != 0 {
		t.Errorf("expected missing fields to default to zero, got %+v", s)
	}
	if s.FirstUsed == "" {
		t.Error("expected first_used to be initialized")
	}
}

func TestDurationTotalSelfHeals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	content := `{
  "videos_generated": 2,
  "video_durations": [
    {"duration_seconds": 5, "generated_at": "2024-01-01T00:00:00Z"},
    {"duration_seconds": 7, "generated_at": "2024-01-01T00:01:00Z"}
  ],
  "total_video_duration_seconds": 99
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s := Open(path).Statistics()
	if s.TotalVideoDurationSeconds != 12 {
		t.Errorf("expected corrected total 12, got %d", s.TotalVideoDurationSeconds)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var onDisk record
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatal(err)
	}
	if onDisk.TotalVideoDurationSeconds != 12 {
		t.Errorf("expected corrected total to be persisted, got %d", onDisk.TotalVideoDurationSeconds)
	}
}

func TestWriteFailureIsPersistenceError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "stats.json")
	l := Open(path)

	n, err := l.IncrementChats()
	if n != 1 {
		t.Errorf("expected in-memory count 1, got %d", n)
	}
	if !apperr.Is(err, apperr.ErrTypePersistence) {
		t.Errorf("expected persistence error, got %v", err)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	l := Open(path)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.IncrementImages()
		}()
	}
	wg.Wait()

	if got := Open(path).Statistics().TotalImages; got != 20 {
		t.Errorf("expected 20 images on disk, got %d", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[int]string{
		0:   "0s",
		59:  "59s",
		60:  "1m 0s",
		125: "2m 5s",
	}
	for in, want := range tests {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%d) = %q, want %q", in, got, want)
		}
	}
}
