package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fpang/prompt-studio/internal/apperr"
	"github.com/fpang/prompt-studio/internal/gateway"
)

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(VideoPrefix), GenerateID(VideoPrefix)
	if !strings.HasPrefix(a, VideoPrefix) || len(a) != len(VideoPrefix)+32 {
		t.Errorf("GenerateID = %q", a)
	}
	if a == b {
		t.Error("ids repeat")
	}
}

func TestParseRoute(t *testing.T) {
	tests := []struct {
		path       string
		wantID     string
		wantAction string
		wantOK     bool
	}{
		{"/api/video/vid-abc/status", "vid-abc", "status", true},
		{"/api/video/abc/file", "vid-abc", "file", true},
		{"/api/video/abc", "", "", false},
		{"/api/video//status", "", "", false},
		{"/api/video/abc/status/extra", "", "", false},
		{"/api/image/abc/status", "", "", false},
	}
	for _, tt := range tests {
		id, action, ok := ParseRoute(tt.path, "/api/video/", VideoPrefix)
		if id != tt.wantID || action != tt.wantAction || ok != tt.wantOK {
			t.Errorf("ParseRoute(%q) = %q, %q, %v", tt.path, id, action, ok)
		}
	}
}

func waitJob(t *testing.T, j *VideoJob) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := j.Wait(ctx); err != nil {
		t.Fatalf("job did not finish: %v", err)
	}
	return j.Snapshot()
}

func TestJobCompletes(t *testing.T) {
	m := NewManager(context.Background())
	var completed gateway.VideoResult

	j := m.Start("sess", "a fox", func(ctx context.Context, onProgress func(gateway.VideoProgress)) (gateway.VideoResult, error) {
		onProgress(gateway.VideoProgress{Poll: 1, MaxPolls: 3})
		return gateway.VideoResult{Filename: "video_1_1.mp4", DurationSeconds: 5}, nil
	}, func(r gateway.VideoResult) { completed = r })

	snap := waitJob(t, j)
	if snap.Status != StatusComplete || snap.Filename != "video_1_1.mp4" || snap.Poll != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if completed.DurationSeconds != 5 {
		t.Error("onComplete was not called with the result")
	}
	if got, ok := m.Get(j.ID()); !ok || got != j {
		t.Error("Get lost the job")
	}
	if !j.OwnedBy("sess") || j.OwnedBy("other") || j.OwnedBy("") {
		t.Error("ownership check is wrong")
	}
}

func TestJobFailureKeepsErrorType(t *testing.T) {
	m := NewManager(context.Background())
	called := false
	j := m.Start("sess", "p", func(ctx context.Context, _ func(gateway.VideoProgress)) (gateway.VideoResult, error) {
		return gateway.VideoResult{}, apperr.Timeout("video", "Video generation timed out")
	}, func(gateway.VideoResult) { called = true })

	snap := waitJob(t, j)
	if snap.Status != StatusError || snap.ErrorType != "timeout" || snap.Error != "Video generation timed out" {
		t.Errorf("snapshot = %+v", snap)
	}
	if called {
		t.Error("onComplete ran for a failed job")
	}
	if _, ok := j.Result(); ok {
		t.Error("failed job reported a result")
	}
}

func TestJobCancel(t *testing.T) {
	m := NewManager(context.Background())
	started := make(chan struct{})
	j := m.Start("sess", "p", func(ctx context.Context, _ func(gateway.VideoProgress)) (gateway.VideoResult, error) {
		close(started)
		<-ctx.Done()
		return gateway.VideoResult{}, ctx.Err()
	}, nil)

	<-started
	j.Cancel()
	if snap := waitJob(t, j); snap.Status != StatusCancelled {
		t.Errorf("status = %s", snap.Status)
	}
	j.Cancel()
}

func TestPrune(t *testing.T) {
	m := NewManager(context.Background())
	j := m.Start("sess", "p", func(context.Context, func(gateway.VideoProgress)) (gateway.VideoResult, error) {
		return gateway.VideoResult{}, errors.New("boom")
	}, nil)
	waitJob(t, j)

	if n := m.Prune(time.Hour); n != 0 {
		t.Errorf("Prune removed a fresh job")
	}
	if n := m.Prune(-time.Second); n != 1 {
		t.Errorf("Prune = %d, want 1", n)
	}
	if _, ok := m.Get(j.ID()); ok {
		t.Error("pruned job still present")
	}
}
