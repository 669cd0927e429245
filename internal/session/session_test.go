package session

import (
	"testing"
	"time"

	"github.com/fpang/prompt-studio/internal/auth"
	"github.com/fpang/prompt-studio/internal/enhance"
)

func TestStoreGetCreatesAndReuses(t *testing.T) {
	st := NewStore(0)

	s, created := st.Get("")
	if !created || s.ID == "" {
		t.Fatalf("Get(\"\") = %q, created=%v", s.ID, created)
	}
	if s.Mode != ModeChat || s.Enhance == nil || s.Enhance.State() != enhance.StateIdle {
		t.Errorf("new session = %+v", s)
	}

	again, created := st.Get(s.ID)
	if created || again != s {
		t.Error("Get with a known id issued a new session")
	}

	other, created := st.Get("not-a-uuid")
	if !created || other.ID == s.ID {
		t.Error("malformed id was accepted")
	}
	if st.Len() != 2 {
		t.Errorf("Len = %d", st.Len())
	}
}

func TestStoreSweep(t *testing.T) {
	st := NewStore(time.Hour)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base }

	old, _ := st.Get("")
	st.now = func() time.Time { return base.Add(50 * time.Minute) }
	fresh, _ := st.Get("")

	st.now = func() time.Time { return base.Add(90 * time.Minute) }
	if n := st.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
	if _, ok := st.Lookup(old.ID); ok {
		t.Error("idle session survived")
	}
	if _, ok := st.Lookup(fresh.ID); !ok {
		t.Error("recent session was dropped")
	}
}

func TestStoreSweepRunsEvictHook(t *testing.T) {
	st := NewStore(time.Hour)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base }

	var forgotten []string
	st.OnEvict(func(s *Session) { forgotten = append(forgotten, s.Credentials.OpenAIKey) })

	old, _ := st.Get("")
	old.Credentials = auth.Credentials{OpenAIKey: "sk-idle"}

	st.now = func() time.Time { return base.Add(2 * time.Hour) }
	st.Sweep()
	if len(forgotten) != 1 || forgotten[0] != "sk-idle" {
		t.Errorf("evict hook saw %v", forgotten)
	}
}

func TestAppendCountsStats(t *testing.T) {
	s := newSession("id", time.Now())
	s.Append(Message{Role: "user", Type: TypeChat, Content: "hi"})
	s.Append(Message{Role: "assistant", Type: TypeChat, Content: "hello"})
	s.Append(Message{Role: "user", Type: TypeImage, Content: "a fox"})
	s.Append(Message{Role: "assistant", Type: TypeImage, URL: "https://img"})
	s.Append(Message{Role: "assistant", Type: TypeVideo, Content: "video.mp4"})

	want := Stats{TotalMessages: 5, ChatMessages: 2, ImageGenerations: 1, VideoGenerations: 1}
	if s.Stats != want {
		t.Errorf("Stats = %+v, want %+v", s.Stats, want)
	}
	if got := len(s.ChatHistory()); got != 2 {
		t.Errorf("ChatHistory len = %d", got)
	}
}

func TestClearKeepsID(t *testing.T) {
	s := newSession("id", time.Now())
	s.Credentials = auth.Credentials{OpenAIKey: "sk-abc"}
	s.Mode = ModeVideo
	s.Append(Message{Role: "user", Type: TypeChat, Content: "hi"})

	s.Lock()
	s.Clear()
	s.Unlock()

	if s.ID != "id" || s.Credentials.HasOpenAI() || s.Mode != ModeChat || len(s.Messages) != 0 || s.Stats.TotalMessages != 0 {
		t.Errorf("Clear left %+v", s)
	}
}

func TestParseMode(t *testing.T) {
	if m, ok := ParseMode("enhance"); !ok || m != ModeEnhance {
		t.Errorf("ParseMode(enhance) = %q, %v", m, ok)
	}
	if _, ok := ParseMode("audio"); ok {
		t.Error("ParseMode accepted audio")
	}
}
