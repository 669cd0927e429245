// Package ledger keeps process-wide usage counters in a single JSON file.
//
// Every increment is a read-modify-write-persist cycle under one mutex, so
// concurrent sessions never lose updates. Persistence is best effort: a failed
// write is logged and reported, the in-memory counters stay authoritative.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fpang/prompt-studio/internal/apperr"
	"github.com/fpang/prompt-studio/internal/metrics"
	"github.com/rs/zerolog/log"
)

// DurationEvent records one generated video.
type DurationEvent struct {
	DurationSeconds int    `json:"duration_seconds"`
	GeneratedAt     string `json:"generated_at"`
}

// record is the on-disk shape. Field names match the counter file written
// by earlier versions so existing files keep loading.
type record struct {
	VideosGenerated           int             `json:"videos_generated"`
	ImagesGenerated           int             `json:"images_generated"`
	ChatMessages              int             `json:"chat_messages"`
	EnhancedPrompts           int             `json:"enhanced_prompts"`
	FirstUsed                 string          `json:"first_used"`
	LastUpdated               string          `json:"last_updated"`
	VideoDurations            []DurationEvent `json:"video_durations"`
	Videos5s                  int             `json:"videos_5s"`
	Videos6s                  int             `json:"videos_6s"`
	Videos7s                  int             `json:"videos_7s"`
	Videos8s                  int             `json:"videos_8s"`
	TotalVideoDurationSeconds int             `json:"total_video_duration_seconds"`
}

// Ledger is the usage counter store. Construct one per process with Open and
// share the pointer.
type Ledger struct {
	mu   sync.Mutex
	path string
	rec  record
	now  func() time.Time
}

// Open loads the counter file at path. A missing or corrupt file yields
// zeroed counters; Open never fails.
func Open(path string) *Ledger {
	l := &Ledger{path: path, now: time.Now}
	l.rec = l.load()
	return l
}

func (l *Ledger) timestamp() string {
	return l.now().Format(time.RFC3339Nano)
}

func (l *Ledger) defaults() record {
	ts := l.timestamp()
	return record{FirstUsed: ts, LastUpdated: ts, VideoDurations: []DurationEvent{}}
}

func (l *Ledger) load() record {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", l.path).Msg("Failed to read usage ledger, starting from zero")
		}
		return l.defaults()
	}

	rec := l.defaults()
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Warn().Err(err).Str("path", l.path).Msg("Usage ledger is corrupt, starting from zero")
		return l.defaults()
	}
	if rec.VideoDurations == nil {
		rec.VideoDurations = []DurationEvent{}
	}
	if rec.FirstUsed == "" {
		rec.FirstUsed = l.timestamp()
	}
	log.Debug().
		Str("path", l.path).
		Int("videos", rec.VideosGenerated).
		Int("images", rec.ImagesGenerated).
		Int("chats", rec.ChatMessages).
		Int("enhancedPrompts", rec.EnhancedPrompts).
		Msg("Usage ledger loaded")
	return rec
}

// save writes the record atomically through a temp file. Caller holds mu.
func (l *Ledger) save() error {
	l.rec.LastUpdated = l.timestamp()

	data, err := json.MarshalIndent(l.rec, "", "  ")
	if err != nil {
		return l.persistFailed(fmt.Errorf("failed to marshal usage ledger: %w", err))
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return l.persistFailed(fmt.Errorf("failed to create temp file: %w", err))
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return l.persistFailed(fmt.Errorf("failed to write usage ledger: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return l.persistFailed(fmt.Errorf("failed to close usage ledger: %w", err))
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return l.persistFailed(fmt.Errorf("failed to replace usage ledger: %w", err))
	}
	return nil
}

func (l *Ledger) persistFailed(err error) error {
	metrics.LedgerWriteFailuresTotal.Inc()
	log.Error().Err(err).Str("path", l.path).Msg("Usage ledger write failed")
	return apperr.Persistence("ledger.save", err)
}

// IncrementChats counts one completed chat reply and returns the new total.
// A non-nil error is always a persistence failure; the returned count is
// still correct in memory.
func (l *Ledger) IncrementChats() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rec.ChatMessages++
	return l.rec.ChatMessages, l.save()
}

// IncrementImages counts one generated image.
func (l *Ledger) IncrementImages() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rec.ImagesGenerated++
	return l.rec.ImagesGenerated, l.save()
}

// IncrementEnhancedPrompts counts one started enhancement session.
func (l *Ledger) IncrementEnhancedPrompts() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rec.EnhancedPrompts++
	return l.rec.EnhancedPrompts, l.save()
}

// IncrementVideos counts one saved video of the given duration and appends
// a duration event.
func (l *Ledger) IncrementVideos(durationSeconds int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rec.VideosGenerated++
	l.rec.VideoDurations = append(l.rec.VideoDurations, DurationEvent{
		DurationSeconds: durationSeconds,
		GeneratedAt:     l.timestamp(),
	})
	l.rec.TotalVideoDurationSeconds += durationSeconds
	if c := l.rec.bucket(durationSeconds); c != nil {
		*c++
	}
	return l.rec.VideosGenerated, l.save()
}

func (r *record) bucket(durationSeconds int) *int {
	switch durationSeconds {
	case 5:
		return &r.Videos5s
	case 6:
		return &r.Videos6s
	case 7:
		return &r.Videos7s
	case 8:
		return &r.Videos8s
	default:
		return nil
	}
}
