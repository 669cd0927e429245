package ledger

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Stats is a snapshot of the ledger plus derived values.
type Stats struct {
	TotalVideos                 int         `json:"total_videos"`
	TotalImages                 int         `json:"total_images"`
	TotalChats                  int         `json:"total_chats"`
	TotalEnhancedPrompts        int         `json:"total_enhanced_prompts"`
	TotalVideoDurationSeconds   int         `json:"total_video_duration_seconds"`
	Videos5s                    int         `json:"videos_5s"`
	Videos6s                    int         `json:"videos_6s"`
	Videos7s                    int         `json:"videos_7s"`
	Videos8s                    int         `json:"videos_8s"`
	AverageVideoDurationSeconds float64     `json:"average_video_duration_seconds"`
	VideoCountByDuration        map[int]int `json:"video_count_by_duration"`
	FormattedTotalDuration      string      `json:"formatted_total_duration"`
	FirstUsed                   string      `json:"first_used"`
	LastUpdated                 string      `json:"last_updated"`
}

// Statistics returns all counters and derived values. The stored duration
// total is reconciled against the event log first; a mismatch is corrected
// and re-persisted without surfacing an error.
func (l *Ledger) Statistics() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	byDuration := make(map[int]int)
	for _, ev := range l.rec.VideoDurations {
		total += ev.DurationSeconds
		byDuration[ev.DurationSeconds]++
	}
	if total != l.rec.TotalVideoDurationSeconds {
		log.Warn().
			Int("stored", l.rec.TotalVideoDurationSeconds).
			Int("calculated", total).
			Msg("Usage ledger duration total out of sync, correcting")
		l.rec.TotalVideoDurationSeconds = total
		_ = l.save()
	}

	avg := 0.0
	if n := len(l.rec.VideoDurations); n > 0 {
		avg = float64(total) / float64(n)
	}

	return Stats{
		TotalVideos:                 l.rec.VideosGenerated,
		TotalImages:                 l.rec.ImagesGenerated,
		TotalChats:                  l.rec.ChatMessages,
		TotalEnhancedPrompts:        l.rec.EnhancedPrompts,
		TotalVideoDurationSeconds:   total,
		Videos5s:                    l.rec.Videos5s,
		Videos6s:                    l.rec.Videos6s,
		Videos7s:                    l.rec.Videos7s,
		Videos8s:                    l.rec.Videos8s,
		AverageVideoDurationSeconds: avg,
		VideoCountByDuration:        byDuration,
		FormattedTotalDuration:      FormatDuration(total),
		FirstUsed:                   l.rec.FirstUsed,
		LastUpdated:                 l.rec.LastUpdated,
	}
}

// FormatDuration renders seconds as "Xm Ys" from one minute up, else "Xs".
func FormatDuration(totalSeconds int) string {
	if totalSeconds >= 60 {
		return fmt.Sprintf("%dm %ds", totalSeconds/60, totalSeconds%60)
	}
	return fmt.Sprintf("%ds", totalSeconds)
}
