// Package jobs runs long video generations in the background so the browser
// can poll a status route instead of holding a request open for minutes.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fpang/prompt-studio/internal/apperr"
	"github.com/fpang/prompt-studio/internal/gateway"
	"github.com/rs/zerolog/log"
)

// Status is a job's lifecycle position.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
	StatusCancelled  Status = "cancelled"
)

// Done reports whether the job has stopped.
func (s Status) Done() bool {
	return s == StatusComplete || s == StatusError || s == StatusCancelled
}

// Runner performs the generation, reporting poll progress as it goes.
type Runner func(ctx context.Context, onProgress func(gateway.VideoProgress)) (gateway.VideoResult, error)

// VideoJob is one background generation owned by a browser session.
type VideoJob struct {
	mu        sync.Mutex
	id        string
	sessionID string
	prompt    string
	status    Status
	progress  gateway.VideoProgress
	result    gateway.VideoResult
	errMsg    string
	errType   string
	createdAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// Snapshot is the JSON view of a job.
type Snapshot struct {
	ID              string `json:"id"`
	Status          Status `json:"status"`
	Prompt          string `json:"prompt"`
	Poll            int    `json:"poll"`
	MaxPolls        int    `json:"max_polls"`
	Filename        string `json:"filename,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Error           string `json:"error,omitempty"`
	ErrorType       string `json:"error_type,omitempty"`
}

// ID returns the job id.
func (j *VideoJob) ID() string { return j.id }

// OwnedBy reports whether sessionID started the job.
func (j *VideoJob) OwnedBy(sessionID string) bool {
	return sessionID != "" && sessionID == j.sessionID
}

// Snapshot copies the job state.
func (j *VideoJob) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		ID:              j.id,
		Status:          j.status,
		Prompt:          j.prompt,
		Poll:            j.progress.Poll,
		MaxPolls:        j.progress.MaxPolls,
		Filename:        j.result.Filename,
		DurationSeconds: j.result.DurationSeconds,
		Error:           j.errMsg,
		ErrorType:       j.errType,
	}
}

// Result returns the finished video, if any.
func (j *VideoJob) Result() (gateway.VideoResult, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.status == StatusComplete
}

// Cancel stops a running job. It is a no-op once the job has finished.
func (j *VideoJob) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.status.Done() && j.cancel != nil {
		j.cancel()
	}
}

// Wait blocks until the job stops or ctx ends.
func (j *VideoJob) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *VideoJob) setProgress(p gateway.VideoProgress) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusProcessing
	j.progress = p
}

// fail records err on the job and logs it.
func (j *VideoJob) fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if errors.Is(err, context.Canceled) {
		j.status = StatusCancelled
		j.errMsg = "video generation cancelled"
		log.Info().Str("job", j.id).Str("session_id", j.sessionID).Msg("Job cancelled")
		return
	}
	j.status = StatusError
	j.errMsg = apperr.Message(err)
	if t, ok := apperr.TypeOf(err); ok {
		j.errType = t.String()
	}
	log.Error().
		Str("job", j.id).
		Str("session_id", j.sessionID).
		Str("error", j.errMsg).
		Msg("Job failed")
}

// Manager tracks video jobs in memory.
type Manager struct {
	mu   sync.Mutex
	jobs map[string]*VideoJob
	base context.Context
}

// NewManager returns a manager whose jobs are children of ctx; cancelling
// ctx stops every job.
func NewManager(ctx context.Context) *Manager {
	return &Manager{jobs: make(map[string]*VideoJob), base: ctx}
}

// Start launches run in the background. onComplete runs after a successful
// generation and before the job is marked complete.
func (m *Manager) Start(sessionID, prompt string, run Runner, onComplete func(gateway.VideoResult)) *VideoJob {
	ctx, cancel := context.WithCancel(m.base)
	j := &VideoJob{
		id:        GenerateID(VideoPrefix),
		sessionID: sessionID,
		prompt:    prompt,
		status:    StatusPending,
		createdAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	m.mu.Lock()
	m.jobs[j.id] = j
	m.mu.Unlock()

	log.Info().Str("job", j.id).Str("session_id", sessionID).Msg("Video job started")

	go func() {
		defer close(j.done)
		defer cancel()

		res, err := run(ctx, j.setProgress)
		if err != nil {
			j.fail(err)
			return
		}
		if onComplete != nil {
			onComplete(res)
		}

		j.mu.Lock()
		j.status = StatusComplete
		j.result = res
		j.progress.Done = true
		j.mu.Unlock()
		log.Info().Str("job", j.id).Str("filename", res.Filename).Msg("Video job complete")
	}()
	return j
}

// Get returns the job with id.
func (m *Manager) Get(id string) (*VideoJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	return j, ok
}

// Prune forgets finished jobs older than maxAge and returns how many went.
func (m *Manager) Prune(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, j := range m.jobs {
		j.mu.Lock()
		stale := j.status.Done() && j.createdAt.Before(cutoff)
		j.mu.Unlock()
		if stale {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}
