package gateway

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fpang/prompt-studio/internal/apperr"
	"github.com/fpang/prompt-studio/internal/metrics"
	"github.com/fpang/prompt-studio/internal/textutil"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// videoBackend is the slice of the genai client used for Veo.
type videoBackend interface {
	GenerateVideos(ctx context.Context, model, prompt string, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
	Download(ctx context.Context, video *genai.GeneratedVideo) ([]byte, error)
}

type genaiBackend struct {
	client *genai.Client
}

// NewGeminiClient creates a genai client for the Gemini API backend.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func newGenaiBackend(ctx context.Context, apiKey string) (videoBackend, error) {
	client, err := NewGeminiClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return &genaiBackend{client: client}, nil
}

func (b *genaiBackend) GenerateVideos(ctx context.Context, model, prompt string, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return b.client.Models.GenerateVideos(ctx, model, prompt, nil, config)
}

func (b *genaiBackend) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return b.client.Operations.GetVideosOperation(ctx, op, nil)
}

func (b *genaiBackend) Download(ctx context.Context, video *genai.GeneratedVideo) ([]byte, error) {
	return b.client.Files.Download(ctx, genai.NewDownloadURIFromGeneratedVideo(video), nil)
}

// VideoRequest describes one video generation.
type VideoRequest struct {
	Prompt          string
	DurationSeconds int
	// Resolution is logged only; Veo does not take it as a parameter.
	Resolution int
}

// VideoResult is a saved video file.
type VideoResult struct {
	Path            string `json:"path"`
	Filename        string `json:"filename"`
	DurationSeconds int    `json:"duration_seconds"`
	Polls           int    `json:"polls"`
}

// VideoProgress is reported after every poll.
type VideoProgress struct {
	Poll     int
	MaxPolls int
	Done     bool
}

// VideoService drives Veo generation: submit, poll at a fixed interval up to
// a ceiling, then download the first video that saves.
type VideoService struct {
	modelName    string
	outputDir    string
	pollInterval time.Duration
	maxPolls     int
	newBackend   func(ctx context.Context, apiKey string) (videoBackend, error)
	now          func() time.Time
}

// NewVideoService returns a VideoService configured from cfg.
func NewVideoService(cfg Config) *VideoService {
	cfg = cfg.withDefaults()
	return &VideoService{
		modelName:    cfg.VideoModel,
		outputDir:    cfg.OutputDir,
		pollInterval: cfg.PollInterval,
		maxPolls:     cfg.MaxPolls,
		newBackend:   newGenaiBackend,
		now:          time.Now,
	}
}

// OutputDir is where generated videos are written.
func (s *VideoService) OutputDir() string { return s.outputDir }

// Validate checks the duration and resolution whitelists.
func (r VideoRequest) Validate() error {
	if !contains(VideoDurations, r.DurationSeconds) {
		return apperr.Validation("video", fmt.Sprintf("unsupported duration %ds", r.DurationSeconds))
	}
	if r.Resolution != 0 && !contains(VideoResolutions, r.Resolution) {
		return apperr.Validation("video", fmt.Sprintf("unsupported resolution %d", r.Resolution))
	}
	return nil
}

// Generate blocks until the video is saved, the polling ceiling is reached
// (TimeoutError), the provider fails (UpstreamError) or ctx is cancelled.
// onProgress, when set, is called after every poll.
func (s *VideoService) Generate(ctx context.Context, apiKey string, req VideoRequest, onProgress func(VideoProgress)) (VideoResult, error) {
	if err := requireKey("video", apiKey, "Google"); err != nil {
		return VideoResult{}, err
	}
	prompt, err := textutil.ValidatePrompt("video", req.Prompt)
	if err != nil {
		return VideoResult{}, err
	}
	if err := req.Validate(); err != nil {
		return VideoResult{}, err
	}

	metrics.VideoJobsActive.Inc()
	defer metrics.VideoJobsActive.Dec()

	timer := metrics.StartCall("video")
	result, err := s.generate(ctx, apiKey, prompt, req, onProgress)
	elapsed := timer.Done(err)
	if err != nil {
		log.Error().
			Err(err).
			Int("duration_seconds", req.DurationSeconds).
			Int("resolution", req.Resolution).
			Int("prompt_length", len(prompt)).
			Dur("elapsed", elapsed).
			Msg("Video generation failed")
		return VideoResult{}, err
	}

	log.Info().
		Str("filename", result.Filename).
		Int("duration_seconds", result.DurationSeconds).
		Int("polls", result.Polls).
		Dur("elapsed", elapsed).
		Msg("Video saved")
	return result, nil
}

func (s *VideoService) generate(ctx context.Context, apiKey, prompt string, req VideoRequest, onProgress func(VideoProgress)) (VideoResult, error) {
	backend, err := s.newBackend(ctx, apiKey)
	if err != nil {
		return VideoResult{}, classify("video", "failed to create video client", err)
	}

	log.Info().
		Str("model", s.modelName).
		Int("duration_seconds", req.DurationSeconds).
		Int("resolution", req.Resolution).
		Str("aspect_ratio", videoAspectRatio).
		Int("prompt_length", len(prompt)).
		Msg("Video generation started")

	op, err := backend.GenerateVideos(ctx, s.modelName, prompt, &genai.GenerateVideosConfig{
		DurationSeconds:  genai.Ptr(int32(req.DurationSeconds)),
		AspectRatio:      videoAspectRatio,
		PersonGeneration: videoPersonGeneration,
	})
	if err != nil {
		return VideoResult{}, classify("video", "video generation request failed", err)
	}

	op, polls, err := s.wait(ctx, backend, op, onProgress)
	if err != nil {
		return VideoResult{}, err
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return VideoResult{}, apperr.Upstream("video", "no videos were generated", nil)
	}

	for n, generated := range op.Response.GeneratedVideos {
		if generated == nil || generated.Video == nil {
			log.Warn().Int("video_index", n).Msg("Generated video has no file")
			continue
		}
		path, saveErr := s.save(ctx, backend, generated, n)
		if saveErr != nil {
			log.Error().Err(saveErr).Int("video_index", n).Msg("Failed to save generated video")
			continue
		}
		return VideoResult{
			Path:            path,
			Filename:        filepath.Base(path),
			DurationSeconds: req.DurationSeconds,
			Polls:           polls,
		}, nil
	}
	return VideoResult{}, apperr.Upstream("video", "failed to save any generated videos", nil)
}

// wait polls op until it is done. The ceiling counts polls, not wall time.
func (s *VideoService) wait(ctx context.Context, backend videoBackend, op *genai.GenerateVideosOperation, onProgress func(VideoProgress)) (*genai.GenerateVideosOperation, int, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	polls := 0
	for !op.Done {
		if polls >= s.maxPolls {
			log.Error().
				Int("max_polls", s.maxPolls).
				Dur("poll_interval", s.pollInterval).
				Msg("Video generation timed out")
			return nil, polls, apperr.Timeout("video",
				fmt.Sprintf("video generation timed out after %v", time.Duration(s.maxPolls)*s.pollInterval))
		}

		select {
		case <-ctx.Done():
			return nil, polls, ctx.Err()
		case <-ticker.C:
		}

		next, err := backend.GetVideosOperation(ctx, op)
		polls++
		if err != nil {
			return nil, polls, classify("video", "failed to check generation status", err)
		}
		op = next

		log.Debug().
			Int("poll_count", polls).
			Bool("operation_done", op.Done).
			Str("operation_name", op.Name).
			Msg("Video generation polling")
		if onProgress != nil {
			onProgress(VideoProgress{Poll: polls, MaxPolls: s.maxPolls, Done: op.Done})
		}

		if len(op.Error) > 0 {
			return nil, polls, apperr.Upstream("video", "video generation failed", fmt.Errorf("%v", op.Error))
		}
	}
	if len(op.Error) > 0 {
		return nil, polls, apperr.Upstream("video", "video generation failed", fmt.Errorf("%v", op.Error))
	}
	return op, polls, nil
}

func (s *VideoService) save(ctx context.Context, backend videoBackend, generated *genai.GeneratedVideo, n int) (string, error) {
	data := generated.Video.VideoBytes
	if len(data) == 0 {
		var err error
		data, err = backend.Download(ctx, generated)
		if err != nil {
			return "", fmt.Errorf("download video %d: %w", n, err)
		}
	}
	if len(data) == 0 {
		return "", errors.New("downloaded video is empty")
	}

	f, path, err := s.create(n)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// maxNameAttempts bounds the suffixes tried when video_<unix>_<n>.mp4 is taken.
const maxNameAttempts = 100

// create opens a fresh output file. Jobs finishing in the same second get
// video_<unix>_<n>_<k>.mp4 instead of overwriting each other.
func (s *VideoService) create(n int) (*os.File, string, error) {
	base := fmt.Sprintf("video_%d_%d", s.now().Unix(), n)
	for k := 0; k < maxNameAttempts; k++ {
		name := base + ".mp4"
		if k > 0 {
			name = fmt.Sprintf("%s_%d.mp4", base, k)
		}
		path := filepath.Join(s.outputDir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create %s: %w", path, err)
		}
	}
	return nil, "", fmt.Errorf("no free output name for %s.mp4", base)
}
