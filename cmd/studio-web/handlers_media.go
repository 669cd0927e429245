package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/fpang/prompt-studio/internal/apperr"
	"github.com/fpang/prompt-studio/internal/gateway"
	"github.com/fpang/prompt-studio/internal/jobs"
	"github.com/fpang/prompt-studio/internal/logging"
	"github.com/fpang/prompt-studio/internal/session"
	"github.com/fpang/prompt-studio/internal/textutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// POST /api/image
func (s *server) handleImage(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Prompt  string `json:"prompt"`
		Size    string `json:"size"`
		Quality string `json:"quality"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	imgReq := gateway.ImageRequest{Prompt: req.Prompt, Size: req.Size, Quality: req.Quality}
	if imgReq.Size == "" {
		imgReq.Size = gateway.ImageSizes[0]
	}
	if imgReq.Quality == "" {
		imgReq.Quality = gateway.ImageQualities[0]
	}

	prompt, err := textutil.ValidatePrompt("image", imgReq.Prompt)
	if err != nil {
		writeError(w, err)
		return
	}
	imgReq.Prompt = prompt
	if !sess.Credentials.HasOpenAI() {
		writeError(w, apperr.Auth("image", "an OpenAI API key is required", nil))
		return
	}

	result, err := s.images.Generate(r.Context(), sess.Credentials.OpenAIKey, imgReq)
	if err != nil {
		logging.ActivityError(sess.ID, "image_generation_failed", err).
			Dict("details", zerolog.Dict().
				Str("size", imgReq.Size).
				Str("quality", imgReq.Quality).
				Int("prompt_length", len(prompt))).
			Msg("Image generation failed")
		writeError(w, err)
		return
	}

	sess.Append(session.Message{Role: "user", Type: session.TypeImage, Content: prompt, Timestamp: s.now()})
	sess.Append(session.Message{
		Role:      "assistant",
		Type:      session.TypeImage,
		Content:   "Generated image",
		URL:       result.URL,
		Prompt:    prompt,
		Timestamp: s.now(),
	})
	total, lerr := s.ledger.IncrementImages()
	if lerr != nil {
		log.Warn().Err(lerr).Msg("Image count not persisted")
	}

	logging.Activity(sess.ID, "image_generated").
		Dict("details", zerolog.Dict().
			Str("size", imgReq.Size).
			Str("quality", imgReq.Quality).
			Int("prompt_length", len(prompt)).
			Int("total_images", total)).
		Msg("Image generated")

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"url":            result.URL,
		"revised_prompt": result.RevisedPrompt,
		"prompt":         prompt,
		"total_images":   total,
	})
}

// GET /api/image/download?url=...
// Only URLs this session generated are proxied.
func (s *server) handleImageDownload(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	url := r.URL.Query().Get("url")
	var prompt string
	found := false
	for _, m := range sess.Messages {
		if m.Type == session.TypeImage && m.URL != "" && m.URL == url {
			prompt, found = m.Prompt, true
			break
		}
	}
	if !found {
		httpError(w, http.StatusNotFound, "image not found")
		return
	}

	data, contentType, err := s.images.Download(r.Context(), url)
	if err != nil {
		writeError(w, err)
		return
	}
	filename := "image_" + textutil.SanitizeFilename(prompt) + ".png"
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// POST /api/video/start
func (s *server) handleVideoStart(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Prompt          string `json:"prompt"`
		DurationSeconds int    `json:"duration_seconds"`
		Resolution      int    `json:"resolution"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	prompt, err := textutil.ValidatePrompt("video", req.Prompt)
	if err != nil {
		writeError(w, err)
		return
	}
	videoReq := gateway.VideoRequest{Prompt: prompt, DurationSeconds: req.DurationSeconds, Resolution: req.Resolution}
	if videoReq.DurationSeconds == 0 {
		videoReq.DurationSeconds = gateway.VideoDurations[0]
	}
	if err := videoReq.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if !sess.Credentials.HasGoogle() {
		writeError(w, apperr.Auth("video", "a Google API key is required for video generation", nil))
		return
	}

	apiKey := sess.Credentials.GoogleKey
	sess.Append(session.Message{Role: "user", Type: session.TypeVideo, Content: prompt, Timestamp: s.now()})

	job := s.jobs.Start(sess.ID, prompt,
		func(ctx context.Context, onProgress func(gateway.VideoProgress)) (gateway.VideoResult, error) {
			return s.videos.Generate(ctx, apiKey, videoReq, onProgress)
		},
		func(res gateway.VideoResult) { s.videoCompleted(sess, prompt, res) },
	)

	logging.Activity(sess.ID, "video_generation_started").
		Dict("details", zerolog.Dict().
			Str("job", job.ID()).
			Int("duration_seconds", videoReq.DurationSeconds).
			Int("resolution", videoReq.Resolution).
			Int("prompt_length", len(prompt))).
		Msg("Video generation started")

	respondJSON(w, http.StatusAccepted, map[string]string{"id": job.ID()})
}

// videoCompleted runs on the job goroutine after the file is saved.
func (s *server) videoCompleted(sess *session.Session, prompt string, res gateway.VideoResult) {
	total, err := s.ledger.IncrementVideos(res.DurationSeconds)
	if err != nil {
		log.Warn().Err(err).Msg("Video count not persisted")
	}

	sess.Lock()
	defer sess.Unlock()
	sess.Append(session.Message{
		Role:      "assistant",
		Type:      session.TypeVideo,
		Content:   res.Filename,
		Prompt:    prompt,
		Timestamp: s.now(),
	})
	logging.Activity(sess.ID, "video_generated").
		Dict("details", zerolog.Dict().
			Str("filename", res.Filename).
			Int("duration_seconds", res.DurationSeconds).
			Int("polls", res.Polls).
			Int("total_videos", total)).
		Msg("Video generated")
}

// Routes under /api/video/{id}/...
func (s *server) handleVideoRoutes(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	jobID, action, ok := jobs.ParseRoute(r.URL.Path, "/api/video/", jobs.VideoPrefix)
	if !ok {
		httpError(w, http.StatusNotFound, "not found")
		return
	}
	job, ok := s.jobs.Get(jobID)
	if !ok || !job.OwnedBy(sess.ID) {
		httpError(w, http.StatusNotFound, "job not found")
		return
	}

	switch action {
	case "status":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		respondJSON(w, http.StatusOK, job.Snapshot())
	case "cancel":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		job.Cancel()
		logging.Activity(sess.ID, "video_generation_cancelled").Str("job", job.ID()).Msg("Video generation cancel requested")
		respondJSON(w, http.StatusOK, job.Snapshot())
	case "file":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		res, done := job.Result()
		if !done {
			httpError(w, http.StatusConflict, "video is not ready")
			return
		}
		filename := "video_" + textutil.SanitizeFilename(job.Snapshot().Prompt) + ".mp4"
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		http.ServeFile(w, r, res.Path)
	default:
		httpError(w, http.StatusNotFound, "not found")
	}
}
