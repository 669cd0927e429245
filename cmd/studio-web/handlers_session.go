package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fpang/prompt-studio/internal/auth"
	"github.com/fpang/prompt-studio/internal/gateway"
	"github.com/fpang/prompt-studio/internal/logging"
	"github.com/fpang/prompt-studio/internal/session"
	"github.com/fpang/prompt-studio/internal/textutil"
	"github.com/rs/zerolog"
)

// POST /api/credentials validates and stores keys; DELETE logs out.
func (s *server) handleCredentials(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	switch r.Method {
	case http.MethodPost:
		s.handleLogin(w, r, sess)
	case http.MethodDelete:
		if s.forgetKey != nil && sess.Credentials.HasOpenAI() {
			s.forgetKey(sess.Credentials.OpenAIKey)
		}
		sess.Clear()
		logging.Activity(sess.ID, "logout").Msg("Credentials cleared")
		respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req struct {
		OpenAIKey string `json:"openai_key"`
		GoogleKey string `json:"google_key"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	openaiKey := strings.TrimSpace(req.OpenAIKey)
	googleKey := strings.TrimSpace(req.GoogleKey)

	if err := s.validateKey(r.Context(), openaiKey); err != nil {
		var valErr *auth.ValidationError
		errType := auth.ErrTypeUnknown
		if errors.As(err, &valErr) {
			errType = valErr.Type
		}
		logging.ActivityError(sess.ID, "api_key_validation_failed", err).
			Dict("details", zerolog.Dict().
				Str("key_prefix", textutil.KeyPrefix(openaiKey)).
				Str("error_type", errType.String())).
			Msg("API key validation failed")

		status := http.StatusUnauthorized
		if errType == auth.ErrTypeNoKey {
			status = http.StatusBadRequest
		}
		respondJSON(w, status, map[string]string{
			"error":      err.Error(),
			"error_type": errType.String(),
		})
		return
	}

	if old := sess.Credentials.OpenAIKey; old != "" && old != openaiKey && s.forgetKey != nil {
		s.forgetKey(old)
	}
	sess.Credentials = auth.Credentials{OpenAIKey: openaiKey, GoogleKey: googleKey}
	logging.Activity(sess.ID, "api_key_validated").
		Dict("details", zerolog.Dict().
			Str("key_prefix", textutil.KeyPrefix(openaiKey)).
			Bool("video_enabled", sess.Credentials.HasGoogle())).
		Msg("Credentials accepted")

	respondJSON(w, http.StatusOK, credentialFlags(sess))
}

// releaseSession drops provider clients cached for a session the store expired.
func (s *server) releaseSession(sess *session.Session) {
	sess.Lock()
	key := sess.Credentials.OpenAIKey
	sess.Unlock()
	if key != "" && s.forgetKey != nil {
		s.forgetKey(key)
	}
}

func credentialFlags(sess *session.Session) map[string]bool {
	return map[string]bool{
		"has_openai_key": sess.Credentials.HasOpenAI(),
		"has_google_key": sess.Credentials.HasGoogle(),
	}
}

// GET /api/session
func (s *server) handleSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	messages := sess.Messages
	if messages == nil {
		messages = []session.Message{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":      sess.ID,
		"mode":            sess.Mode,
		"has_openai_key":  sess.Credentials.HasOpenAI(),
		"has_google_key":  sess.Credentials.HasGoogle(),
		"messages":        messages,
		"stats":           sess.Stats,
		"enhance_state":   sess.Enhance.State(),
		"chat_models":     gateway.ChatModels,
		"default_model":   s.cfg.Chat.DefaultModel,
		"default_temp":    s.cfg.Chat.DefaultTemperature,
		"image_sizes":     gateway.ImageSizes,
		"image_qualities": gateway.ImageQualities,
		"video_durations": gateway.VideoDurations,
	})
}

// POST /api/mode
func (s *server) handleMode(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Mode string `json:"mode"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	mode, ok := session.ParseMode(req.Mode)
	if !ok {
		httpError(w, http.StatusBadRequest, "unknown mode "+req.Mode)
		return
	}
	if mode == session.ModeVideo && !sess.Credentials.HasGoogle() {
		httpError(w, http.StatusUnauthorized, "a Google API key is required for video generation")
		return
	}
	sess.Mode = mode
	logging.Activity(sess.ID, "mode_changed").Str("mode", string(mode)).Msg("Mode changed")
	respondJSON(w, http.StatusOK, map[string]session.Mode{"mode": mode})
}

// GET /api/stats
func (s *server) handleStats(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"usage":           s.ledger.Statistics(),
		"session":         sess.Stats,
		"active_sessions": s.sessions.Len(),
	})
}
