package main

import (
	"encoding/json"
	"net/http"

	"github.com/fpang/prompt-studio/internal/apperr"
	"github.com/fpang/prompt-studio/internal/enhance"
	"github.com/fpang/prompt-studio/internal/logging"
	"github.com/fpang/prompt-studio/internal/session"
	"github.com/fpang/prompt-studio/internal/stages"
	"github.com/rs/zerolog"
)

type enhanceResponse struct {
	enhance.View
	History    []enhance.HistoryEntry `json:"history"`
	Suggestion string                 `json:"suggestion,omitempty"`
}

func (s *server) enhanceView(sess *session.Session) enhanceResponse {
	return enhanceResponse{View: s.engine.View(sess.Enhance), History: sess.Enhance.History()}
}

// respondEnhance answers with the view, or the error plus the view so the
// browser can re-render from the state the failure left behind.
func (s *server) respondEnhance(w http.ResponseWriter, sess *session.Session, err error, suggestion string) {
	resp := s.enhanceView(sess)
	resp.Suggestion = suggestion
	if err == nil {
		respondJSON(w, http.StatusOK, resp)
		return
	}
	body := map[string]interface{}{
		"error": apperr.Message(err),
		"view":  resp,
	}
	if t, ok := apperr.TypeOf(err); ok {
		body["error_type"] = t.String()
	}
	respondJSON(w, apperr.HTTPStatus(err), body)
}

// GET /api/enhance
func (s *server) handleEnhanceView(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	respondJSON(w, http.StatusOK, s.enhanceView(sess))
}

// GET /api/enhance/stages
func (s *server) handleEnhanceStages(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"stages": s.engine.Catalog().Stages()})
}

// GET /api/enhance/templates
func (s *server) handleEnhanceTemplates(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"templates": s.engine.Catalog().Templates()})
}

// POST /api/enhance/start
func (s *server) handleEnhanceStart(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		InitialIdea string `json:"initial_idea"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.engine.Start(sess.Enhance, req.InitialIdea); err != nil {
		writeError(w, err)
		return
	}
	sess.Mode = session.ModeEnhance
	s.respondEnhance(w, sess, nil, "")
}

// POST /api/enhance/template
func (s *server) handleEnhanceTemplate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		TemplateID string `json:"template_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	_, tmpl, err := s.engine.StartFromTemplate(sess.Enhance, req.TemplateID)
	if err != nil {
		writeError(w, err)
		return
	}
	sess.Mode = session.ModeEnhance
	logging.Activity(sess.ID, "template_used").
		Dict("details", zerolog.Dict().Str("template", tmpl.ID)).
		Msg("Enhancement started from template")
	s.respondEnhance(w, sess, nil, "")
}

// POST /api/enhance/submit
//
// The answer is either free text in "input", or picked suggestions plus
// "details" from the guided form.
func (s *server) handleEnhanceSubmit(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Stage             string   `json:"stage"`
		Input             string   `json:"input"`
		Selected          []string `json:"selected"`
		Details           string   `json:"details"`
		RequestSuggestion bool     `json:"request_suggestion"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Stage == "" {
		req.Stage = sess.Enhance.CurrentStage()
	}
	input := req.Input
	if input == "" {
		input = stages.ComposeGuidedInput(req.Selected, req.Details)
	}

	res, err := s.engine.SubmitStage(r.Context(), sess.Enhance, sess.Credentials.OpenAIKey, req.Stage, input, req.RequestSuggestion)
	s.respondEnhance(w, sess, err, res.Suggestion)
}

// POST /api/enhance/adopt replaces the stage answer with its last AI suggestion.
func (s *server) handleEnhanceAdopt(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Stage string `json:"stage"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Stage == "" {
		req.Stage = sess.Enhance.CurrentStage()
	}
	res, err := s.engine.AdoptSuggestion(sess.Enhance, req.Stage)
	s.respondEnhance(w, sess, err, res.Suggestion)
}

// POST /api/enhance/advance
func (s *server) handleEnhanceAdvance(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	_, err := s.engine.Advance(r.Context(), sess.Enhance, sess.Credentials.OpenAIKey)
	s.respondEnhance(w, sess, err, "")
}

// POST /api/enhance/retreat
func (s *server) handleEnhanceRetreat(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	_, err := s.engine.Retreat(sess.Enhance)
	s.respondEnhance(w, sess, err, "")
}

// POST /api/enhance/synthesize
func (s *server) handleEnhanceSynthesize(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	_, err := s.engine.Synthesize(r.Context(), sess.Enhance, sess.Credentials.OpenAIKey)
	s.respondEnhance(w, sess, err, "")
}

// GET /api/enhance/export downloads the session as JSON.
func (s *server) handleEnhanceExport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if !sess.Enhance.Active() {
		httpError(w, http.StatusNotFound, "no enhancement session to export")
		return
	}
	rec := s.engine.Export(sess.Enhance)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		writeError(w, err)
		return
	}
	logging.Activity(sess.ID, "session_exported").
		Dict("details", zerolog.Dict().
			Int("total_iterations", rec.Metadata.TotalIterations).
			Int("stages_completed", rec.Metadata.StagesCompleted)).
		Msg("Enhancement session exported")

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+enhance.ExportFilename(s.now())+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// POST /api/enhance/reset
func (s *server) handleEnhanceReset(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	s.engine.Reset(sess.Enhance)
	s.respondEnhance(w, sess, nil, "")
}

// POST /api/enhance/handoff carries the final prompt into video mode.
func (s *server) handleEnhanceHandoff(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	prompt, ok := sess.Enhance.FinalPrompt()
	if !ok {
		writeError(w, apperr.Validation("handoff", "generate the final prompt first"))
		return
	}

	sess.Append(session.Message{
		Role:      "assistant",
		Type:      session.TypeEnhancedPrompt,
		Content:   prompt,
		Prompt:    prompt,
		Stages:    sess.Enhance.Answers(),
		Timestamp: s.now(),
	})
	sess.Mode = session.ModeVideo

	logging.Activity(sess.ID, "prompt_handed_off").
		Dict("details", zerolog.Dict().
			Int("prompt_length", len(prompt)).
			Bool("video_enabled", sess.Credentials.HasGoogle())).
		Msg("Enhanced prompt sent to video generation")

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"prompt":         prompt,
		"mode":           sess.Mode,
		"has_google_key": sess.Credentials.HasGoogle(),
	})
}
