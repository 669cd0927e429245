package main

import (
	"net/http"

	"github.com/fpang/prompt-studio/internal/apperr"
	"github.com/fpang/prompt-studio/internal/gateway"
	"github.com/fpang/prompt-studio/internal/logging"
	"github.com/fpang/prompt-studio/internal/session"
	"github.com/fpang/prompt-studio/internal/textutil"
	"github.com/gin-contrib/sse"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// POST /api/chat streams the reply as server-sent events:
// "chunk" per delta, then "done" with the full reply, or "error".
func (s *server) handleChat(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Message     string   `json:"message"`
		Model       string   `json:"model"`
		Temperature *float32 `json:"temperature"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	message, err := textutil.ValidatePrompt("chat", req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	if !sess.Credentials.HasOpenAI() {
		writeError(w, apperr.Auth("chat", "an OpenAI API key is required", nil))
		return
	}

	chatReq := gateway.ChatRequest{
		Model:       req.Model,
		Temperature: s.cfg.Chat.DefaultTemperature,
	}
	if chatReq.Model == "" {
		chatReq.Model = s.cfg.Chat.DefaultModel
	}
	if req.Temperature != nil {
		chatReq.Temperature = *req.Temperature
	}
	for _, m := range sess.ChatHistory() {
		chatReq.Messages = append(chatReq.Messages, gateway.ChatMessage{Role: m.Role, Content: m.Content})
	}
	chatReq.Messages = append(chatReq.Messages, gateway.ChatMessage{Role: gateway.RoleUser, Content: message})
	if err := chatReq.Validate(); err != nil {
		writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sess.Append(session.Message{Role: gateway.RoleUser, Type: session.TypeChat, Content: message, Timestamp: s.now()})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	reply, err := s.chat.Stream(r.Context(), sess.Credentials.OpenAIKey, chatReq, func(chunk string) error {
		return writeEvent(w, flusher, "chunk", map[string]string{"content": chunk})
	})
	if err != nil {
		logging.ActivityError(sess.ID, "chat_failed", err).
			Dict("details", zerolog.Dict().
				Str("model", chatReq.Model).
				Int("message_length", len(message))).
			Msg("Chat completion failed")
		writeEvent(w, flusher, "error", map[string]string{"error": apperr.Message(err)})
		return
	}

	sess.Append(session.Message{Role: gateway.RoleAssistant, Type: session.TypeChat, Content: reply, Timestamp: s.now()})
	total, lerr := s.ledger.IncrementChats()
	if lerr != nil {
		log.Warn().Err(lerr).Msg("Chat count not persisted")
	}

	logging.Activity(sess.ID, "chat_completed").
		Dict("details", zerolog.Dict().
			Str("model", chatReq.Model).
			Float32("temperature", chatReq.Temperature).
			Int("message_length", len(message)).
			Int("response_length", len(reply)).
			Int("total_chats", total)).
		Msg("Chat completed")
	writeEvent(w, flusher, "done", map[string]interface{}{"content": reply, "total_chats": total})
}

// writeEvent encodes one SSE frame; maps and structs go out as JSON data.
func writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload interface{}) error {
	if err := sse.Encode(w, sse.Event{Event: event, Data: payload}); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
