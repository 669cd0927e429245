package main

import (
	"context"
	"net/http"
	"time"

	"github.com/fpang/prompt-studio/internal/auth"
	"github.com/fpang/prompt-studio/internal/config"
	"github.com/fpang/prompt-studio/internal/enhance"
	"github.com/fpang/prompt-studio/internal/gateway"
	"github.com/fpang/prompt-studio/internal/jobs"
	"github.com/fpang/prompt-studio/internal/ledger"
	"github.com/fpang/prompt-studio/internal/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionCookie = "studio_session"

type chatStreamer interface {
	Stream(ctx context.Context, apiKey string, req gateway.ChatRequest, onChunk func(string) error) (string, error)
}

type imageGenerator interface {
	Generate(ctx context.Context, apiKey string, req gateway.ImageRequest) (gateway.ImageResult, error)
	Download(ctx context.Context, url string) ([]byte, string, error)
}

type videoGenerator interface {
	Generate(ctx context.Context, apiKey string, req gateway.VideoRequest, onProgress func(gateway.VideoProgress)) (gateway.VideoResult, error)
}

type usageLedger interface {
	IncrementChats() (int, error)
	IncrementImages() (int, error)
	IncrementVideos(durationSeconds int) (int, error)
	IncrementEnhancedPrompts() (int, error)
	Statistics() ledger.Stats
}

// server holds everything the handlers share. One instance serves the
// whole process; per-user state lives in the session store.
type server struct {
	cfg      *config.Config
	sessions *session.Store
	engine   *enhance.Engine
	ledger   usageLedger
	chat     chatStreamer
	images   imageGenerator
	videos   videoGenerator
	jobs     *jobs.Manager

	// validateKey proves an OpenAI key works before it is stored.
	validateKey func(ctx context.Context, key string) error
	// forgetKey drops cached provider clients on logout. May be nil.
	forgetKey func(key string)
	// envCredentials seeds new sessions when --use-env-keys is set.
	envCredentials *auth.Credentials

	now func() time.Time
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/credentials", s.withSession(s.handleCredentials))
	mux.HandleFunc("/api/session", s.withSession(s.handleSession))
	mux.HandleFunc("/api/mode", s.withSession(s.handleMode))
	mux.HandleFunc("/api/stats", s.withSession(s.handleStats))

	mux.HandleFunc("/api/chat", s.withSession(s.handleChat))
	mux.HandleFunc("/api/image", s.withSession(s.handleImage))
	mux.HandleFunc("/api/image/download", s.withSession(s.handleImageDownload))
	mux.HandleFunc("/api/video/start", s.withSession(s.handleVideoStart))
	mux.HandleFunc("/api/video/", s.withSession(s.handleVideoRoutes))

	mux.HandleFunc("/api/enhance", s.withSession(s.handleEnhanceView))
	mux.HandleFunc("/api/enhance/stages", s.handleEnhanceStages)
	mux.HandleFunc("/api/enhance/templates", s.handleEnhanceTemplates)
	mux.HandleFunc("/api/enhance/start", s.withSession(s.handleEnhanceStart))
	mux.HandleFunc("/api/enhance/template", s.withSession(s.handleEnhanceTemplate))
	mux.HandleFunc("/api/enhance/submit", s.withSession(s.handleEnhanceSubmit))
	mux.HandleFunc("/api/enhance/adopt", s.withSession(s.handleEnhanceAdopt))
	mux.HandleFunc("/api/enhance/advance", s.withSession(s.handleEnhanceAdvance))
	mux.HandleFunc("/api/enhance/retreat", s.withSession(s.handleEnhanceRetreat))
	mux.HandleFunc("/api/enhance/synthesize", s.withSession(s.handleEnhanceSynthesize))
	mux.HandleFunc("/api/enhance/export", s.withSession(s.handleEnhanceExport))
	mux.HandleFunc("/api/enhance/reset", s.withSession(s.handleEnhanceReset))
	mux.HandleFunc("/api/enhance/handoff", s.withSession(s.handleEnhanceHandoff))

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", handleIndex)
	return mux
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// withSession resolves the browser session from its cookie, issuing a new
// one when needed, and holds the session lock for the whole request so
// operations on one session never interleave.
func (s *server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}
		sess, created := s.sessions.Get(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		sess.Lock()
		defer sess.Unlock()
		if created && s.envCredentials != nil {
			sess.Credentials = *s.envCredentials
		}
		h(w, r, sess)
	}
}
