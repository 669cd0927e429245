package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fpang/prompt-studio/internal/auth"
	"github.com/fpang/prompt-studio/internal/config"
	"github.com/fpang/prompt-studio/internal/enhance"
	"github.com/fpang/prompt-studio/internal/gateway"
	"github.com/fpang/prompt-studio/internal/jobs"
	"github.com/fpang/prompt-studio/internal/ledger"
	"github.com/fpang/prompt-studio/internal/logging"
	"github.com/fpang/prompt-studio/internal/session"
	"github.com/fpang/prompt-studio/internal/stages"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev"

const (
	sessionIdleTTL = 12 * time.Hour
	jobRetention   = 2 * time.Hour
	sweepInterval  = 10 * time.Minute
)

// CLI flags
var (
	portFlag       int
	configFlag     string
	useEnvKeysFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "studio-web",
	Short: "Browser assistant for chat, images, video and prompt refinement",
	Long: `Studio Web starts a local web server with a chat assistant, image and
video generation, and a guided wizard that refines a rough idea into a
polished video prompt.

API keys are entered in the browser and kept in memory only.

Examples:
  studio-web
  studio-web --port 9090
  studio-web --config studio.yaml
  OPENAI_API_KEY=... studio-web --use-env-keys`,
	RunE: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides server.port)")
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "Path to a YAML config file")
	rootCmd.Flags().BoolVar(&useEnvKeysFlag, "use-env-keys", false, "Seed new sessions with OPENAI_API_KEY and GOOGLE_API_KEY")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load(configFlag)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if portFlag != 0 {
		cfg.Server.Port = portFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	usage := ledger.Open(cfg.Ledger.Path)
	gwCfg := gateway.Config{
		BaseURL:       cfg.OpenAI.BaseURL,
		Timeout:       cfg.OpenAI.Timeout,
		ChatMaxTokens: cfg.Chat.MaxTokens,
		RefineModel:   cfg.Refine.Model,
		ImageModel:    cfg.Image.Model,
		VideoModel:    cfg.Video.Model,
		OutputDir:     cfg.Video.OutputDir,
		PollInterval:  cfg.Video.PollInterval,
		MaxPolls:      cfg.Video.MaxPolls,
	}
	models := gateway.NewModelFactory(cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout)

	srv := &server{
		cfg:      cfg,
		sessions: session.NewStore(sessionIdleTTL),
		engine:   enhance.NewEngine(stages.Default(), gateway.NewRefiner(models, gwCfg), usage),
		ledger:   usage,
		chat:     gateway.NewChatService(models, gwCfg),
		images:   gateway.NewImageService(gwCfg),
		videos:   gateway.NewVideoService(gwCfg),
		jobs:     jobs.NewManager(ctx),
		validateKey: func(ctx context.Context, key string) error {
			return auth.ValidateOpenAIKey(ctx, key, auth.NewOpenAIClient(key, cfg.OpenAI.BaseURL))
		},
		forgetKey: models.Forget,
		now:       time.Now,
	}
	srv.sessions.OnEvict(srv.releaseSession)
	if useEnvKeysFlag {
		creds := auth.FromEnv()
		srv.envCredentials = &creds
	}

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      withLogging(withCORS(srv.routes())),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go sweep(ctx, srv)

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	logging.NewStartupLogger("studio-web").
		Version(version).
		ListenAddr(addr).
		File("ledger", cfg.Ledger.Path).
		File("videoOutputDir", cfg.Video.OutputDir).
		Feature("envKeys", useEnvKeysFlag).
		Config("chatModel", cfg.Chat.DefaultModel).
		Config("refineModel", cfg.Refine.Model).
		Config("imageModel", cfg.Image.Model).
		Config("videoModel", cfg.Video.Model).
		Config("videoPollInterval", cfg.Video.PollInterval.String()).
		Config("videoMaxPolls", strconv.Itoa(cfg.Video.MaxPolls)).
		InitDuration(time.Since(initStart)).
		Log()
	fmt.Printf("\n  Prompt Studio: http://localhost:%d\n\n", cfg.Server.Port)

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// sweep expires idle browser sessions and finished jobs until ctx ends.
func sweep(ctx context.Context, srv *server) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.sessions.Sweep()
			if n := srv.jobs.Prune(jobRetention); n > 0 {
				log.Debug().Int("removed", n).Msg("Pruned finished video jobs")
			}
		}
	}
}
