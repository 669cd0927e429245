package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fpang/prompt-studio/internal/config"
	"github.com/fpang/prompt-studio/internal/ledger"
	"github.com/fpang/prompt-studio/internal/logging"
	"github.com/fpang/prompt-studio/internal/stages"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev"

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "studio-mcp",
	Short: "MCP server exposing the prompt refinement catalog and usage statistics",
	Long: `Studio MCP speaks the Model Context Protocol over stdio so agent clients
can read the refinement stages, the example templates and the usage ledger.

Examples:
  studio-mcp
  studio-mcp --config studio.yaml`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "Path to a YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol; logs go to stderr.
	logging.Init()

	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	t := &tools{catalog: stages.Default(), ledger: ledger.Open(cfg.Ledger.Path)}
	server := newServer(t)

	logging.NewStartupLogger("studio-mcp").
		Version(version).
		File("ledger", cfg.Ledger.Path).
		Config("transport", "stdio").
		Log()

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("MCP server stopped")
		return err
	}
	return nil
}

func newServer(t *tools) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "prompt-studio", Version: version}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_stages",
		Description: "List the prompt refinement stages in wizard order, with their guiding questions and suggestions.",
	}, t.listStages)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_stage",
		Description: "Get one refinement stage by id.",
	}, t.getStage)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_templates",
		Description: "List example video prompt templates, optionally filtered by tag.",
	}, t.listTemplates)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "usage_statistics",
		Description: "Report how many chats, images, videos and enhanced prompts have been generated.",
	}, t.usageStatistics)
	return server
}
