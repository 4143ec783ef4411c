// Package main is the entry point for the wisp CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	wisp "github.com/wisplabs/wisp"
	"github.com/wisplabs/wisp/internal/config"
	"github.com/wisplabs/wisp/internal/log"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "wisp",
		Short: "Wisp MCP server discovery and routing layer",
		Long: `Wisp mirrors the MCP server registry, enriches servers with external
popularity signals, ranks them, extracts live tool inventories and serves
hybrid search plus tool invocation over HTTP.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                  Server host to bind to (default: 0.0.0.0)
  PORT                  Server port to listen on (default: 8000)
  DATA_DIR              Data directory (default: ~/.wisp)
  DB_URL                Database URL (default: sqlite:///{data_dir}/wisp.db)
  LOG_LEVEL             Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT            Log format: pretty, json (default: pretty)
  TOKENS_FILE           Tokens file served by /keys (default: {data_dir}/.tokens)
  GITHUB_TOKEN          GitHub REST and code-search authentication
  LIBRARIES_IO_API_KEY  libraries.io authentication
  SQLITE_VEC_PATH       sqlite vector extension override path
  CALL_TIMEOUT          Tool-invocation timeout in seconds (default: 60)
  EXTRACT_TIMEOUT       Tool-extraction timeout in seconds (default: 30)

  EMBEDDING_PROVIDER    Embedding backend: hugot, openai (default: hugot)
  EMBEDDING_BASE_URL    OpenAI-compatible base URL
  EMBEDDING_API_KEY     API key for hosted embedding providers
  EMBEDDING_MODEL       Model identifier (default: google/embeddinggemma-300m)
  EMBEDDING_MODEL_PATH  Local model directory for the hugot provider
  EMBEDDING_DIMENSION   Vector dimension (default: 768)
  EMBEDDING_BATCH_SIZE  Documents encoded per batch (default: 16)`,
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", "",
		"Path to .env file (default: .env in current directory)")

	cmd.AddCommand(serveCmd(&envFile))
	cmd.AddCommand(ingestCmd(&envFile))
	cmd.AddCommand(enrichCmd(&envFile))
	cmd.AddCommand(scoreCmd(&envFile))
	cmd.AddCommand(rankCmd(&envFile))
	cmd.AddCommand(indexCmd(&envFile))
	cmd.AddCommand(extractCmd(&envFile))
	cmd.AddCommand(searchCmd(&envFile))
	cmd.AddCommand(statsCmd(&envFile))
	cmd.AddCommand(versionCmd())

	return cmd
}

// newClient loads configuration and opens a wisp client. The batch
// pipeline commands never need the embedding model; keywordOnly keeps
// them from paying its startup cost.
func newClient(envFile string, keywordOnly bool, opts ...wisp.Option) (*wisp.Client, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	base := []wisp.Option{
		wisp.WithConfig(cfg),
		wisp.WithLogger(log.NewLogger(cfg)),
	}
	if keywordOnly {
		base = append(base, wisp.WithKeywordOnly())
	}
	return wisp.New(append(base, opts...)...)
}
