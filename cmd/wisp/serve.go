package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/wisplabs/wisp/infrastructure/api"
)

func serveCmd(envFile *string) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Endpoints:
  GET  /health                  Liveness check
  GET  /keys                    Names in the local tokens file
  GET  /search                  Hybrid tool search
  GET  /servers/{name}/tools    Indexed tools of one server
  POST /call                    Invoke a tool on a live server`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8000)")

	return cmd
}

func runServe(envFile, host string, port int) error {
	client, err := newClient(envFile, false)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	cfg := client.Config()
	logger := client.Logger()

	addr := cfg.Addr()
	if host != "" || port != 0 {
		h, p := cfg.Host(), cfg.Port()
		if host != "" {
			h = host
		}
		if port != 0 {
			p = port
		}
		addr = fmt.Sprintf("%s:%d", h, p)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load the embedding model before accepting traffic so the first
	// search does not time out on model startup.
	logger.Info("warming embedder")
	if err := client.WarmEmbedder(ctx); err != nil {
		return err
	}

	server := api.NewServer(addr, logger)
	api.NewHandlers(client.Retriever, client.Gateway, logger).
		WithTokensFile(cfg.TokensPath()).
		Mount(server.Router())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("starting wisp", "version", version, "addr", addr,
		"keyword_only", client.KeywordOnly())
	return server.Start()
}
