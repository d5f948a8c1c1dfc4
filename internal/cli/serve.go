package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marquee-ai/marquee/internal/embedding"
	"github.com/marquee-ai/marquee/internal/server"
	"github.com/marquee-ai/marquee/internal/telemetry"
	"github.com/marquee-ai/marquee/internal/version"
)

func newServeCmd() *cobra.Command {
	var (
		listen    string
		authToken string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if authToken != "" {
				cfg.Server.AuthToken = authToken
			}
			if err := fatalValidation(&cfg); err != nil {
				return err
			}

			// Block until SIGINT/SIGTERM; the server drains on cancel.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			otelShutdown, err := telemetry.Init(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName, version.Version, cfg.Telemetry.Insecure)
			if err != nil {
				return fmt.Errorf("telemetry: %w", err)
			}
			defer func() { _ = otelShutdown(context.Background()) }()

			st, db, err := openMovieStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("opening movie store: %w", err)
			}
			defer st.Close()

			mem, closeMem, err := openSessionStore(cfg, db)
			if err != nil {
				return err
			}
			if closeMem != nil {
				defer func() { _ = closeMem() }()
			}

			embedder, err := embedding.FromConfig(cfg.Embedding)
			if err != nil {
				return err
			}

			index, err := buildIndex(ctx, cfg, st, embedder)
			if err != nil {
				return fmt.Errorf("building index: %w", err)
			}
			defer index.Close()

			client, registry := buildReasoner(cfg)
			providers := registry.List()
			if len(providers) > 0 {
				log.Info().Strs("providers", providers).Msg("LLM providers available")
			} else {
				log.Warn().Msg("no LLM providers configured; ask requests will fail until one is added")
			}

			toolReg, err := buildToolbox(cfg, client, st, embedder, index)
			if err != nil {
				return err
			}
			orch := buildOrchestrator(cfg, client, toolReg, mem)

			srv := server.New(cfg.Server, orch, mem, log,
				server.WithMovieStore(st),
				server.WithIndex(index),
				server.WithProviders(providers),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "override listen address (host:port)")
	cmd.Flags().StringVar(&authToken, "auth-token", "", "override bearer auth token")

	return cmd
}
