package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marquee-ai/marquee/internal/config"
	"github.com/marquee-ai/marquee/internal/embedding"
	"github.com/marquee-ai/marquee/internal/llm"
	"github.com/marquee-ai/marquee/internal/version"
)

const statusProbeTimeout = 5 * time.Second

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration summary and collaborator health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n\n", version.Info())
			fmt.Fprintf(out, "Config:  %s\n", paths.Config)
			fmt.Fprintf(out, "Data:    %s\n", paths.Data)
			fmt.Fprintln(out)

			cfg, err := loadConfig()
			if err != nil {
				fmt.Fprintf(out, "Config:  error loading: %v\n", err)
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), statusProbeTimeout)
			defer cancel()

			// Store health.
			backend := cfg.Store.Backend
			if backend == "" {
				backend = "sqlite"
			}
			st, _, err := openMovieStore(ctx, cfg)
			if err != nil {
				fmt.Fprintf(out, "Store:   %s (unavailable: %v)\n", backend, err)
			} else {
				defer st.Close()
				if err := st.Ping(ctx); err != nil {
					fmt.Fprintf(out, "Store:   %s (ping failed: %v)\n", backend, err)
				} else {
					movies, _ := st.Count(ctx)
					fmt.Fprintf(out, "Store:   %s (%d movies)\n", backend, movies)
				}
			}

			// Index health, probed through the same path serve uses.
			searchBackend := cfg.Search.Backend
			if searchBackend == "" {
				searchBackend = "memory"
			}
			if st == nil {
				fmt.Fprintf(out, "Search:  %s (skipped, store unavailable)\n", searchBackend)
			} else if embedder, err := embedding.FromConfig(cfg.Embedding); err != nil {
				fmt.Fprintf(out, "Search:  %s (embedding: %v)\n", searchBackend, err)
			} else if idx, err := buildIndex(ctx, cfg, st, embedder); err != nil {
				fmt.Fprintf(out, "Search:  %s (unavailable: %v)\n", searchBackend, err)
			} else {
				defer idx.Close()
				if err := idx.Healthy(ctx); err != nil {
					fmt.Fprintf(out, "Search:  %s (unhealthy: %v)\n", searchBackend, err)
				} else {
					vectors, _ := idx.Count(ctx)
					fmt.Fprintf(out, "Search:  %s (%d vectors)\n", searchBackend, vectors)
				}
			}

			// LLM providers.
			registry := llm.NewRegistryFromConfig(cfg.LLM, log)
			providers := registry.List()
			if len(providers) > 0 {
				fmt.Fprintf(out, "LLM:     %s (primary %s)\n", strings.Join(providers, ", "), cfg.LLM.Primary)
			} else {
				fmt.Fprintln(out, "LLM:     (none configured)")
			}

			memStore := cfg.Memory.Store
			if memStore == "" {
				memStore = "sqlite"
			}
			fmt.Fprintf(out, "Memory:  store=%s\n", memStore)

			auth := "off"
			if cfg.Server.AuthToken != "" {
				auth = "on"
			}
			fmt.Fprintf(out, "Server:  listen=%s auth=%s\n", cfg.Server.Listen, auth)

			if cfg.Telemetry.Endpoint != "" {
				fmt.Fprintf(out, "OTEL:    endpoint=%s\n", cfg.Telemetry.Endpoint)
			} else {
				fmt.Fprintln(out, "OTEL:    (disabled)")
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}
}
