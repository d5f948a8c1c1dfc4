package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marquee-ai/marquee/internal/embedding"
	"github.com/marquee-ai/marquee/internal/mcp"
	"github.com/marquee-ai/marquee/internal/toolbox"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the dataset tools over the Model Context Protocol on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			st, _, err := openMovieStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("opening movie store: %w", err)
			}
			defer st.Close()

			embedder, err := embedding.FromConfig(cfg.Embedding)
			if err != nil {
				return err
			}

			index, err := buildIndex(ctx, cfg, st, embedder)
			if err != nil {
				return fmt.Errorf("building index: %w", err)
			}
			defer index.Close()

			// Without a provider the SQL tool reports its failure as a
			// tool result; semantic search keeps working.
			client, _ := buildReasoner(cfg)

			sqlTool := toolbox.NewStructuredQueryTool(client, st, cfg.Agent.MaxResultRows, log)
			semTool := toolbox.NewSemanticSearchTool(embedder, index, cfg.Search.DefaultK, cfg.Search.MaxK, log)

			// stdout carries the protocol; the logger writes to stderr.
			return mcp.New(sqlTool, semTool, log).ServeStdio()
		},
	}
}
