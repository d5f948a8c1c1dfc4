package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marquee-ai/marquee/internal/embedding"
	"github.com/marquee-ai/marquee/internal/ingest"
	"github.com/marquee-ai/marquee/internal/search"
)

const summaryRounding = 10 * time.Millisecond

func newIngestCmd() *cobra.Command {
	var (
		csvPath        string
		skipEmbeddings bool
		concurrency    int
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load the movie CSV and build overview embeddings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, _, err := openMovieStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("opening movie store: %w", err)
			}
			defer st.Close()

			// The embedder and index are only touched when embeddings
			// are built; placeholders keep the skip path offline.
			embedder := embedding.Provider(embedding.NewNoopProvider(0))
			index := search.Index(search.NewFlatIndex(0))
			if !skipEmbeddings {
				embedder, err = embedding.FromConfig(cfg.Embedding)
				if err != nil {
					return err
				}
				index, err = buildIndex(ctx, cfg, st, embedder)
				if err != nil {
					return fmt.Errorf("building index: %w", err)
				}
			}
			defer index.Close()

			if concurrency <= 0 {
				concurrency = cfg.Ingest.Concurrency
			}

			summary, err := ingest.New(st, embedder, index, log).Run(ctx, ingest.Options{
				CSVPath:        csvPath,
				SkipEmbeddings: skipEmbeddings,
				Concurrency:    concurrency,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Movies:     %d\n", summary.Movies)
			if !skipEmbeddings {
				fmt.Fprintf(out, "Embedded:   %d (%d dimensions)\n", summary.Embedded, summary.Dimensions)
			}
			fmt.Fprintf(out, "Duration:   %s\n", summary.Duration.Round(summaryRounding))
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "path to the IMDb movies CSV")
	cmd.Flags().BoolVar(&skipEmbeddings, "skip-embeddings", false, "load the dataset without building embeddings")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel embedding requests (default from config)")
	_ = cmd.MarkFlagRequired("csv")

	return cmd
}
