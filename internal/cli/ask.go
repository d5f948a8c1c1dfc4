package cli

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marquee-ai/marquee/internal/embedding"
)

func newAskCmd() *cobra.Command {
	var (
		sessionID string
		trace     bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, db, err := openMovieStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("opening movie store: %w", err)
			}
			defer st.Close()

			// With the sqlite session store, --session continues a
			// conversation across invocations.
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
			if len(registry.List()) == 0 {
				return fmt.Errorf("no LLM providers configured")
			}

			toolReg, err := buildToolbox(cfg, client, st, embedder, index)
			if err != nil {
				return err
			}
			orch := buildOrchestrator(cfg, client, toolReg, mem)

			result, err := orch.Run(ctx, sessionID, question)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if trace {
				for _, step := range result.Steps {
					if step.Thought != "" {
						fmt.Fprintf(out, "%d. %s\n", step.N, step.Thought)
					}
					if step.Tool != "" {
						fmt.Fprintf(out, "   %s %s\n", step.Tool, step.Args)
						status := "ok"
						if !step.OK {
							status = "failed"
						}
						fmt.Fprintf(out, "   -> [%s] %s\n", status, truncate(step.Observation, 300))
					}
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, result.Answer)
			fmt.Fprintf(cmd.ErrOrStderr(), "\n[session=%s degraded=%v took=%s]\n",
				result.SessionID, result.Degraded, result.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session id to continue")
	cmd.Flags().BoolVar(&trace, "trace", false, "print the reasoning steps before the answer")

	return cmd
}
