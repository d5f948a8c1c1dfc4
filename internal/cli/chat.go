package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marquee-ai/marquee/internal/agent"
	"github.com/marquee-ai/marquee/internal/embedding"
	"github.com/marquee-ai/marquee/internal/memory"
)

func newChatCmd() *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive movie Q&A session",
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

			client, registry := buildReasoner(cfg)
			if len(registry.List()) == 0 {
				return fmt.Errorf("no LLM providers configured")
			}

			toolReg, err := buildToolbox(cfg, client, st, embedder, index)
			if err != nil {
				return err
			}

			// REPL sessions live and die with the process.
			mem := memory.NewInMemoryStore()
			orch := buildOrchestrator(cfg, client, toolReg, mem)

			return runREPL(ctx, cmd, orch, mem, trace)
		},
	}

	cmd.Flags().BoolVar(&trace, "trace", false, "print thoughts and tool activity as they happen")

	return cmd
}

func runREPL(ctx context.Context, cmd *cobra.Command, orch *agent.Orchestrator, mem memory.Store, trace bool) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Ask about the movie dataset. /new starts a fresh session, /clear wipes")
	fmt.Fprintln(out, "the current one, /trace toggles tool output, /quit exits.")

	var sessionID string
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			switch line {
			case "/quit", "/exit":
				return nil
			case "/new":
				sessionID = ""
				fmt.Fprintln(out, "started a new session")
			case "/clear":
				if sessionID == "" {
					fmt.Fprintln(out, "no session yet")
					continue
				}
				if err := mem.Clear(ctx, sessionID); err != nil {
					fmt.Fprintf(out, "clear failed: %v\n", err)
					continue
				}
				sessionID = ""
				fmt.Fprintln(out, "session cleared")
			case "/trace":
				trace = !trace
				if trace {
					fmt.Fprintln(out, "trace on")
				} else {
					fmt.Fprintln(out, "trace off")
				}
			default:
				fmt.Fprintf(out, "unknown command %s (try /new, /clear, /trace, /quit)\n", line)
			}
			continue
		}

		result, err := orch.RunStream(ctx, sessionID, line, func(ev agent.Event) {
			if !trace {
				return
			}
			switch ev.Type {
			case agent.EventThought:
				fmt.Fprintf(out, "  [thought] %s\n", ev.Text)
			case agent.EventToolCall:
				fmt.Fprintf(out, "  [%s] %s\n", ev.Tool, string(ev.Args))
			case agent.EventToolResult:
				label := ev.Tool
				if !ev.OK {
					label += " failed"
				}
				fmt.Fprintf(out, "  [%s] %s\n", label, truncate(ev.Text, 300))
			}
		})
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		sessionID = result.SessionID
		if result.Degraded {
			fmt.Fprintln(out, "(partial answer)")
		}
		fmt.Fprintln(out, result.Answer)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
