package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/droverhq/drover/internal/agent/ai"
	"github.com/droverhq/drover/internal/agent/config"
	"github.com/droverhq/drover/internal/agent/conv"
	"github.com/droverhq/drover/internal/agent/runner"
	"github.com/droverhq/drover/internal/agent/tools"
	"github.com/droverhq/drover/internal/db"
	"github.com/droverhq/drover/internal/logging"
	"github.com/droverhq/drover/internal/modelinfo"
)

const defaultSystemPrompt = `You are Drover, an autonomous assistant running on the user's machine.
You have tools for running shell commands, reading and editing files, and
capturing the screen. Use them when they help; answer directly when they don't.`

func chatCmd() *cobra.Command {
	var interactive bool
	var sessionName string

	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Chat with the assistant",
		Long: `Send a prompt and let the agent loop run until the model answers
without calling tools.

Examples:
  drover chat "List the Go files in this directory"
  drover chat --interactive
  drover chat --session deploy "Continue where we left off"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runChat(cfg, sessionName, args, interactive)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "start an interactive session")
	cmd.Flags().StringVar(&sessionName, "session", "default", "session name to resume or create")
	return cmd
}

func runChat(cfg *config.Config, sessionName string, args []string, interactive bool) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("no API key set; export %s or add it to .env", config.APIKeyEnv)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}

	store, err := db.Open(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	sess, err := store.GetOrCreateSession(sessionName)
	if err != nil {
		return err
	}

	catalog := modelinfo.NewCatalog()
	if err := catalog.LoadOverlay(cfg.DataDir); err != nil {
		logging.Warnf("chat: %v", err)
	}
	stopWatch, err := catalog.Watch(cfg.DataDir)
	if err != nil {
		logging.Warnf("chat: model overlay watcher unavailable: %v", err)
	} else {
		defer stopWatch()
	}

	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		tools.NewShellTool(),
		tools.NewFileTool(),
		tools.NewScreenshotTool(),
	} {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	client := ai.NewAnthropicClient(cfg.APIKey, catalog)
	r := runner.New(client, registry, runner.Config{
		SystemPrompt:      systemPrompt,
		MaxIterations:     cfg.MaxIterations,
		ImageRetainCount:  cfg.ImageRetainCount,
		ImageRemovalChunk: cfg.ImageRemovalChunk,
		Prune:             cfg.Prune,
	}, paramsFromConfig(cfg))

	// Resume the persisted log, if any.
	log, err := store.Messages(sess.ID)
	if err != nil {
		return err
	}
	r.LoadLog(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n\033[33mInterrupted\033[0m")
		cancel()
	}()

	if interactive || len(args) == 0 {
		return runInteractive(ctx, r, store, sess)
	}
	return runOnce(ctx, r, store, sess, strings.Join(args, " "))
}

// paramsFromConfig maps config onto per-request sampling parameters.
func paramsFromConfig(cfg *config.Config) ai.Params {
	budget := cfg.Thinking.BudgetTokens
	if budget <= 0 {
		budget = ai.BudgetRecommended
	}
	return ai.Params{
		Model:          cfg.Model,
		MaxTokens:      cfg.MaxTokens,
		TimeoutSeconds: cfg.TimeoutSeconds,
		Thinking: ai.ThinkingParams{
			Enabled:      cfg.Thinking.Enabled,
			BudgetTokens: budget,
			Interleaved:  cfg.Thinking.Interleaved,
		},
	}
}

func runOnce(ctx context.Context, r *runner.Runner, store *db.Store, sess *db.Session, prompt string) error {
	r.AppendUserTurn(prompt)
	log, err := r.Run(ctx, printCallbacks())
	persistLog(store, sess, log)
	if err != nil {
		return err
	}
	fmt.Println()
	return nil
}

func runInteractive(ctx context.Context, r *runner.Runner, store *db.Store, sess *db.Session) error {
	fmt.Println("\033[1mDrover Interactive Mode\033[0m")
	fmt.Println("Type your message and press Enter. Use /help for commands, Ctrl+C to exit.")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("\033[36m> \033[0m")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if done := handleCommand(line, r, store, sess); done {
				continue
			}
			return nil
		}

		r.AppendUserTurn(line)
		log, err := r.Run(ctx, printCallbacks())
		persistLog(store, sess, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\033[31mError: %v\033[0m\n", err)
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		fmt.Println()
	}
}

// handleCommand processes a slash command. It returns false for /quit.
func handleCommand(cmd string, r *runner.Runner, store *db.Store, sess *db.Session) bool {
	switch cmd {
	case "/help":
		fmt.Println(`Commands:
  /help   - Show this help
  /clear  - Clear the current session
  /quit   - Exit`)
		return true
	case "/clear":
		r.Reset()
		if err := store.ResetSession(sess.ID); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing session: %v\n", err)
		} else {
			fmt.Println("Session cleared.")
		}
		return true
	case "/quit", "/exit":
		return false
	default:
		fmt.Printf("Unknown command %s (try /help)\n", cmd)
		return true
	}
}

// persistLog writes the runner's log back to the store. The whole log is
// replaced so window maintenance survives restarts too.
func persistLog(store *db.Store, sess *db.Session, log []conv.Message) {
	if err := store.ReplaceMessages(sess.ID, log); err != nil {
		logging.Errorf("chat: failed to persist session: %v", err)
	}
}

func printCallbacks() runner.Callbacks {
	return runner.Callbacks{
		OnAssistantContent: func(blocks []conv.Block) {
			for _, b := range blocks {
				switch block := b.(type) {
				case conv.TextBlock:
					fmt.Printf("\033[32m%s\033[0m\n", block.Text)
				case conv.ThinkingBlock:
					if verbose {
						fmt.Printf("\033[90m[thinking] %s\033[0m\n", block.Thinking)
					}
				case conv.ToolUseBlock:
					fmt.Printf("\033[90m[tool] %s\033[0m\n", conv.ToolCallSummary(block))
				}
			}
		},
		OnToolOutcome: func(name string, outcome *tools.ToolOutcome) {
			if outcome.Error != "" {
				fmt.Printf("\033[90m[%s] error: %s\033[0m\n", name, firstLine(outcome.Error))
			}
		},
		OnResponseMeta: func(meta ai.ResponseMeta) {
			logging.Debugf("chat: %s used %d input / %d output tokens",
				meta.Model, meta.InputTokens, meta.OutputTokens)
		},
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
