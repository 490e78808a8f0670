package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vibe-cli/vibe/internal/approval"
	"github.com/vibe-cli/vibe/internal/config"
	"github.com/vibe-cli/vibe/internal/engine"
	vibeerr "github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/llm"
	"github.com/vibe-cli/vibe/internal/logging"
	"github.com/vibe-cli/vibe/internal/session"
	"github.com/vibe-cli/vibe/internal/tools"
	"github.com/vibe-cli/vibe/internal/ui"
	"github.com/vibe-cli/vibe/internal/usage"
)

var version = "dev"

const systemPrompt = `You are vibe, a coding assistant that works in the user's terminal.
Use the available tools to read, search, and modify the project when asked.
Prefer targeted edits over whole-file rewrites. Be concise.`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type cliOptions struct {
	configPath  string
	model       string
	prompt      string
	resume      bool
	autoApprove bool
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "vibe",
		Short:         "A terminal coding assistant",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := run(cmd.Context(), opts); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", vibeerr.GetUserMessage(err))
				return err
			}
			return nil
		},
	}

	root.Flags().StringVar(&opts.configPath, "config", "", "path to config file")
	root.Flags().StringVarP(&opts.model, "model", "m", "", "model to use")
	root.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "run one prompt and exit")
	root.Flags().BoolVar(&opts.resume, "resume", false, "resume the most recent session")
	root.Flags().BoolVar(&opts.autoApprove, "auto", false, "approve all tool calls without asking")

	root.AddCommand(newSessionsCmd())
	return root
}

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List saved sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(logging.ConfigFromEnv())
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			store, err := session.NewStore(log)
			if err != nil {
				return err
			}
			infos, err := store.List()
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Println("No saved sessions.")
				return nil
			}
			for _, info := range infos {
				fmt.Printf("%s  %-12s %3d msgs  %s\n",
					info.ID, session.FormatRelativeTime(info.UpdatedAt), info.MsgCount, info.Preview)
			}
			return nil
		},
	}
}

func run(ctx context.Context, opts *cliOptions) error {
	log, err := logging.New(logging.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.LoadFrom(opts.configPath)
	if err != nil {
		return err
	}
	if opts.model != "" {
		cfg.DefaultModel = opts.model
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}
	if opts.autoApprove {
		for name, policy := range cfg.Tools {
			if policy.Permission == config.PermissionAsk {
				policy.Permission = config.PermissionAlways
				cfg.Tools[name] = policy
			}
		}
	}

	output := ui.NewOutputHandler()
	input := ui.NewInputHandler()

	gate := approval.NewGate(cfg, log)
	registry := tools.NewRegistry(gate.Allowed)
	tracker := usage.NewTracker(log)
	client := llm.NewAnthropicClient(cfg, log)

	eng := engine.New(cfg, client, registry, gate, tracker, log)
	eng.SetSystemPrompt(systemPrompt)

	store, err := session.NewStore(log)
	if err != nil {
		return err
	}
	if opts.resume {
		if prev, err := store.Current(); err == nil && prev != nil {
			if err := eng.Restore(prev.ID, prev.Messages, prev.Usage); err != nil {
				return err
			}
			output.Info(fmt.Sprintf("Resumed session %s (%d messages)", prev.ID, len(prev.Messages)))
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := &cliSink{eng: eng, output: output, input: input, log: log}

	if opts.prompt != "" {
		err := eng.Run(ctx, opts.prompt, sink)
		saveSession(eng, store, cfg, log)
		return err
	}

	return repl(ctx, eng, store, cfg, output, input, sink, log)
}

func repl(ctx context.Context, eng *engine.Engine, store *session.Store, cfg *config.Config, output *ui.OutputHandler, input *ui.InputHandler, sink *cliSink, log *zap.Logger) error {
	output.ModelInfo(cfg.DefaultModel)
	output.Info("Type a prompt, or /reset, /usage, /quit")

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := input.ReadInput("> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/reset":
			eng.Reset()
			output.Success("Session reset")
			continue
		case "/usage":
			totals := eng.Usage()
			output.UsageSummary(totals.InputTokens, totals.OutputTokens, totals.Cost)
			if totals.MissingUsageEvents > 0 {
				output.Warning(fmt.Sprintf("%d model responses carried no usage metadata; totals under-count", totals.MissingUsageEvents))
			}
			continue
		}

		if err := eng.Run(ctx, line, sink); err != nil {
			if errors.Is(err, context.Canceled) {
				output.Warning("Interrupted")
				return nil
			}
			output.Error(errors.New(vibeerr.GetUserMessage(err)))
			// Budget exhaustion ends the whole session, not just the turn.
			if vibeerr.IsCode(err, vibeerr.CodeCostLimitExceeded) {
				saveSession(eng, store, cfg, log)
				return err
			}
		}
		saveSession(eng, store, cfg, log)
	}
}

func saveSession(eng *engine.Engine, store *session.Store, cfg *config.Config, log *zap.Logger) {
	history := eng.History()
	if len(history) == 0 {
		return
	}
	err := store.Save(&session.Session{
		ID:       eng.SessionID(),
		Model:    cfg.DefaultModel,
		Messages: history,
		Usage:    eng.Usage(),
	})
	if err != nil {
		log.Warn("failed to save session", zap.Error(err))
	}
}

// cliSink renders engine events to the terminal and answers approval
// requests inline.
type cliSink struct {
	eng    *engine.Engine
	output *ui.OutputHandler
	input  *ui.InputHandler
	log    *zap.Logger
}

func (s *cliSink) AssistantText(text string) {
	s.output.Assistant(text)
}

func (s *cliSink) Warning(msg string) {
	s.output.Warning(msg)
}

func (s *cliSink) ApprovalRequested(req approval.Request, description string) {
	s.output.ApprovalPrompt(req.Tool, description)

	decision, err := s.input.ReadApproval()
	if err != nil {
		// Stdin is gone; reject so the turn can finish cleanly.
		decision = ui.ApprovalDecision{Approved: false, Feedback: "no approval surface available"}
	}

	if err := s.eng.ApplyDecision(req.CallID, decision.Approved, decision.Feedback); err != nil {
		s.log.Warn("approval decision not applied", zap.Error(err))
	}
}

func (s *cliSink) ToolCall(name, description string) {
	s.output.ToolCall(name, description)
}

func (s *cliSink) ToolResult(name, result string, isError bool) {
	s.output.ToolResult(name, result, isError)
}
