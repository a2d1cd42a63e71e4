// Command agentctl is a thin local CLI for exercising a single agent
// run against a fake provider. It is an exploratory tool only: it does
// not implement the REST surface, persistence, or any concrete
// provider wire protocol, all of which are external collaborators per
// the Agent Execution Runtime's scope.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/relaymind/agentcore/internal/agent"
	"github.com/relaymind/agentcore/internal/cancel"
	"github.com/relaymind/agentcore/internal/eventbus"
	"github.com/relaymind/agentcore/internal/run"
	"github.com/relaymind/agentcore/internal/runtimeconfig"
	"github.com/relaymind/agentcore/internal/sessions"
	"github.com/relaymind/agentcore/internal/stream"
	"github.com/relaymind/agentcore/pkg/agentapi"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := buildRootCmd().ExecuteContext(context.Background()); err != nil {
		slog.Error("agentctl failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agentctl",
		Short: "Exercise a single agent run against a fake provider",
	}
	rootCmd.AddCommand(buildRunCmd())
	return rootCmd
}

func buildRunCmd() *cobra.Command {
	var (
		configPath string
		prompt     string
		echoSuffix string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one agent step loop against a canned echo provider and print the SSE stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := runtimeconfig.Default()
			if configPath != "" {
				loaded, err := runtimeconfig.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			return runOnce(cmd, cfg, prompt, echoSuffix)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a runtimeconfig YAML file (optional)")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "hello", "User message to send")
	cmd.Flags().StringVar(&echoSuffix, "suffix", " (echoed)", "Suffix the fake provider appends to the prompt")

	return cmd
}

func runOnce(cmd *cobra.Command, cfg *runtimeconfig.Config, prompt, suffix string) error {
	ctx := cmd.Context()

	registry := agent.NewToolRegistry()
	loopCfg := agent.DefaultLoopConfig()
	loopCfg.MaxIterations = cfg.Loop.MaxSteps

	loop := agent.NewAgenticLoop(&echoProvider{suffix: suffix}, registry, sessions.NewMemoryStore(), loopCfg)
	loop.SetDefaultModel("agentctl-echo")

	session := &agentapi.Session{
		ID:        "agentctl-session",
		AgentID:   "agentctl",
		Channel:   agentapi.ChannelCLI,
		ChannelID: "local",
		Key:       "agentctl-session",
	}
	msg := &agentapi.Message{
		Role:    agentapi.RoleUser,
		Content: prompt,
	}

	chunks, err := loop.Run(ctx, session, msg)
	if err != nil {
		return fmt.Errorf("agentctl: start run: %w", err)
	}

	runID := uuid.NewString()
	manager := run.NewManager(run.NewMemoryStore())
	if err := manager.Create(ctx, &agentapi.Run{
		ID:       runID,
		AgentID:  session.AgentID,
		MaxSteps: cfg.Loop.MaxSteps,
	}); err != nil {
		return fmt.Errorf("agentctl: create run: %w", err)
	}
	if _, err := manager.MarkRunning(ctx, runID); err != nil {
		return fmt.Errorf("agentctl: mark running: %w", err)
	}

	dispatcher := stream.NewDispatcher(manager)
	frames, err := dispatcher.CreateAgentStream(ctx, stream.Config{
		RunID:              runID,
		CancelToken:        cancel.New(),
		CancelPollInterval: cfg.Streaming.CancelPoll,
		KeepaliveInterval:  cfg.Streaming.KeepaliveInterval,
		Bus:                eventbus.NoopBus{},
	}, chunks)
	if err != nil {
		return fmt.Errorf("agentctl: create stream: %w", err)
	}

	for frame := range frames {
		if _, err := cmd.OutOrStdout().Write(frame); err != nil {
			return err
		}
	}
	return nil
}

// echoProvider is a canned LLMProvider that answers every request with
// the last user message plus a suffix, never requesting a tool call.
type echoProvider struct {
	suffix string
}

func (p *echoProvider) Name() string { return "agentctl-echo" }

func (p *echoProvider) Models() []agent.Model {
	return []agent.Model{{ID: "agentctl-echo", Name: "agentctl echo", ContextSize: 8192}}
}

func (p *echoProvider) SupportsTools() bool { return false }

func (p *echoProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	var last string
	if n := len(req.Messages); n > 0 {
		last = req.Messages[n-1].Content
	}

	ch := make(chan *agent.CompletionChunk, 2)
	go func() {
		defer close(ch)
		select {
		case ch <- &agent.CompletionChunk{Text: last + p.suffix}:
		case <-ctx.Done():
			return
		}
		select {
		case ch <- &agent.CompletionChunk{Done: true}:
		case <-ctx.Done():
		}
	}()
	return ch, nil
}
