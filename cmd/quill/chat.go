package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quill/internal/config"
	"quill/internal/console"
	"quill/internal/engine"
	"quill/internal/llm"
	"quill/internal/memory"
	"quill/internal/phase"
	"quill/internal/prompt"
)

// runChat wires the full stack and hands control to the console loop.
func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := connectStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}()

	prompts := prompt.NewManager(cfg.Prompts.Dir, logger)
	if cfg.Prompts.Watch {
		go func() {
			if err := prompts.Watch(ctx); err != nil {
				logger.Warn("prompt watcher stopped", zap.Error(err))
			}
		}()
	}

	var resume *memory.SessionInfo
	if sessionID != "" {
		resume, err = store.LoadSession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("resume session %s: %w", sessionID, err)
		}
	}

	controller := phase.NewController(store, logger)
	eng := engine.New(store, controller, logger)
	policy := buildPolicy(cfg, prompts, logger)

	c := console.New(eng, os.Stdin, os.Stdout, logger)
	return c.Run(ctx, resume, policy, cfg.Engine.ContextWindow)
}

// connectStore opens the Neo4j store and wraps it with the phase cache so a
// flaky connection degrades gracefully mid-session instead of killing it.
func connectStore(ctx context.Context) (memory.Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	graph, err := memory.Connect(connectCtx, cfg.Store.URI, cfg.Store.Username, cfg.Store.Password, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to graph store at %s: %w", cfg.Store.URI, err)
	}
	return memory.NewCachedStore(graph, logger), nil
}

// buildPolicy selects the question/transition policy for a session. The
// heuristic always exists; with a usable API key it becomes the fallback
// behind the LLM policy instead of the whole policy.
func buildPolicy(cfg *config.Config, prompts *prompt.Manager, log *zap.Logger) engine.Policy {
	heuristic := engine.Heuristic{
		MinInputs:     cfg.Engine.MinInputs,
		MinTotalChars: cfg.Engine.MinTotalChars,
	}
	if !cfg.LLM.Enabled || cfg.LLM.APIKey == "" {
		log.Info("llm disabled, using heuristic policy")
		return heuristic
	}
	client := llm.NewAnthropic(cfg.LLM.APIKey, cfg.LLM.Model, log)
	return engine.NewLLMPolicy(client, prompts, cfg.LLM.MaxTokens, heuristic, log)
}
