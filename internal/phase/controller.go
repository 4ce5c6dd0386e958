package phase

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Store is the slice of the memory store the controller needs. The store is
// the single source of truth for the current phase; the controller never
// caches phase identity itself.
type Store interface {
	CurrentPhase(ctx context.Context) (string, error)
	TransitionPhase(ctx context.Context, name string) error
}

// Controller executes forward transitions through the workflow. It performs
// no completeness judgment of its own; callers decide when to advance.
type Controller struct {
	store Store
	log   *zap.Logger
}

func NewController(store Store, log *zap.Logger) *Controller {
	return &Controller{store: store, log: log}
}

// Current reads the authoritative phase from the store.
func (c *Controller) Current(ctx context.Context) (Phase, error) {
	name, err := c.store.CurrentPhase(ctx)
	if err != nil {
		return 0, fmt.Errorf("read current phase: %w", err)
	}
	p, err := Parse(name)
	if err != nil {
		return 0, err
	}
	return p, nil
}

// Advance moves the session to the next phase. At the terminal phase it
// returns false and writes nothing; calling it again stays a no-op.
func (c *Controller) Advance(ctx context.Context) (bool, error) {
	current, err := c.Current(ctx)
	if err != nil {
		return false, err
	}

	next, ok := current.Next()
	if !ok {
		c.log.Warn("already in the final phase", zap.String("phase", current.String()))
		return false, nil
	}

	if err := c.store.TransitionPhase(ctx, next.String()); err != nil {
		return false, fmt.Errorf("transition to %s: %w", next, err)
	}
	c.log.Info("transitioned phase",
		zap.String("from", current.String()),
		zap.String("to", next.String()))
	return true, nil
}
