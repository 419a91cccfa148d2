// Package coordinator runs short sequences of side effects where a failed
// step must undo the steps before it.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
)

// ErrHalt lets a step end the sequence early without it counting as a
// failure. Steps wrap it with their own reason; nothing is compensated.
var ErrHalt = errors.New("coordinator: halted")

// Step is a single unit of work. Compensate undoes Execute and is only
// called for steps that completed.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

type Orchestrator struct {
	id    string
	steps []Step
}

// NewOrchestrator builds an orchestrator; id only labels the log lines.
func NewOrchestrator(id string, steps []Step) *Orchestrator {
	return &Orchestrator{id: id, steps: steps}
}

// Start runs the steps in order. On failure it compensates the completed
// steps in reverse and returns the failing step's error.
func (o *Orchestrator) Start(ctx context.Context) error {
	var done []Step

	for _, step := range o.steps {
		slog.DebugContext(ctx, "executing step", "id", o.id, "step", step.Name())
		if err := step.Execute(ctx); err != nil {
			if errors.Is(err, ErrHalt) {
				slog.DebugContext(ctx, "sequence halted", "id", o.id, "step", step.Name(), "reason", err)
				return err
			}
			slog.WarnContext(ctx, "step failed, compensating", "id", o.id, "step", step.Name(), "error", err)
			o.rollback(ctx, done)
			return err
		}
		done = append(done, step)
	}
	return nil
}

func (o *Orchestrator) rollback(ctx context.Context, steps []Step) {
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		if err := step.Compensate(ctx); err != nil {
			slog.ErrorContext(ctx, "CRITICAL: compensation failed", "id", o.id, "step", step.Name(), "error", err)
		}
	}
}
