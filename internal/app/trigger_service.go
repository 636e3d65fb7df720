package app

import (
	"context"
	"fmt"
	"time"

	"github.com/example/loopctl/internal/core/replan"
	"github.com/example/loopctl/internal/ports/secondary"
)

// TriggerServiceImpl implements the TriggerService interface.
type TriggerServiceImpl struct {
	triggers secondary.TriggerStore
	clock    secondary.Clock
}

// NewTriggerService creates a new TriggerService with injected dependencies.
func NewTriggerService(triggers secondary.TriggerStore, clock secondary.Clock) *TriggerServiceImpl {
	return &TriggerServiceImpl{triggers: triggers, clock: clock}
}

// Get returns the business's trigger, or nil when none exists.
func (s *TriggerServiceImpl) Get(ctx context.Context, business string) (*replan.Trigger, error) {
	return s.triggers.Read(ctx, business)
}

// Acknowledge flips an open trigger to acknowledged. Acknowledgement is
// sticky: re-qualifying persistence does not reset it.
func (s *TriggerServiceImpl) Acknowledge(ctx context.Context, business string) (*replan.Trigger, error) {
	trigger, err := s.triggers.Read(ctx, business)
	if err != nil {
		return nil, err
	}
	if trigger == nil {
		return nil, fmt.Errorf("no replan trigger exists for %s", business)
	}
	if trigger.Status != replan.StatusOpen {
		return nil, fmt.Errorf("trigger for %s is %s, only open triggers can be acknowledged", business, trigger.Status)
	}

	trigger.Status = replan.StatusAcknowledged
	trigger.LastEvaluatedAt = s.clock.Now().UTC().Format(time.RFC3339)
	if err := s.triggers.Write(ctx, business, trigger); err != nil {
		return nil, fmt.Errorf("failed to write acknowledged trigger: %w", err)
	}
	return trigger, nil
}
