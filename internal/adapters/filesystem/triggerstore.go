package filesystem

import (
	"context"
	"os"

	"github.com/example/loopctl/internal/core/replan"
	"github.com/example/loopctl/internal/ports/secondary"
)

// TriggerStore implements secondary.TriggerStore over
// replan-trigger.json files.
type TriggerStore struct {
	paths Paths
}

// NewTriggerStore creates a trigger store rooted at baseDir.
func NewTriggerStore(baseDir string) *TriggerStore {
	return &TriggerStore{paths: Paths{BaseDir: baseDir}}
}

// Read returns the business's trigger, or nil when none exists.
func (s *TriggerStore) Read(ctx context.Context, business string) (*replan.Trigger, error) {
	var trigger replan.Trigger
	err := readJSON(s.paths.TriggerPath(business), &trigger)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &trigger, nil
}

// Write persists the trigger atomically.
func (s *TriggerStore) Write(ctx context.Context, business string, trigger *replan.Trigger) error {
	return writeJSONAtomic(s.paths.TriggerPath(business), trigger)
}

var _ secondary.TriggerStore = (*TriggerStore)(nil)
