package filesystem

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/loopctl/internal/core/event"
	"github.com/example/loopctl/internal/ports/secondary"
)

// EventLog implements secondary.EventLog over events.jsonl files.
type EventLog struct {
	paths Paths
}

// NewEventLog creates an event log adapter rooted at baseDir.
func NewEventLog(baseDir string) *EventLog {
	return &EventLog{paths: Paths{BaseDir: baseDir}}
}

// Read returns all events in log order. A missing log reads empty.
func (l *EventLog) Read(ctx context.Context, ref secondary.RunRef) ([]event.Event, error) {
	f, err := os.Open(l.paths.EventsPath(ref))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	var events []event.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var e event.Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("failed to parse event log line %d: %w", line, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	return events, nil
}

// Append adds one event to the end of the log. The log itself is the
// one file not rewritten atomically: a single JSON line is appended
// with O_APPEND, which is atomic for writes under the pipe buffer size.
func (l *EventLog) Append(ctx context.Context, ref secondary.RunRef, e event.Event) error {
	path := l.paths.EventsPath(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

var _ secondary.EventLog = (*EventLog)(nil)
