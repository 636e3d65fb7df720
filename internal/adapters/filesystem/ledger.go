package filesystem

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/loopctl/internal/core/bottleneck"
	"github.com/example/loopctl/internal/ports/secondary"
)

// HistoryLedger implements secondary.HistoryLedger over
// bottleneck-history.jsonl files.
type HistoryLedger struct {
	paths Paths
}

// NewHistoryLedger creates a history ledger rooted at baseDir.
func NewHistoryLedger(baseDir string) *HistoryLedger {
	return &HistoryLedger{paths: Paths{BaseDir: baseDir}}
}

// Read returns all entries in ledger order. A missing ledger reads
// empty. Lines that fail to parse are skipped; a corrupt tail must not
// take down diagnosis of later runs.
func (l *HistoryLedger) Read(ctx context.Context, business string) ([]bottleneck.Entry, error) {
	f, err := os.Open(l.paths.HistoryPath(business))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history ledger: %w", err)
	}
	defer f.Close()

	var entries []bottleneck.Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var entry bottleneck.Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history ledger: %w", err)
	}
	return entries, nil
}

// Append adds one entry unless an entry for the same run already
// exists. Re-running diagnosis for a run must not duplicate its row.
func (l *HistoryLedger) Append(ctx context.Context, business string, entry bottleneck.Entry) (bool, error) {
	existing, err := l.Read(ctx, business)
	if err != nil {
		return false, err
	}
	for _, e := range existing {
		if e.RunID == entry.RunID {
			return false, nil
		}
	}

	path := l.paths.HistoryPath(business)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create business directory: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return false, fmt.Errorf("failed to marshal history entry: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return false, fmt.Errorf("failed to open history ledger: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return false, fmt.Errorf("failed to append history entry: %w", err)
	}
	return true, nil
}

var _ secondary.HistoryLedger = (*HistoryLedger)(nil)
