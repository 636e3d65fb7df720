package app

import (
	"context"
	"fmt"

	"github.com/example/loopctl/internal/core/bottleneck"
	"github.com/example/loopctl/internal/ports/primary"
	"github.com/example/loopctl/internal/ports/secondary"
)

// HistoryServiceImpl implements the HistoryService interface. The
// ledger file stays authoritative; the sqlite index only serves queries
// and can be rebuilt from the ledger at any time.
type HistoryServiceImpl struct {
	ledger secondary.HistoryLedger
	index  secondary.HistoryIndex
}

// NewHistoryService creates a new HistoryService with injected dependencies.
func NewHistoryService(ledger secondary.HistoryLedger, index secondary.HistoryIndex) *HistoryServiceImpl {
	return &HistoryServiceImpl{ledger: ledger, index: index}
}

// Recent returns the last n ledger entries, oldest first.
func (s *HistoryServiceImpl) Recent(ctx context.Context, business string, n int) ([]bottleneck.Entry, error) {
	entries, err := s.ledger.Read(ctx, business)
	if err != nil {
		return nil, fmt.Errorf("failed to read history ledger: %w", err)
	}
	return bottleneck.LastN(entries, n), nil
}

// Reindex rebuilds the index for a business from its ledger and returns
// the number of indexed entries.
func (s *HistoryServiceImpl) Reindex(ctx context.Context, business string) (int, error) {
	entries, err := s.ledger.Read(ctx, business)
	if err != nil {
		return 0, fmt.Errorf("failed to read history ledger: %w", err)
	}
	if err := s.index.Replace(ctx, business, entries); err != nil {
		return 0, fmt.Errorf("failed to rebuild history index: %w", err)
	}
	return len(entries), nil
}

// Query serves filtered entries from the index.
func (s *HistoryServiceImpl) Query(ctx context.Context, filters primary.HistoryFilters) ([]bottleneck.Entry, error) {
	return s.index.Query(ctx, filters.Business, filters.Severity, filters.Limit)
}
