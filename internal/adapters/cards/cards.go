// Package cards contains the filesystem implementation of the card
// client port. Cards and their stage documents are markdown files under
// docs/business-os/cards/, so publishes land in the same tree as the
// rest of the business state. An HTTP client can replace this behind
// the same port.
package cards

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"

	"github.com/example/loopctl/internal/ports/secondary"
)

var cardIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Store implements secondary.CardClient on the local filesystem.
type Store struct {
	baseDir string
}

// NewStore creates a card store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// UpsertCard writes the card body, replacing any existing content.
func (s *Store) UpsertCard(ctx context.Context, cardID, title, body string) error {
	if err := validateCardID(cardID); err != nil {
		return err
	}
	content := fmt.Sprintf("# %s\n\n%s", title, body)
	return s.writeAtomic(s.cardPath(cardID), []byte(content))
}

// UpsertStageDoc writes one stage document attached to a card.
func (s *Store) UpsertStageDoc(ctx context.Context, cardID, stage, body string) error {
	if err := validateCardID(cardID); err != nil {
		return err
	}
	if !cardIDPattern.MatchString(stage) {
		return fmt.Errorf("invalid stage id %q", stage)
	}
	return s.writeAtomic(s.stageDocPath(cardID, stage), []byte(body))
}

func (s *Store) cardPath(cardID string) string {
	return filepath.Join(s.baseDir, "docs", "business-os", "cards", cardID+".md")
}

func (s *Store) stageDocPath(cardID, stage string) string {
	return filepath.Join(s.baseDir, "docs", "business-os", "cards", cardID, "stage-docs", stage+".md")
}

func (s *Store) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create card directory: %w", err)
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%s", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write card temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename card file: %w", err)
	}
	return nil
}

func validateCardID(cardID string) error {
	if !cardIDPattern.MatchString(cardID) {
		return fmt.Errorf("invalid card id %q", cardID)
	}
	return nil
}

var _ secondary.CardClient = (*Store)(nil)
