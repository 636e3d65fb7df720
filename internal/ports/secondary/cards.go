package secondary

import "context"

// CardClient defines the secondary port for the external card and
// stage-document sync. Both operations are idempotent upserts keyed by
// stable ids, so a failed publish can be retried from scratch.
type CardClient interface {
	// UpsertCard creates or updates a card.
	UpsertCard(ctx context.Context, cardID, title, body string) error

	// UpsertStageDoc creates or updates the stage document attached to
	// a card.
	UpsertStageDoc(ctx context.Context, cardID, stage, body string) error
}
