package store

import (
	"context"
	"errors"

	"alumni-chat/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// Patchable field names accepted by Patch. Each named field is replaced
// wholesale; the store resolves concurrent writes last-write-wins.
const (
	FieldText      = "text"
	FieldEdited    = "edited"
	FieldEditedAt  = "edited_at"
	FieldReactions = "reactions"
)

// PatchFields maps patchable field names to their replacement values.
type PatchFields map[string]any

// Writer submits mutations to the persistent store. Writes are
// fire-and-forget from the core's perspective: a nil return means the write
// was accepted, and its effect is observed only through the next snapshot.
type Writer interface {
	Append(ctx context.Context, channelID string, msg models.Message) error
	Patch(ctx context.Context, messageID string, fields PatchFields) error
	Remove(ctx context.Context, messageID string) error
}

// Subscription is a live feed of channel snapshots. Every change to the
// channel re-delivers the complete, currently-ordered message list; the
// consumer replaces its mirror wholesale on each one. Err carries at most
// one error, and only for conditions fatal to the whole subscription.
type Subscription interface {
	Snapshots() <-chan []models.Message
	Err() <-chan error
	Unsubscribe()
}

// Store is the realtime document store the chat core builds on.
type Store interface {
	Writer
	Subscribe(ctx context.Context, channelID string) (Subscription, error)
}
