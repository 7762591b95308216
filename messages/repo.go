package messages

import "context"

// Repo defines persisted message storage.
type Repo interface {
	// Create persists a new message.
	Create(ctx context.Context, msg *Message) error

	// Get retrieves a message by ID.
	Get(ctx context.Context, id string) (*Message, error)

	// UpdateAnalysis records the classifier verdict for a message.
	UpdateAnalysis(ctx context.Context, id string, analysis Analysis) error

	// Delete removes a message record. Deleting an absent record is not
	// an error.
	Delete(ctx context.Context, id string) error

	// List returns messages matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]*Message, error)
}
