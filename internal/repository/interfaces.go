package repository

import (
	"context"
	"errors"
	"time"

	"abc-inventory-monitor/internal/model"
)

// ErrNotFound indicates a client or item is absent from the store. Stale
// references are expected during reconciliation and callers tolerate this
// error silently rather than surfacing it.
var ErrNotFound = errors.New("not found")

// ClientStore defines client data access methods.
type ClientStore interface {
	// ClientIDs returns every known client id.
	ClientIDs(ctx context.Context) ([]string, error)

	// GetClient loads a client with its phone numbers and item
	// associations. Returns ErrNotFound if the client does not exist.
	GetClient(ctx context.Context, id string) (*model.Client, error)

	// AddClient creates a client with default preferences. Adding an
	// existing client is a no-op.
	AddClient(ctx context.Context, id, email string, phoneNumbers []string) error

	// SaveClient persists the client's preference fields and stamps
	// LastUpdated.
	SaveClient(ctx context.Context, c *model.Client) error

	// DeleteClient removes a client and its associations.
	DeleteClient(ctx context.Context, id string) error

	// SetPhoneNumbers replaces the client's phone numbers.
	SetPhoneNumbers(ctx context.Context, id string, numbers []string) error

	// IncrementUpdatesSent bumps the client's sent counter by n.
	IncrementUpdatesSent(ctx context.Context, id string, n int) error

	// AddTrackAssociation creates or updates a client-item association
	// with the given tracking flag.
	AddTrackAssociation(ctx context.Context, clientID, code string, tracking bool) error

	// DeleteTrackAssociation removes a client-item association.
	DeleteTrackAssociation(ctx context.Context, clientID, code string) error
}

// ItemStore defines persisted tracked-item access methods.
type ItemStore interface {
	// GetItem returns the persisted state for an item code.
	// Returns ErrNotFound for unseen codes.
	GetItem(ctx context.Context, code string) (*model.TrackedItem, error)

	// UpsertItem creates or refreshes an item's feed metadata and
	// availability. Reports whether the code was absent before this call.
	UpsertItem(ctx context.Context, row model.InventoryRow) (*model.TrackedItem, bool, error)

	// SetAvailability overwrites the stored availability for a code.
	// Returns ErrNotFound for unseen codes.
	SetAvailability(ctx context.Context, code string, available int) error

	// SetOutOfStockSince sets or clears the out-of-stock transition
	// timestamp for a code.
	SetOutOfStockSince(ctx context.Context, code string, since *time.Time) error
}

// Store combines client and item access over one backing database.
type Store interface {
	ClientStore
	ItemStore

	// Close closes the underlying connection.
	Close() error
}
