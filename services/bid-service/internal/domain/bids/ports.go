package bids

import (
	"context"

	"github.com/google/uuid"
)

// BidStore defines the interface for bid persistence
type BidStore interface {
	// Create assigns an id (and placed_at when the draft has none) and
	// persists the bid. The returned bid is what was stored.
	Create(ctx context.Context, draft Draft) (*Bid, error)

	// ListAll returns every bid, newest first.
	ListAll(ctx context.Context) ([]*Bid, error)

	// ListByItem returns the bids on one item, highest amount first.
	// Equal amounts keep arrival order.
	ListByItem(ctx context.Context, itemID ItemID) ([]*Bid, error)

	// Update overwrites the non-nil patch fields and returns the result.
	// Returns ErrBidNotFound for an unknown id.
	Update(ctx context.Context, id uuid.UUID, patch Patch) (*Bid, error)

	// Delete removes a bid. Returns ErrBidNotFound for an unknown id.
	Delete(ctx context.Context, id uuid.UUID) error
}

// Broadcaster pushes an accepted bid to watchers. Publish must not block on
// slow receivers and reports its result instead of failing.
type Broadcaster interface {
	Publish(ctx context.Context, bid Bid) DeliveryOutcome
}

// Observer receives submission and delivery results, typically for metrics.
type Observer interface {
	ObserveSubmission(result string)
	ObserveDelivery(outcome DeliveryOutcome)
}
