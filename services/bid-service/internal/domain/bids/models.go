package bids

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemID references an auction item owned by another service. It is never
// dereferenced here.
type ItemID int64

// UserID references a bidder in the user service. It is never dereferenced here.
type UserID int64

// Bid is an accepted offer on an item.
type Bid struct {
	ID       uuid.UUID       `json:"id"`
	ItemID   ItemID          `json:"item_id"`
	UserID   UserID          `json:"user_id"`
	Amount   decimal.Decimal `json:"amount"`
	PlacedAt time.Time       `json:"placed_at"`
}

// MarshalJSON writes amount as a JSON number rather than decimal's default
// quoted string.
func (b Bid) MarshalJSON() ([]byte, error) {
	type plain Bid
	return json.Marshal(struct {
		plain
		Amount json.Number `json:"amount"`
	}{plain: plain(b), Amount: json.Number(b.Amount.String())})
}

// Draft is a validated submission that has not been stored yet.
type Draft struct {
	ItemID ItemID
	UserID UserID
	Amount decimal.Decimal
	// PlacedAt is optional; the store stamps the current time when nil.
	PlacedAt *time.Time
}

// Patch carries the fields an administrative correction may overwrite.
// Nil fields are left untouched.
type Patch struct {
	ItemID   *ItemID
	UserID   *UserID
	Amount   *decimal.Decimal
	PlacedAt *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.ItemID == nil && p.UserID == nil && p.Amount == nil && p.PlacedAt == nil
}

// DeliveryStatus classifies what happened when a bid was handed to a sink.
type DeliveryStatus string

const (
	DeliveryDelivered     DeliveryStatus = "delivered"
	DeliveryPartial       DeliveryStatus = "partial"
	DeliveryDropped       DeliveryStatus = "dropped"
	DeliveryNoSubscribers DeliveryStatus = "no_subscribers"
	DeliveryFailed        DeliveryStatus = "failed"
)

// DeliveryOutcome is the best-effort result of one broadcast sink. It never
// turns into a request error.
type DeliveryOutcome struct {
	Sink      string
	Status    DeliveryStatus
	Delivered int
	Dropped   int
	Err       error
}

// OutcomeFromCounts derives the status for a fan-out to delivered+dropped
// receivers.
func OutcomeFromCounts(sink string, delivered, dropped int) DeliveryOutcome {
	out := DeliveryOutcome{Sink: sink, Delivered: delivered, Dropped: dropped}
	switch {
	case delivered == 0 && dropped == 0:
		out.Status = DeliveryNoSubscribers
	case dropped == 0:
		out.Status = DeliveryDelivered
	case delivered == 0:
		out.Status = DeliveryDropped
	default:
		out.Status = DeliveryPartial
	}
	return out
}

// FailedOutcome reports a sink that could not attempt delivery at all.
func FailedOutcome(sink string, err error) DeliveryOutcome {
	return DeliveryOutcome{Sink: sink, Status: DeliveryFailed, Err: err}
}
