package events

import (
	"encoding/json"

	"github.com/floroz/lelang/services/bid-service/internal/domain/bids"
)

// EventNewBid names the push event sent to watchers for every accepted bid.
const EventNewBid = "newBid"

// Envelope is the frame pushed over WebSocket and Redis pub/sub.
type Envelope struct {
	Event string   `json:"event"`
	Data  bids.Bid `json:"data"`
}

// NewBidEnvelope wraps bid in a newBid frame.
func NewBidEnvelope(bid bids.Bid) Envelope {
	return Envelope{Event: EventNewBid, Data: bid}
}

// Marshal encodes the envelope as JSON.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
