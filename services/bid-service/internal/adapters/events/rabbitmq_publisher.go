package events

import (
	"context"
	"encoding/json"
	"fmt"

	pkgevents "github.com/floroz/lelang/pkg/events"
	"github.com/floroz/lelang/services/bid-service/internal/domain/bids"
)

const SinkRabbitMQ = "rabbitmq"

// BidPlacedPublisher emits bid.placed to the auction events exchange.
type BidPlacedPublisher struct {
	publisher pkgevents.EventPublisher
	exchange  string
}

// NewBidPlacedPublisher creates a publisher on exchange.
func NewBidPlacedPublisher(publisher pkgevents.EventPublisher, exchange string) *BidPlacedPublisher {
	return &BidPlacedPublisher{publisher: publisher, exchange: exchange}
}

// Publish hands the bid to the broker. A broker ack is not awaited, so
// Delivered counts the hand-off only.
func (p *BidPlacedPublisher) Publish(ctx context.Context, bid bids.Bid) bids.DeliveryOutcome {
	body, err := json.Marshal(bid)
	if err != nil {
		return bids.FailedOutcome(SinkRabbitMQ, fmt.Errorf("failed to marshal bid: %w", err))
	}

	if err := p.publisher.Publish(ctx, p.exchange, pkgevents.RoutingKeyBidPlaced, body); err != nil {
		return bids.FailedOutcome(SinkRabbitMQ, fmt.Errorf("failed to publish %s: %w", pkgevents.RoutingKeyBidPlaced, err))
	}
	return bids.OutcomeFromCounts(SinkRabbitMQ, 1, 0)
}
