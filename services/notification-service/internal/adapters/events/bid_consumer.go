package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	pkgevents "github.com/floroz/lelang/pkg/events"
)

const (
	QueueNotificationBids = "notification_bids"
	eventNewBid           = "newBid"
)

var errMalformedBid = errors.New("bid.placed body is not a JSON object")

// BidConsumer records bid.placed events from the auction exchange as newBid
// notifications.
type BidConsumer struct {
	conn     *amqp.Connection
	exchange string
	recorder Recorder
	logger   zerolog.Logger
}

func NewBidConsumer(conn *amqp.Connection, exchange string, recorder Recorder, logger zerolog.Logger) *BidConsumer {
	return &BidConsumer{
		conn:     conn,
		exchange: exchange,
		recorder: recorder,
		logger:   logger.With().Str("component", "bid_consumer").Logger(),
	}
}

// Run starts the consumer loop. It returns nil when ctx is cancelled.
func (c *BidConsumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if setupErr := c.setupRabbitMQ(ch); setupErr != nil {
		return fmt.Errorf("failed to setup rabbitmq: %w", setupErr)
	}

	msgs, err := ch.Consume(
		QueueNotificationBids, // queue
		"",                    // consumer tag
		false,                 // auto-ack
		false,                 // exclusive
		false,                 // no-local
		false,                 // no-wait
		nil,                   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info().Msg("Waiting for messages...")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *BidConsumer) handle(ctx context.Context, d amqp.Delivery) {
	payload, err := NewBidNotification(d.Body)
	if err != nil {
		c.logger.Error().Err(err).Str("routing_key", d.RoutingKey).Msg("Failed to decode event")
		// A malformed body will never decode; drop it.
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.logger.Error().Err(nackErr).Msg("Failed to Nack message")
		}
		return
	}

	if err := c.recorder.Record(ctx, payload); err != nil {
		c.logger.Error().Err(err).Msg("Failed to record notification")
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.logger.Error().Err(nackErr).Msg("Failed to Nack message (requeue)")
		}
		return
	}

	if ackErr := d.Ack(false); ackErr != nil {
		c.logger.Error().Err(ackErr).Msg("Failed to Ack message")
	}
}

func (c *BidConsumer) setupRabbitMQ(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		c.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return err
	}

	q, err := ch.QueueDeclare(
		QueueNotificationBids, // name
		true,                  // durable
		false,                 // delete when unused
		false,                 // exclusive
		false,                 // no-wait
		nil,                   // args
	)
	if err != nil {
		return err
	}

	return ch.QueueBind(
		q.Name,                        // queue name
		pkgevents.RoutingKeyBidPlaced, // routing key
		c.exchange,                    // exchange
		false,
		nil,
	)
}

// NewBidNotification wraps a bid.placed body in the same newBid envelope the
// bid service publishes on Redis, so history entries look alike whatever the
// source.
func NewBidNotification(body []byte) (string, error) {
	var bid map[string]json.RawMessage
	if err := json.Unmarshal(body, &bid); err != nil || bid == nil {
		return "", errMalformedBid
	}
	out, err := json.Marshal(struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}{Event: eventNewBid, Data: body})
	if err != nil {
		return "", fmt.Errorf("failed to encode notification: %w", err)
	}
	return string(out), nil
}
