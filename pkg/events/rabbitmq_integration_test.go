//go:build integration

package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floroz/lelang/pkg/events"
	"github.com/floroz/lelang/pkg/testhelpers"
)

func TestRabbitMQPublisher_DeliversToBoundQueue(t *testing.T) {
	ctx := context.Background()
	broker := testhelpers.NewTestRabbitMQ(t)

	pubConn, err := amqp091.Dial(broker.URL)
	require.NoError(t, err)
	defer pubConn.Close()

	publisher, err := events.NewRabbitMQPublisher(pubConn, events.ExchangeAuctionEvents)
	require.NoError(t, err)
	defer publisher.Close()

	conn, err := amqp091.Dial(broker.URL)
	require.NoError(t, err)
	defer conn.Close()

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	q, err := ch.QueueDeclare("", false, false, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, events.RoutingKeyBidPlaced, events.ExchangeAuctionEvents, false, nil))

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	require.NoError(t, err)

	payload := []byte(`{"item_id":1,"amount":150}`)
	require.NoError(t, publisher.Publish(ctx, events.ExchangeAuctionEvents, events.RoutingKeyBidPlaced, payload))

	select {
	case msg := <-msgs:
		assert.Equal(t, payload, msg.Body)
		assert.Equal(t, events.RoutingKeyBidPlaced, msg.RoutingKey)
		assert.Equal(t, "application/json", msg.ContentType)
		assert.Equal(t, amqp091.Transient, msg.DeliveryMode)
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for message from RabbitMQ")
	}
}
