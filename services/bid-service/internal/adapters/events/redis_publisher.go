package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/floroz/lelang/services/bid-service/internal/domain/bids"
)

const SinkRedis = "redis"

// RedisPublisher forwards accepted bids to a Redis pub/sub channel read by the
// notification service.
type RedisPublisher struct {
	client  redis.Cmdable
	channel string
}

// NewRedisPublisher creates a publisher for channel.
func NewRedisPublisher(client redis.Cmdable, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Publish sends the newBid envelope. Delivered is the number of Redis
// subscribers that received it.
func (p *RedisPublisher) Publish(ctx context.Context, bid bids.Bid) bids.DeliveryOutcome {
	payload, err := NewBidEnvelope(bid).Marshal()
	if err != nil {
		return bids.FailedOutcome(SinkRedis, fmt.Errorf("failed to marshal bid: %w", err))
	}

	receivers, err := p.client.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return bids.FailedOutcome(SinkRedis, fmt.Errorf("failed to publish to %s: %w", p.channel, err))
	}
	return bids.OutcomeFromCounts(SinkRedis, int(receivers), 0)
}
