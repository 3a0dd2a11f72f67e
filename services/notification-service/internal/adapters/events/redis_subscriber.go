package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisSubscriber records every message published on a Redis pub/sub
// channel.
type RedisSubscriber struct {
	client   *redis.Client
	channel  string
	recorder Recorder
	logger   zerolog.Logger
}

func NewRedisSubscriber(client *redis.Client, channel string, recorder Recorder, logger zerolog.Logger) *RedisSubscriber {
	return &RedisSubscriber{
		client:   client,
		channel:  channel,
		recorder: recorder,
		logger:   logger.With().Str("component", "redis_subscriber").Str("channel", channel).Logger(),
	}
}

// Run blocks until ctx is cancelled. Messages published while the
// subscription is not established are lost; pub/sub has no replay.
func (s *RedisSubscriber) Run(ctx context.Context) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	// Wait for the subscription confirmation so startup errors surface here.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}
	s.logger.Info().Msg("Waiting for messages...")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("subscription to %s closed", s.channel)
			}
			if err := s.recorder.Record(ctx, msg.Payload); err != nil {
				s.logger.Error().Err(err).Msg("Failed to record notification")
				continue
			}
			s.logger.Info().Msg("Notification received")
		}
	}
}
