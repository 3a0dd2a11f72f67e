package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

var (
	ErrEmptyPayload       = errors.New("empty notification payload")
	ErrHistoryUnavailable = errors.New("notification history unavailable")
)

// DefaultHistoryLimit is how many notifications are kept when no limit is
// configured.
const DefaultHistoryLimit = 50

// Service records broadcast notifications and serves the recent history.
type Service struct {
	store  HistoryStore
	limit  int
	logger zerolog.Logger
}

func NewService(store HistoryStore, limit int, logger zerolog.Logger) *Service {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Service{
		store:  store,
		limit:  limit,
		logger: logger.With().Str("component", "notifications").Logger(),
	}
}

// Limit is the history size.
func (s *Service) Limit() int {
	return s.limit
}

// Record stores one notification payload as received.
func (s *Service) Record(ctx context.Context, payload string) error {
	if strings.TrimSpace(payload) == "" {
		return ErrEmptyPayload
	}
	if err := s.store.Push(ctx, payload); err != nil {
		return fmt.Errorf("%w: %w", ErrHistoryUnavailable, err)
	}
	s.logger.Debug().Int("bytes", len(payload)).Msg("notification recorded")
	return nil
}

// Recent returns the stored notifications, newest first.
func (s *Service) Recent(ctx context.Context) ([]string, error) {
	list, err := s.store.Recent(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHistoryUnavailable, err)
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}
