package bids

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrBidNotFound        = errors.New("bid not found")
	ErrStorageUnavailable = errors.New("bid storage unavailable")
)

// Submission results reported to the Observer.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

const broadcastTimeout = 2 * time.Second

// Service validates, stores and broadcasts bids.
type Service struct {
	store    BidStore
	sinks    []Broadcaster
	observer Observer
	logger   zerolog.Logger
}

// NewService creates a bid service. sinks are published to in order after
// every accepted bid; observer may be nil.
func NewService(store BidStore, sinks []Broadcaster, observer Observer, logger zerolog.Logger) *Service {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Service{
		store:    store,
		sinks:    sinks,
		observer: observer,
		logger:   logger.With().Str("component", "bids").Logger(),
	}
}

// SubmitBid runs validate, persist, broadcast. A rejected submission never
// reaches the store and a failed insert is never broadcast.
func (s *Service) SubmitBid(ctx context.Context, sub Submission) (*Bid, error) {
	draft, err := Validate(sub)
	if err != nil {
		s.observer.ObserveSubmission(ResultRejected)
		return nil, err
	}

	bid, err := s.store.Create(ctx, draft)
	if err != nil {
		s.observer.ObserveSubmission(ResultFailed)
		return nil, err
	}
	s.observer.ObserveSubmission(ResultAccepted)

	s.broadcast(ctx, *bid)

	return bid, nil
}

// ListBids returns every bid, newest first.
func (s *Service) ListBids(ctx context.Context) ([]*Bid, error) {
	return s.store.ListAll(ctx)
}

// ListBidsForItem returns the ranking for one item.
func (s *Service) ListBidsForItem(ctx context.Context, itemID ItemID) ([]*Bid, error) {
	return s.store.ListByItem(ctx, itemID)
}

// CorrectBid applies an administrative correction. Corrections are not
// broadcast.
func (s *Service) CorrectBid(ctx context.Context, id uuid.UUID, patch Patch) (*Bid, error) {
	bid, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("bid_id", id.String()).Msg("bid corrected")
	return bid, nil
}

// RemoveBid deletes a bid.
func (s *Service) RemoveBid(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("bid_id", id.String()).Msg("bid removed")
	return nil
}

// broadcast ignores request cancellation and is bounded by broadcastTimeout.
func (s *Service) broadcast(ctx context.Context, bid Bid) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), broadcastTimeout)
	defer cancel()

	log := zerolog.Ctx(ctx)
	if log.GetLevel() == zerolog.Disabled {
		log = &s.logger
	}

	for _, sink := range s.sinks {
		outcome := sink.Publish(ctx, bid)
		s.observer.ObserveDelivery(outcome)

		event := log.Debug()
		if outcome.Status == DeliveryFailed || outcome.Status == DeliveryDropped || outcome.Status == DeliveryPartial {
			event = log.Warn()
		}
		event.
			Str("bid_id", bid.ID.String()).
			Str("sink", outcome.Sink).
			Str("status", string(outcome.Status)).
			Int("delivered", outcome.Delivered).
			Int("dropped", outcome.Dropped).
			AnErr("delivery_error", outcome.Err).
			Msg("bid broadcast")
	}
}

type nopObserver struct{}

func (nopObserver) ObserveSubmission(string)         {}
func (nopObserver) ObserveDelivery(DeliveryOutcome) {}
