package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	pkgdb "github.com/floroz/lelang/pkg/database"
	"github.com/floroz/lelang/services/bid-service/internal/domain/bids"
)

const bidColumns = `id, item_id, user_id, amount, placed_at`

// PostgresBidRepository implements bids.BidStore using pgx
type PostgresBidRepository struct {
	db pkgdb.DBTX
}

// NewPostgresBidRepository creates a new PostgreSQL bid repository
func NewPostgresBidRepository(db pkgdb.DBTX) *PostgresBidRepository {
	return &PostgresBidRepository{db: db}
}

// Create inserts a bid and returns the stored row. The seq column records
// arrival order and is used only to break ranking ties.
func (r *PostgresBidRepository) Create(ctx context.Context, draft bids.Draft) (*bids.Bid, error) {
	placedAt := time.Now().UTC()
	if draft.PlacedAt != nil {
		placedAt = *draft.PlacedAt
	}

	query := `
		INSERT INTO bids (id, item_id, user_id, amount, placed_at)
		VALUES ($1, $2, $3, $4::numeric, $5)
		RETURNING ` + bidColumns

	bid, err := scanBid(r.db.QueryRow(ctx, query,
		uuid.New(),
		int64(draft.ItemID),
		int64(draft.UserID),
		draft.Amount.String(),
		placedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to insert bid: %w", bids.ErrStorageUnavailable, err)
	}
	return bid, nil
}

// ListAll returns all bids, most recently placed first.
func (r *PostgresBidRepository) ListAll(ctx context.Context) ([]*bids.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		ORDER BY placed_at DESC, seq DESC
	`
	return r.list(ctx, query)
}

// ListByItem returns bids on one item by amount descending, earlier arrivals
// first among equal amounts.
func (r *PostgresBidRepository) ListByItem(ctx context.Context, itemID bids.ItemID) ([]*bids.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE item_id = $1
		ORDER BY amount DESC, seq ASC
	`
	return r.list(ctx, query, int64(itemID))
}

// Update overwrites only the fields set in patch.
func (r *PostgresBidRepository) Update(ctx context.Context, id uuid.UUID, patch bids.Patch) (*bids.Bid, error) {
	var itemID, userID *int64
	var amount *string
	if patch.ItemID != nil {
		v := int64(*patch.ItemID)
		itemID = &v
	}
	if patch.UserID != nil {
		v := int64(*patch.UserID)
		userID = &v
	}
	if patch.Amount != nil {
		v := patch.Amount.String()
		amount = &v
	}

	query := `
		UPDATE bids SET
			item_id   = COALESCE($2::bigint, item_id),
			user_id   = COALESCE($3::bigint, user_id),
			amount    = COALESCE($4::numeric, amount),
			placed_at = COALESCE($5::timestamptz, placed_at)
		WHERE id = $1
		RETURNING ` + bidColumns

	bid, err := scanBid(r.db.QueryRow(ctx, query, id, itemID, userID, amount, patch.PlacedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, bids.ErrBidNotFound
		}
		return nil, fmt.Errorf("%w: failed to update bid: %w", bids.ErrStorageUnavailable, err)
	}
	return bid, nil
}

// Delete removes a bid by id.
func (r *PostgresBidRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM bids WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete bid: %w", bids.ErrStorageUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return bids.ErrBidNotFound
	}
	return nil
}

func (r *PostgresBidRepository) list(ctx context.Context, query string, args ...any) ([]*bids.Bid, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query bids: %w", bids.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	result := make([]*bids.Bid, 0)
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan bid: %w", bids.ErrStorageUnavailable, err)
		}
		result = append(result, bid)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating bids: %w", bids.ErrStorageUnavailable, err)
	}

	return result, nil
}

func scanBid(row pgx.Row) (*bids.Bid, error) {
	var bid bids.Bid
	var itemID, userID int64
	if err := row.Scan(
		&bid.ID,
		&itemID,
		&userID,
		&bid.Amount,
		&bid.PlacedAt,
	); err != nil {
		return nil, err
	}
	bid.ItemID = bids.ItemID(itemID)
	bid.UserID = bids.UserID(userID)
	bid.PlacedAt = bid.PlacedAt.UTC()
	return &bid, nil
}
