package repository

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/auction"
	"github.com/davidleathers/benefit-auction-backend/internal/domain/errors"
	"github.com/davidleathers/benefit-auction-backend/internal/domain/values"
	"github.com/davidleathers/benefit-auction-backend/internal/service/bidding"
)

// BidHistoryRepository implements bidding.BidHistoryStore. Rows are append
// only; the single permitted mutation is flipping a winning row to outbid.
type BidHistoryRepository struct {
	db *pgxpool.Pool
}

func NewBidHistoryRepository(db *pgxpool.Pool) *BidHistoryRepository {
	return &BidHistoryRepository{db: db}
}

const bidColumns = `
	b.id, b.item_id, b.bidder_id, b.amount, b.ceiling,
	b.submitted_at, b.status, b.created_at, i.currency
`

func (r *BidHistoryRepository) Append(ctx context.Context, b *auction.Bid) error {
	query := `
		INSERT INTO bids (id, item_id, bidder_id, amount, ceiling, submitted_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		b.ID, b.ItemID, b.BidderID, b.Amount, b.Ceiling,
		b.SubmittedAt, b.Status.String(), b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append bid: %w", err)
	}
	return nil
}

func (r *BidHistoryRepository) MarkOutbid(ctx context.Context, bidID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE bids SET status = 'outbid' WHERE id = $1 AND status = 'winning'`, bidID)
	if err != nil {
		return fmt.Errorf("failed to mark bid outbid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrBidNotFound
	}
	return nil
}

func (r *BidHistoryRepository) LatestWinning(ctx context.Context, itemID, bidderID uuid.UUID) (*auction.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids b
		JOIN auction_items i ON i.id = b.item_id
		WHERE b.item_id = $1 AND b.bidder_id = $2 AND b.status = 'winning'
		ORDER BY b.submitted_at DESC
		LIMIT 1
	`
	b, err := scanBid(r.db.QueryRow(ctx, query, itemID, bidderID))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load winning bid: %w", err)
	}
	return b, nil
}

func (r *BidHistoryRepository) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*auction.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids b
		JOIN auction_items i ON i.id = b.item_id
		WHERE b.item_id = $1
		ORDER BY b.submitted_at DESC
	`
	rows, err := r.db.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	defer rows.Close()

	var out []*auction.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBid(row rowScanner) (*auction.Bid, error) {
	var (
		b         auction.Bid
		amount    string
		ceiling   *string
		statusStr string
		currency  string
	)

	err := row.Scan(
		&b.ID, &b.ItemID, &b.BidderID, &amount, &ceiling,
		&b.SubmittedAt, &statusStr, &b.CreatedAt, &currency,
	)
	if err != nil {
		return nil, err
	}

	if b.Amount, err = values.NewMoneyFromString(amount, currency); err != nil {
		return nil, fmt.Errorf("invalid bid amount: %w", err)
	}
	if ceiling != nil {
		c, err := values.NewMoneyFromString(*ceiling, currency)
		if err != nil {
			return nil, fmt.Errorf("invalid bid ceiling: %w", err)
		}
		b.Ceiling = &c
	}
	b.Status = auction.BidStatusFromString(statusStr)
	return &b, nil
}

var _ bidding.BidHistoryStore = (*BidHistoryRepository)(nil)
