// Package repository implements the engine's persistence ports on PostgreSQL.
package repository

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/auction"
	"github.com/davidleathers/benefit-auction-backend/internal/domain/errors"
	"github.com/davidleathers/benefit-auction-backend/internal/domain/values"
	"github.com/davidleathers/benefit-auction-backend/internal/service/bidding"
)

// ItemRepository implements bidding.ItemStore with optimistic locking on the
// version column.
type ItemRepository struct {
	db *pgxpool.Pool
}

func NewItemRepository(db *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `
	id, title, currency, starting_bid, buy_now_price,
	opens_at, closes_at,
	anti_sniping_window_ms, max_extensions, extensions, increment_rules,
	current_bid, current_winner_id, current_winner_ceiling, current_winner_ceiling_set_at,
	status, version, created_at, updated_at
`

func (r *ItemRepository) Create(ctx context.Context, item *auction.Item) error {
	rulesJSON, err := marshalRules(item.IncrementRules)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO auction_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err = r.db.Exec(ctx, query,
		item.ID, item.Title, item.Currency, item.StartingBid, item.BuyNowPrice,
		item.OpensAt, item.ClosesAt,
		item.AntiSnipingWindow.Milliseconds(), item.MaxExtensions, item.Extensions, rulesJSON,
		item.CurrentBid, item.CurrentWinnerID, item.CurrentWinnerCeiling, nullableTime(item.CurrentWinnerCeilingSetAt),
		item.Status.String(), item.Version, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

func (r *ItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM auction_items WHERE id = $1`
	row := r.db.QueryRow(ctx, query, id)

	item, err := scanItem(row)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// Save persists the item only when the stored version still matches
// expectedVersion. A lost race surfaces as VERSION_CONFLICT so the service
// layer can retry from a fresh read.
func (r *ItemRepository) Save(ctx context.Context, item *auction.Item, expectedVersion int64) error {
	rulesJSON, err := marshalRules(item.IncrementRules)
	if err != nil {
		return err
	}

	query := `
		UPDATE auction_items SET
			title = $2, buy_now_price = $3,
			opens_at = $4, closes_at = $5,
			anti_sniping_window_ms = $6, max_extensions = $7, extensions = $8, increment_rules = $9,
			current_bid = $10, current_winner_id = $11,
			current_winner_ceiling = $12, current_winner_ceiling_set_at = $13,
			status = $14, version = $15, updated_at = now()
		WHERE id = $1 AND version = $16
	`
	tag, err := r.db.Exec(ctx, query,
		item.ID, item.Title, item.BuyNowPrice,
		item.OpensAt, item.ClosesAt,
		item.AntiSnipingWindow.Milliseconds(), item.MaxExtensions, item.Extensions, rulesJSON,
		item.CurrentBid, item.CurrentWinnerID,
		item.CurrentWinnerCeiling, nullableTime(item.CurrentWinnerCeilingSetAt),
		item.Status.String(), expectedVersion+1, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM auction_items WHERE id = $1)`, item.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check item existence: %w", err)
		}
		if !exists {
			return errors.ErrItemNotFound
		}
		return errors.NewVersionConflictError()
	}

	item.Version = expectedVersion + 1
	return nil
}

func (r *ItemRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM auction_items
		WHERE status = 'open' AND closes_at <= $1
		ORDER BY closes_at
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired items: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan item id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*auction.Item, error) {
	var (
		item           auction.Item
		statusStr      string
		windowMS       int64
		rulesJSON      []byte
		startingBid    string
		currentBid     string
		ceiling        *string
		buyNow         *string
		ceilingSetAt   *time.Time
	)

	err := row.Scan(
		&item.ID, &item.Title, &item.Currency, &startingBid, &buyNow,
		&item.OpensAt, &item.ClosesAt,
		&windowMS, &item.MaxExtensions, &item.Extensions, &rulesJSON,
		&currentBid, &item.CurrentWinnerID, &ceiling, &ceilingSetAt,
		&statusStr, &item.Version, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.AntiSnipingWindow = time.Duration(windowMS) * time.Millisecond
	if item.Status, err = auction.StatusFromString(statusStr); err != nil {
		return nil, err
	}
	if item.StartingBid, err = values.NewMoneyFromString(startingBid, item.Currency); err != nil {
		return nil, fmt.Errorf("invalid starting bid: %w", err)
	}
	if item.CurrentBid, err = values.NewMoneyFromString(currentBid, item.Currency); err != nil {
		return nil, fmt.Errorf("invalid current bid: %w", err)
	}
	if ceiling != nil {
		if item.CurrentWinnerCeiling, err = values.NewMoneyFromString(*ceiling, item.Currency); err != nil {
			return nil, fmt.Errorf("invalid winner ceiling: %w", err)
		}
	}
	if buyNow != nil {
		price, err := values.NewMoneyFromString(*buyNow, item.Currency)
		if err != nil {
			return nil, fmt.Errorf("invalid buy-now price: %w", err)
		}
		item.BuyNowPrice = &price
	}
	if ceilingSetAt != nil {
		item.CurrentWinnerCeilingSetAt = *ceilingSetAt
	}
	if len(rulesJSON) > 0 {
		if err := json.Unmarshal(rulesJSON, &item.IncrementRules); err != nil {
			return nil, fmt.Errorf("invalid increment rules: %w", err)
		}
	}
	return &item, nil
}

func marshalRules(rules []auction.BidIncrementRule) ([]byte, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal increment rules: %w", err)
	}
	return data, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var _ bidding.ItemStore = (*ItemRepository)(nil)
