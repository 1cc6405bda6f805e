package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kkkkikiki/quizgift/internal/database"
	"github.com/kkkkikiki/quizgift/internal/model"
)

// ErrNoGiftAvailable is returned when no gift with remaining inventory matches a score
var ErrNoGiftAvailable = errors.New("no eligible gift available")

// GiftRepository handles gift inventory operations
type GiftRepository struct {
	tables  model.Tables
	dialect database.Dialect
}

// NewGiftRepository creates a new gift repository
func NewGiftRepository(tables model.Tables, dialect database.Dialect) *GiftRepository {
	return &GiftRepository{tables: tables, dialect: dialect}
}

const giftColumns = `g.id, g.campaign_id, g.name, g.gift_type, g.value, g.min_score, g.max_score, g.max_quantity, g.used_count, g.created_at`

// CreateGift creates a new gift
func (r *GiftRepository) CreateGift(ctx context.Context, db DBExecutor, gift *model.Gift) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (campaign_id, name, gift_type, value, min_score, max_score, max_quantity, used_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.tables.Gifts())

	gift.CreatedAt = time.Now()
	id, err := insertID(ctx, db, r.dialect, query,
		gift.CampaignID, gift.Name, gift.GiftType, gift.Value, gift.MinScore,
		gift.MaxScore, gift.MaxQuantity, gift.UsedCount, gift.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create gift: %w", err)
	}
	gift.ID = id

	return nil
}

// GetGift retrieves a gift by ID
func (r *GiftRepository) GetGift(ctx context.Context, db DBExecutor, id int64) (*model.Gift, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s g WHERE g.id = ?`, giftColumns, r.tables.Gifts())

	var gift model.Gift
	if err := db.GetContext(ctx, &gift, db.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("gift %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get gift: %w", err)
	}
	return &gift, nil
}

// ListGifts returns gifts joined with their campaign name. A zero campaignID lists all.
func (r *GiftRepository) ListGifts(ctx context.Context, db DBExecutor, campaignID int64) ([]model.GiftRow, error) {
	query := fmt.Sprintf(`
		SELECT %s, c.name AS campaign_name
		FROM %s g
		LEFT JOIN %s c ON c.id = g.campaign_id
	`, giftColumns, r.tables.Gifts(), r.tables.Campaigns())

	var args []interface{}
	if campaignID != 0 {
		query += ` WHERE g.campaign_id = ?`
		args = append(args, campaignID)
	}
	query += ` ORDER BY g.campaign_id DESC, g.min_score DESC, g.id`

	gifts := []model.GiftRow{}
	if err := db.SelectContext(ctx, &gifts, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list gifts: %w", err)
	}
	return gifts, nil
}

// UpdateGift overwrites the editable fields of a gift. used_count is owned by
// assignment and is not touched here.
func (r *GiftRepository) UpdateGift(ctx context.Context, db DBExecutor, gift *model.Gift) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET campaign_id = ?, name = ?, gift_type = ?, value = ?, min_score = ?, max_score = ?, max_quantity = ?
		WHERE id = ?
	`, r.tables.Gifts())

	res, err := db.ExecContext(ctx, db.Rebind(query),
		gift.CampaignID, gift.Name, gift.GiftType, gift.Value, gift.MinScore,
		gift.MaxScore, gift.MaxQuantity, gift.ID)
	if err != nil {
		return fmt.Errorf("failed to update gift: %w", err)
	}
	if err := expectOne(res); err != nil {
		return fmt.Errorf("gift %d: %w", gift.ID, err)
	}
	return nil
}

// DeleteGift removes a gift row
func (r *GiftRepository) DeleteGift(ctx context.Context, db DBExecutor, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, r.tables.Gifts())

	res, err := db.ExecContext(ctx, db.Rebind(query), id)
	if err != nil {
		return fmt.Errorf("failed to delete gift: %w", err)
	}
	if err := expectOne(res); err != nil {
		return fmt.Errorf("gift %d: %w", id, err)
	}
	return nil
}

// DeleteCampaignGifts removes every gift of a campaign
func (r *GiftRepository) DeleteCampaignGifts(ctx context.Context, db DBExecutor, campaignID int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE campaign_id = ?`, r.tables.Gifts())

	if _, err := db.ExecContext(ctx, db.Rebind(query), campaignID); err != nil {
		return fmt.Errorf("failed to delete campaign gifts: %w", err)
	}
	return nil
}

// ReserveEligibleGift finds the best gift for a score and locks its row.
// The highest min_score wins, so tiered gifts go to the tier the score reached.
func (r *GiftRepository) ReserveEligibleGift(ctx context.Context, tx *sqlx.Tx, campaignID int64, score int) (int64, error) {
	query := fmt.Sprintf(`
		SELECT id
		FROM %s
		WHERE campaign_id = ?
		  AND min_score <= ?
		  AND (max_score IS NULL OR max_score >= ?)
		  AND (max_quantity IS NULL OR used_count < max_quantity)
		ORDER BY min_score DESC, id ASC
		LIMIT 1%s
	`, r.tables.Gifts(), r.dialect.LockClause())

	var giftID int64
	err := tx.GetContext(ctx, &giftID, tx.Rebind(query), campaignID, score, score)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNoGiftAvailable
		}
		return 0, fmt.Errorf("failed to reserve gift: %w", err)
	}

	return giftID, nil
}

// MarkGiftUsed increments used_count, refusing to go past max_quantity
func (r *GiftRepository) MarkGiftUsed(ctx context.Context, db DBExecutor, giftID int64) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET used_count = used_count + 1
		WHERE id = ? AND (max_quantity IS NULL OR used_count < max_quantity)
	`, r.tables.Gifts())

	res, err := db.ExecContext(ctx, db.Rebind(query), giftID)
	if err != nil {
		return fmt.Errorf("failed to mark gift as used: %w", err)
	}

	// Check if any row was actually updated
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNoGiftAvailable
	}

	return nil
}

// ReleaseGift gives one unit back to the inventory
func (r *GiftRepository) ReleaseGift(ctx context.Context, db DBExecutor, giftID int64) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET used_count = used_count - 1
		WHERE id = ? AND used_count > 0
	`, r.tables.Gifts())

	if _, err := db.ExecContext(ctx, db.Rebind(query), giftID); err != nil {
		return fmt.Errorf("failed to release gift: %w", err)
	}
	return nil
}
