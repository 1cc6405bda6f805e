package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kkkkikiki/quizgift/internal/database"
	"github.com/kkkkikiki/quizgift/internal/model"
)

// CampaignRepository handles campaign data operations
type CampaignRepository struct {
	tables  model.Tables
	dialect database.Dialect
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(tables model.Tables, dialect database.Dialect) *CampaignRepository {
	return &CampaignRepository{tables: tables, dialect: dialect}
}

const campaignColumns = `id, name, slug, description, is_active, start_date, end_date, created_at, updated_at`

// CreateCampaign creates a new campaign
func (r *CampaignRepository) CreateCampaign(ctx context.Context, db DBExecutor, campaign *model.Campaign) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, slug, description, is_active, start_date, end_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.tables.Campaigns())

	now := time.Now()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	id, err := insertID(ctx, db, r.dialect, query,
		campaign.Name, campaign.Slug, campaign.Description, boolInt(campaign.IsActive),
		campaign.StartDate, campaign.EndDate, campaign.CreatedAt, campaign.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	campaign.ID = id

	return nil
}

// GetCampaign retrieves a campaign by ID
func (r *CampaignRepository) GetCampaign(ctx context.Context, db DBExecutor, id int64) (*model.Campaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, campaignColumns, r.tables.Campaigns())

	var campaign model.Campaign
	err := db.GetContext(ctx, &campaign, db.Rebind(query), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("campaign %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return &campaign, nil
}

// ListCampaigns returns every campaign, newest first
func (r *CampaignRepository) ListCampaigns(ctx context.Context, db DBExecutor) ([]model.Campaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY id DESC`, campaignColumns, r.tables.Campaigns())

	campaigns := []model.Campaign{}
	if err := db.SelectContext(ctx, &campaigns, query); err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

// UpdateCampaign overwrites the editable fields of a campaign
func (r *CampaignRepository) UpdateCampaign(ctx context.Context, db DBExecutor, campaign *model.Campaign) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = ?, slug = ?, description = ?, is_active = ?, start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ?
	`, r.tables.Campaigns())

	campaign.UpdatedAt = time.Now()
	res, err := db.ExecContext(ctx, db.Rebind(query),
		campaign.Name, campaign.Slug, campaign.Description, boolInt(campaign.IsActive),
		campaign.StartDate, campaign.EndDate, campaign.UpdatedAt, campaign.ID)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	if err := expectOne(res); err != nil {
		return fmt.Errorf("campaign %d: %w", campaign.ID, err)
	}
	return nil
}

// DeleteCampaign removes a campaign row
func (r *CampaignRepository) DeleteCampaign(ctx context.Context, db DBExecutor, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, r.tables.Campaigns())

	res, err := db.ExecContext(ctx, db.Rebind(query), id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	if err := expectOne(res); err != nil {
		return fmt.Errorf("campaign %d: %w", id, err)
	}
	return nil
}

// ListCampaignStats returns every campaign with participant and gift aggregates
func (r *CampaignRepository) ListCampaignStats(ctx context.Context, db DBExecutor) ([]model.CampaignStats, error) {
	query := fmt.Sprintf(`
		SELECT c.id, c.name, c.slug, c.description, c.is_active, c.start_date, c.end_date, c.created_at, c.updated_at,
		       COALESCE(p.participants, 0) AS participants,
		       COALESCE(p.completed, 0) AS completed,
		       COALESCE(p.in_progress, 0) AS in_progress,
		       COALESCE(p.abandoned, 0) AS abandoned,
		       COALESCE(g.gifts, 0) AS gifts,
		       COALESCE(g.gifts_used, 0) AS gifts_used
		FROM %s c
		LEFT JOIN (
			SELECT campaign_id,
			       COUNT(*) AS participants,
			       SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) AS completed,
			       SUM(CASE WHEN status = 'in_progress' THEN 1 ELSE 0 END) AS in_progress,
			       SUM(CASE WHEN status = 'abandoned' THEN 1 ELSE 0 END) AS abandoned
			FROM %s
			GROUP BY campaign_id
		) p ON p.campaign_id = c.id
		LEFT JOIN (
			SELECT campaign_id, COUNT(*) AS gifts, SUM(used_count) AS gifts_used
			FROM %s
			GROUP BY campaign_id
		) g ON g.campaign_id = c.id
		ORDER BY c.id DESC
	`, r.tables.Campaigns(), r.tables.Participants(), r.tables.Gifts())

	stats := []model.CampaignStats{}
	if err := db.SelectContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to list campaign stats: %w", err)
	}
	return stats, nil
}

// SyncActiveByDate flips is_active for dated campaigns so that it matches
// whether now falls inside their range. Campaigns without any date are left
// under manual control. Returns the number of campaigns changed.
func (r *CampaignRepository) SyncActiveByDate(ctx context.Context, db DBExecutor, now time.Time) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_active = CASE
				WHEN (start_date IS NULL OR start_date <= ?) AND (end_date IS NULL OR end_date >= ?) THEN 1
				ELSE 0
			END,
			updated_at = ?
		WHERE (start_date IS NOT NULL OR end_date IS NOT NULL)
		  AND is_active <> CASE
				WHEN (start_date IS NULL OR start_date <= ?) AND (end_date IS NULL OR end_date >= ?) THEN 1
				ELSE 0
			END
	`, r.tables.Campaigns())

	res, err := db.ExecContext(ctx, db.Rebind(query), now, now, now, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sync campaign activity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
