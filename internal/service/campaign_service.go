package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/jmoiron/sqlx"

	"github.com/kkkkikiki/quizgift/internal/database"
	"github.com/kkkkikiki/quizgift/internal/model"
	"github.com/kkkkikiki/quizgift/internal/repository"
)

var (
	// ErrInvalidCampaign is returned when campaign input fails validation
	ErrInvalidCampaign = errors.New("invalid campaign")
	// ErrInvalidGift is returned when gift input fails validation
	ErrInvalidGift = errors.New("invalid gift")
)

// CampaignInput carries the editable fields of a campaign
type CampaignInput struct {
	Name        string
	Slug        string
	Description string
	IsActive    bool
	StartDate   *time.Time
	EndDate     *time.Time
}

func (in *CampaignInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCampaign)
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return fmt.Errorf("%w: end date is before start date", ErrInvalidCampaign)
	}
	if in.Slug != "" && !slug.IsSlug(in.Slug) {
		return fmt.Errorf("%w: slug %q may only contain lowercase letters, digits and dashes", ErrInvalidCampaign, in.Slug)
	}
	return nil
}

func (in *CampaignInput) apply(c *model.Campaign) {
	c.Name = strings.TrimSpace(in.Name)
	s := in.Slug
	if s == "" {
		s = slug.Make(c.Name)
	}
	c.Slug = nullString(s)
	c.Description = nullString(strings.TrimSpace(in.Description))
	c.IsActive = in.IsActive
	c.StartDate = nullTime(in.StartDate)
	c.EndDate = nullTime(in.EndDate)
}

// CampaignService manages campaigns
type CampaignService struct {
	db        *sqlx.DB
	campaigns *repository.CampaignRepository
	gifts     *repository.GiftRepository
}

// NewCampaignService creates a new CampaignService instance
func NewCampaignService(db *database.DB) *CampaignService {
	return &CampaignService{
		db:        db.Conn,
		campaigns: repository.NewCampaignRepository(db.Tables, db.Dialect),
		gifts:     repository.NewGiftRepository(db.Tables, db.Dialect),
	}
}

// Create validates and stores a new campaign. An empty slug is derived from the name.
func (s *CampaignService) Create(ctx context.Context, in CampaignInput) (*model.Campaign, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	campaign := &model.Campaign{}
	in.apply(campaign)

	if err := s.campaigns.CreateCampaign(ctx, s.db, campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

// Update overwrites the editable fields of an existing campaign
func (s *CampaignService) Update(ctx context.Context, id int64, in CampaignInput) (*model.Campaign, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	campaign, err := s.campaigns.GetCampaign(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	in.apply(campaign)

	if err := s.campaigns.UpdateCampaign(ctx, s.db, campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

// Get returns a campaign by id
func (s *CampaignService) Get(ctx context.Context, id int64) (*model.Campaign, error) {
	return s.campaigns.GetCampaign(ctx, s.db, id)
}

// List returns every campaign, newest first
func (s *CampaignService) List(ctx context.Context) ([]model.Campaign, error) {
	return s.campaigns.ListCampaigns(ctx, s.db)
}

// Stats returns every campaign with its participant and gift aggregates
func (s *CampaignService) Stats(ctx context.Context) ([]model.CampaignStats, error) {
	return s.campaigns.ListCampaignStats(ctx, s.db)
}

// Delete removes a campaign together with its gifts
func (s *CampaignService) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.gifts.DeleteCampaignGifts(ctx, tx, id); err != nil {
		return err
	}
	if err := s.campaigns.DeleteCampaign(ctx, tx, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SyncActive aligns is_active of dated campaigns with now
func (s *CampaignService) SyncActive(ctx context.Context, now time.Time) (int64, error) {
	return s.campaigns.SyncActiveByDate(ctx, s.db, now)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
