package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kkkkikiki/quizgift/internal/database"
	"github.com/kkkkikiki/quizgift/internal/metrics"
	"github.com/kkkkikiki/quizgift/internal/model"
	"github.com/kkkkikiki/quizgift/internal/repository"
)

var (
	// ErrNotCompleted is returned when assigning a gift to a participant who has not finished the quiz
	ErrNotCompleted = errors.New("participant has not completed the quiz")
	// ErrAlreadyAssigned is returned when the participant already holds a gift
	ErrAlreadyAssigned = errors.New("participant already has a gift")
)

// GiftInput carries the editable fields of a gift. Nil MaxScore means no
// upper bound; nil MaxQuantity means unlimited stock.
type GiftInput struct {
	CampaignID  int64
	Name        string
	GiftType    model.GiftType
	Value       string
	MinScore    int
	MaxScore    *int
	MaxQuantity *int64
}

func (in *GiftInput) validate() error {
	if in.CampaignID <= 0 {
		return fmt.Errorf("%w: campaign is required", ErrInvalidGift)
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidGift)
	}
	if !in.GiftType.Valid() {
		return fmt.Errorf("%w: unknown gift type %q", ErrInvalidGift, in.GiftType)
	}
	if in.MinScore < 0 {
		return fmt.Errorf("%w: minimum score cannot be negative", ErrInvalidGift)
	}
	if in.MaxScore != nil && *in.MaxScore < in.MinScore {
		return fmt.Errorf("%w: maximum score is below minimum score", ErrInvalidGift)
	}
	if in.MaxQuantity != nil && *in.MaxQuantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", ErrInvalidGift)
	}
	return nil
}

func (in *GiftInput) apply(g *model.Gift) {
	g.CampaignID = in.CampaignID
	g.Name = strings.TrimSpace(in.Name)
	g.GiftType = in.GiftType
	g.Value = nullString(strings.TrimSpace(in.Value))
	g.MinScore = in.MinScore
	g.MaxScore = sql.NullInt64{}
	if in.MaxScore != nil {
		g.MaxScore = sql.NullInt64{Int64: int64(*in.MaxScore), Valid: true}
	}
	g.MaxQuantity = sql.NullInt64{}
	if in.MaxQuantity != nil {
		g.MaxQuantity = sql.NullInt64{Int64: *in.MaxQuantity, Valid: true}
	}
}

// GiftService manages gifts and assigns them to participants
type GiftService struct {
	db           *sqlx.DB
	campaigns    *repository.CampaignRepository
	gifts        *repository.GiftRepository
	participants *repository.ParticipantRepository
}

// NewGiftService creates a new GiftService instance
func NewGiftService(db *database.DB) *GiftService {
	return &GiftService{
		db:           db.Conn,
		campaigns:    repository.NewCampaignRepository(db.Tables, db.Dialect),
		gifts:        repository.NewGiftRepository(db.Tables, db.Dialect),
		participants: repository.NewParticipantRepository(db.Tables, db.Dialect),
	}
}

func (s *GiftService) checkCampaign(ctx context.Context, id int64) error {
	if _, err := s.campaigns.GetCampaign(ctx, s.db, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: campaign %d does not exist", ErrInvalidGift, id)
		}
		return err
	}
	return nil
}

// Create validates and stores a new gift
func (s *GiftService) Create(ctx context.Context, in GiftInput) (*model.Gift, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkCampaign(ctx, in.CampaignID); err != nil {
		return nil, err
	}
	gift := &model.Gift{}
	in.apply(gift)

	if err := s.gifts.CreateGift(ctx, s.db, gift); err != nil {
		return nil, err
	}
	return gift, nil
}

// Update overwrites the editable fields of a gift
func (s *GiftService) Update(ctx context.Context, id int64, in GiftInput) (*model.Gift, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkCampaign(ctx, in.CampaignID); err != nil {
		return nil, err
	}
	gift, err := s.gifts.GetGift(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	in.apply(gift)

	if err := s.gifts.UpdateGift(ctx, s.db, gift); err != nil {
		return nil, err
	}
	return gift, nil
}

// Get returns a gift by id
func (s *GiftService) Get(ctx context.Context, id int64) (*model.Gift, error) {
	return s.gifts.GetGift(ctx, s.db, id)
}

// List returns gifts of a campaign, or of every campaign when campaignID is zero
func (s *GiftService) List(ctx context.Context, campaignID int64) ([]model.GiftRow, error) {
	return s.gifts.ListGifts(ctx, s.db, campaignID)
}

// Delete removes a gift
func (s *GiftService) Delete(ctx context.Context, id int64) error {
	return s.gifts.DeleteGift(ctx, s.db, id)
}

// AssignGift gives a completed participant the best eligible gift that still has stock
func (s *GiftService) AssignGift(ctx context.Context, participantID int64) (*model.Gift, error) {
	// Start timing for metrics
	start := time.Now()
	result := "failure"

	// Defer metric recording to ensure it's always called
	defer func() {
		metrics.RecordGiftAssignDuration(result, time.Since(start).Seconds())
	}()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	participant, err := s.participants.LockParticipant(ctx, tx, participantID)
	if err != nil {
		return nil, err
	}
	if participant.Status != model.StatusCompleted {
		return nil, ErrNotCompleted
	}
	if participant.GiftID.Valid {
		return nil, ErrAlreadyAssigned
	}

	// Reserve the best eligible gift (row locked until commit)
	giftID, err := s.gifts.ReserveEligibleGift(ctx, tx, participant.CampaignID, participant.Score)
	if err != nil {
		if errors.Is(err, repository.ErrNoGiftAvailable) {
			result = "none"
		}
		return nil, err
	}

	if err := s.gifts.MarkGiftUsed(ctx, tx, giftID); err != nil {
		return nil, err
	}
	if err := s.participants.SetGift(ctx, tx, participant.ID, giftID); err != nil {
		return nil, err
	}

	// Commit DB transaction - this guarantees consistency
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	result = "success"

	return s.gifts.GetGift(ctx, s.db, giftID)
}

// AutoAssign tries AssignGift for every completed participant without a gift
// scoring at least minScore. Participants no gift fits are left for a later run.
func (s *GiftService) AutoAssign(ctx context.Context, minScore int) (int, error) {
	ids, err := s.participants.ListAwaitingGift(ctx, s.db, minScore)
	if err != nil {
		return 0, err
	}

	assigned := 0
	for _, id := range ids {
		_, err := s.AssignGift(ctx, id)
		switch {
		case err == nil:
			assigned++
		case errors.Is(err, repository.ErrNoGiftAvailable),
			errors.Is(err, ErrAlreadyAssigned),
			errors.Is(err, ErrNotCompleted):
		default:
			return assigned, fmt.Errorf("participant %d: %w", id, err)
		}
	}
	return assigned, nil
}

// UnassignGift takes a gift back from a participant and returns it to stock
func (s *GiftService) UnassignGift(ctx context.Context, participantID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	participant, err := s.participants.LockParticipant(ctx, tx, participantID)
	if err != nil {
		return err
	}
	if !participant.GiftID.Valid {
		return nil
	}

	if err := s.gifts.ReleaseGift(ctx, tx, participant.GiftID.Int64); err != nil {
		return err
	}
	if err := s.participants.SetGift(ctx, tx, participant.ID, 0); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
