package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sahilm/fuzzy"

	"github.com/kkkkikiki/quizgift/internal/database"
	"github.com/kkkkikiki/quizgift/internal/model"
	"github.com/kkkkikiki/quizgift/internal/repository"
)

// ParticipantService lists and maintains participants
type ParticipantService struct {
	db           *sqlx.DB
	participants *repository.ParticipantRepository
}

// NewParticipantService creates a new ParticipantService instance
func NewParticipantService(db *database.DB) *ParticipantService {
	return &ParticipantService{
		db:           db.Conn,
		participants: repository.NewParticipantRepository(db.Tables, db.Dialect),
	}
}

// Search lists participants matching the filter. A non-empty query ranks the
// filtered rows by fuzzy match on name, email and phone, ignoring case and
// diacritics; the filter's limit and offset then apply to the ranked result.
func (s *ParticipantService) Search(ctx context.Context, filter model.ParticipantFilter, query string) ([]model.ParticipantRow, error) {
	if query == "" {
		return s.participants.ListParticipants(ctx, s.db, filter)
	}

	page := filter
	page.Limit, page.Offset = 0, 0
	rows, err := s.participants.ListParticipants(ctx, s.db, page)
	if err != nil {
		return nil, err
	}

	source := make(participantSource, len(rows))
	for i, row := range rows {
		text := row.FullName + " " + row.Email
		if row.Phone.Valid {
			text += " " + row.Phone.String
		}
		source[i] = Fold(text)
	}

	matches := fuzzy.FindFrom(Fold(query), source)
	results := make([]model.ParticipantRow, 0, len(matches))
	for _, m := range matches {
		results = append(results, rows[m.Index])
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(results) {
			return []model.ParticipantRow{}, nil
		}
		results = results[filter.Offset:]
	}
	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

// Get returns a participant with campaign and gift names
func (s *ParticipantService) Get(ctx context.Context, id int64) (*model.ParticipantRow, error) {
	return s.participants.GetParticipant(ctx, s.db, id)
}

// CountByStatus returns participant counts per status for a campaign, or all campaigns when zero
func (s *ParticipantService) CountByStatus(ctx context.Context, campaignID int64) (map[model.QuizStatus]int64, error) {
	return s.participants.CountByStatus(ctx, s.db, campaignID)
}

// SweepAbandoned marks participants idle for longer than after as abandoned
func (s *ParticipantService) SweepAbandoned(ctx context.Context, now time.Time, after time.Duration) (int64, error) {
	return s.participants.MarkAbandoned(ctx, s.db, now.Add(-after), now)
}
