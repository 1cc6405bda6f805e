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

// ParticipantRepository handles participant reads and status updates
type ParticipantRepository struct {
	tables  model.Tables
	dialect database.Dialect
}

// NewParticipantRepository creates a new participant repository
func NewParticipantRepository(tables model.Tables, dialect database.Dialect) *ParticipantRepository {
	return &ParticipantRepository{tables: tables, dialect: dialect}
}

const participantColumns = `p.id, p.campaign_id, p.legacy_user_id, p.full_name, p.email, p.phone,
	p.province, p.district, p.ward, p.address, p.status, p.score, p.total_questions,
	p.correct_answers, p.answers, p.gift_id, p.started_at, p.completed_at, p.created_at, p.updated_at`

func (r *ParticipantRepository) selectRows() string {
	return fmt.Sprintf(`
		SELECT %s, c.name AS campaign_name, g.name AS gift_name
		FROM %s p
		LEFT JOIN %s c ON c.id = p.campaign_id
		LEFT JOIN %s g ON g.id = p.gift_id
	`, participantColumns, r.tables.Participants(), r.tables.Campaigns(), r.tables.Gifts())
}

// CreateParticipant inserts a participant
func (r *ParticipantRepository) CreateParticipant(ctx context.Context, db DBExecutor, p *model.Participant) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (campaign_id, legacy_user_id, full_name, email, phone, province, district, ward, address,
			status, score, total_questions, correct_answers, answers, gift_id, started_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.tables.Participants())

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = model.StatusStarted
	}

	id, err := insertID(ctx, db, r.dialect, query,
		p.CampaignID, p.LegacyUserID, p.FullName, p.Email, p.Phone, p.Province, p.District, p.Ward, p.Address,
		p.Status, p.Score, p.TotalQuestions, p.CorrectAnswers, p.Answers, p.GiftID, p.StartedAt, p.CompletedAt,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create participant: %w", err)
	}
	p.ID = id
	return nil
}

// GetParticipant retrieves a participant with campaign and gift names
func (r *ParticipantRepository) GetParticipant(ctx context.Context, db DBExecutor, id int64) (*model.ParticipantRow, error) {
	query := r.selectRows() + ` WHERE p.id = ?`

	var row model.ParticipantRow
	if err := db.GetContext(ctx, &row, db.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("participant %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return &row, nil
}

// LockParticipant reads a participant inside a transaction, locking its row where the dialect supports it
func (r *ParticipantRepository) LockParticipant(ctx context.Context, tx *sqlx.Tx, id int64) (*model.Participant, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s p WHERE p.id = ?%s`,
		participantColumns, r.tables.Participants(), r.dialect.LockClause())

	var p model.Participant
	if err := tx.GetContext(ctx, &p, tx.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("participant %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock participant: %w", err)
	}
	return &p, nil
}

// ListParticipants returns participants matching the filter, newest first
func (r *ParticipantRepository) ListParticipants(ctx context.Context, db DBExecutor, filter model.ParticipantFilter) ([]model.ParticipantRow, error) {
	query := r.selectRows() + ` WHERE 1 = 1`
	var args []interface{}

	if filter.CampaignID != 0 {
		query += ` AND p.campaign_id = ?`
		args = append(args, filter.CampaignID)
	}
	if filter.Status != "" {
		query += ` AND p.status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY p.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows := []model.ParticipantRow{}
	if err := db.SelectContext(ctx, &rows, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return rows, nil
}

// CountByStatus returns participant counts per status. A zero campaignID counts all campaigns.
func (r *ParticipantRepository) CountByStatus(ctx context.Context, db DBExecutor, campaignID int64) (map[model.QuizStatus]int64, error) {
	query := fmt.Sprintf(`SELECT status, COUNT(*) AS n FROM %s`, r.tables.Participants())
	var args []interface{}
	if campaignID != 0 {
		query += ` WHERE campaign_id = ?`
		args = append(args, campaignID)
	}
	query += ` GROUP BY status`

	var rows []struct {
		Status model.QuizStatus `db:"status"`
		N      int64            `db:"n"`
	}
	if err := db.SelectContext(ctx, &rows, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to count participants: %w", err)
	}

	counts := make(map[model.QuizStatus]int64, len(model.QuizStatuses))
	for _, s := range model.QuizStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.N
	}
	return counts, nil
}

// SetGift records the gift assigned to a participant. A zero giftID clears it.
func (r *ParticipantRepository) SetGift(ctx context.Context, db DBExecutor, participantID, giftID int64) error {
	query := fmt.Sprintf(`UPDATE %s SET gift_id = ?, updated_at = ? WHERE id = ?`, r.tables.Participants())

	gift := sql.NullInt64{Int64: giftID, Valid: giftID != 0}
	res, err := db.ExecContext(ctx, db.Rebind(query), gift, time.Now(), participantID)
	if err != nil {
		return fmt.Errorf("failed to set participant gift: %w", err)
	}
	if err := expectOne(res); err != nil {
		return fmt.Errorf("participant %d: %w", participantID, err)
	}
	return nil
}

// ListAwaitingGift returns ids of completed participants without a gift whose score is at least minScore
func (r *ParticipantRepository) ListAwaitingGift(ctx context.Context, db DBExecutor, minScore int) ([]int64, error) {
	query := fmt.Sprintf(`
		SELECT id FROM %s
		WHERE status = ? AND gift_id IS NULL AND score >= ?
		ORDER BY id
	`, r.tables.Participants())

	ids := []int64{}
	if err := db.SelectContext(ctx, &ids, db.Rebind(query), model.StatusCompleted, minScore); err != nil {
		return nil, fmt.Errorf("failed to list participants awaiting a gift: %w", err)
	}
	return ids, nil
}

// MarkAbandoned moves unfinished participants not updated since cutoff to abandoned
func (r *ParticipantRepository) MarkAbandoned(ctx context.Context, db DBExecutor, cutoff, now time.Time) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = ?, updated_at = ?
		WHERE status IN (?, ?) AND updated_at < ?
	`, r.tables.Participants())

	res, err := db.ExecContext(ctx, db.Rebind(query),
		model.StatusAbandoned, now, model.StatusStarted, model.StatusInProgress, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to mark abandoned participants: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
