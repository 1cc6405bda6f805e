package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kkkkikiki/quizgift/internal/database"
	"github.com/kkkkikiki/quizgift/internal/model"
)

// legacyBatchSize keeps multi-row INSERTs well under every driver's parameter limit
const legacyBatchSize = 500

// LegacyRepository writes the pre-2.0 tables. It backs migration rehearsals.
type LegacyRepository struct {
	tables  model.Tables
	dialect database.Dialect
}

// NewLegacyRepository creates a new legacy repository
func NewLegacyRepository(tables model.Tables, dialect database.Dialect) *LegacyRepository {
	return &LegacyRepository{tables: tables, dialect: dialect}
}

// CreateLegacyCampaign inserts a campaign into the legacy campaigns table and returns its id
func (r *LegacyRepository) CreateLegacyCampaign(ctx context.Context, db DBExecutor, name string, active bool) (int64, error) {
	now := time.Now()
	query := fmt.Sprintf(`INSERT INTO %s (name, description, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		r.tables.LegacyCampaigns())

	id, err := insertID(ctx, db, r.dialect, query, name, "Seeded for migration rehearsal", boolInt(active), now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create legacy campaign: %w", err)
	}
	return id, nil
}

// CreateLegacyGift inserts a gift into the legacy gifts table
func (r *LegacyRepository) CreateLegacyGift(ctx context.Context, db DBExecutor, campaignID int64, name string, giftType model.GiftType) error {
	query := fmt.Sprintf(`INSERT INTO %s (campaign_id, name, gift_type, value, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.tables.LegacyGifts())

	if _, err := db.ExecContext(ctx, db.Rebind(query), campaignID, name, giftType, nil, time.Now()); err != nil {
		return fmt.Errorf("failed to create legacy gift: %w", err)
	}
	return nil
}

// InsertLegacyUsers inserts users in batches within an existing transaction and
// returns the new ids keyed by email. When an email repeats, the highest id wins.
func (r *LegacyRepository) InsertLegacyUsers(ctx context.Context, tx *sqlx.Tx, users []model.LegacyUser) (map[string]int64, error) {
	for i := 0; i < len(users); i += legacyBatchSize {
		end := min(i+legacyBatchSize, len(users))
		if err := r.insertUserBatch(ctx, tx, users[i:end]); err != nil {
			return nil, fmt.Errorf("failed to insert legacy user batch: %w", err)
		}
	}

	emails := make([]string, 0, len(users))
	for _, u := range users {
		emails = append(emails, u.Email)
	}
	ids := make(map[string]int64, len(users))
	for i := 0; i < len(emails); i += legacyBatchSize {
		end := min(i+legacyBatchSize, len(emails))
		query, args, err := sqlx.In(
			fmt.Sprintf(`SELECT id, email FROM %s WHERE email IN (?) ORDER BY id`, r.tables.LegacyQuizUsers()),
			emails[i:end],
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build legacy user lookup: %w", err)
		}
		var rows []struct {
			ID    int64  `db:"id"`
			Email string `db:"email"`
		}
		if err := tx.SelectContext(ctx, &rows, tx.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("failed to look up legacy users: %w", err)
		}
		for _, row := range rows {
			ids[row.Email] = row.ID
		}
	}
	return ids, nil
}

// insertUserBatch inserts a batch of users using a single query
func (r *LegacyRepository) insertUserBatch(ctx context.Context, tx *sqlx.Tx, users []model.LegacyUser) error {
	if len(users) == 0 {
		return nil
	}

	valuesClause := make([]string, len(users))
	args := make([]interface{}, 0, len(users)*7)
	for i, u := range users {
		valuesClause[i] = "(?, ?, ?, ?, ?, ?, ?)"
		args = append(args, u.CampaignID, u.FullName, u.Email, u.Phone, u.Province, u.Address, u.CreatedAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (campaign_id, full_name, email, phone, province, address, created_at)
		VALUES %s
	`, r.tables.LegacyQuizUsers(), strings.Join(valuesClause, ", "))

	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to execute batch insert: %w", err)
	}
	return nil
}

// InsertLegacySessions inserts quiz sessions in batches within an existing transaction
func (r *LegacyRepository) InsertLegacySessions(ctx context.Context, tx *sqlx.Tx, sessions []model.LegacySession) error {
	for i := 0; i < len(sessions); i += legacyBatchSize {
		end := min(i+legacyBatchSize, len(sessions))
		batch := sessions[i:end]

		valuesClause := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)*8)
		for j, s := range batch {
			valuesClause[j] = "(?, ?, ?, ?, ?, ?, ?, ?)"
			args = append(args, s.UserID, s.Score, s.TotalQuestions, s.CorrectAnswers,
				boolInt(s.IsCompleted), s.Answers, s.StartedAt, s.CompletedAt)
		}

		query := fmt.Sprintf(`
			INSERT INTO %s (user_id, score, total_questions, correct_answers, is_completed, answers, started_at, completed_at)
			VALUES %s
		`, r.tables.LegacyQuizSessions(), strings.Join(valuesClause, ", "))

		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to insert legacy session batch: %w", err)
		}
	}
	return nil
}

// CountLegacyUsers returns the number of rows in the legacy users table
func (r *LegacyRepository) CountLegacyUsers(ctx context.Context, db DBExecutor) (int64, error) {
	var n int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.tables.LegacyQuizUsers())
	if err := db.GetContext(ctx, &n, query); err != nil {
		return 0, fmt.Errorf("failed to count legacy users: %w", err)
	}
	return n, nil
}
