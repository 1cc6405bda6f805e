package model

import (
	"database/sql"
	"time"
)

// LegacyUser is a row of the pre-2.0 quiz_users table
type LegacyUser struct {
	ID         int64          `db:"id"`
	CampaignID sql.NullInt64  `db:"campaign_id"`
	FullName   string         `db:"full_name"`
	Email      string         `db:"email"`
	Phone      sql.NullString `db:"phone"`
	Province   sql.NullString `db:"province"`
	Address    sql.NullString `db:"address"`
	CreatedAt  time.Time      `db:"created_at"`
}

// LegacySession is a row of the pre-2.0 quiz_sessions table
type LegacySession struct {
	UserID         int64          `db:"user_id"`
	Score          int            `db:"score"`
	TotalQuestions int            `db:"total_questions"`
	CorrectAnswers int            `db:"correct_answers"`
	IsCompleted    bool           `db:"is_completed"`
	Answers        sql.NullString `db:"answers"`
	StartedAt      time.Time      `db:"started_at"`
	CompletedAt    sql.NullTime   `db:"completed_at"`
}
