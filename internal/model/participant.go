package model

import (
	"database/sql"
	"time"
)

// QuizStatus is the progress of a participant through a campaign's quiz
type QuizStatus string

const (
	StatusStarted    QuizStatus = "started"
	StatusInProgress QuizStatus = "in_progress"
	StatusCompleted  QuizStatus = "completed"
	StatusAbandoned  QuizStatus = "abandoned"
)

// QuizStatuses lists every status in display order
var QuizStatuses = []QuizStatus{StatusStarted, StatusInProgress, StatusCompleted, StatusAbandoned}

// Valid reports whether s is one of the known statuses
func (s QuizStatus) Valid() bool {
	for _, v := range QuizStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Participant represents a person attempting a campaign's quiz
type Participant struct {
	ID             int64          `db:"id" json:"id"`
	CampaignID     int64          `db:"campaign_id" json:"campaign_id"`
	LegacyUserID   sql.NullInt64  `db:"legacy_user_id" json:"legacy_user_id"`
	FullName       string         `db:"full_name" json:"full_name"`
	Email          string         `db:"email" json:"email"`
	Phone          sql.NullString `db:"phone" json:"phone"`
	Province       sql.NullString `db:"province" json:"province"`
	District       sql.NullString `db:"district" json:"district"`
	Ward           sql.NullString `db:"ward" json:"ward"`
	Address        sql.NullString `db:"address" json:"address"`
	Status         QuizStatus     `db:"status" json:"status"`
	Score          int            `db:"score" json:"score"`
	TotalQuestions int            `db:"total_questions" json:"total_questions"`
	CorrectAnswers int            `db:"correct_answers" json:"correct_answers"`
	Answers        sql.NullString `db:"answers" json:"answers"`
	GiftID         sql.NullInt64  `db:"gift_id" json:"gift_id"`
	StartedAt      sql.NullTime   `db:"started_at" json:"started_at"`
	CompletedAt    sql.NullTime   `db:"completed_at" json:"completed_at"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// ParticipantRow is a participant joined with campaign and gift names for list views
type ParticipantRow struct {
	Participant
	CampaignName sql.NullString `db:"campaign_name"`
	GiftName     sql.NullString `db:"gift_name"`
}

// ParticipantFilter narrows participant listings
type ParticipantFilter struct {
	CampaignID int64
	Status     QuizStatus
	Limit      int
	Offset     int
}
