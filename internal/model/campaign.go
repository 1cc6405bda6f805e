package model

import (
	"database/sql"
	"time"
)

// Campaign represents a timed quiz event in the database
type Campaign struct {
	ID          int64          `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Slug        sql.NullString `db:"slug" json:"slug"`
	Description sql.NullString `db:"description" json:"description"`
	IsActive    bool           `db:"is_active" json:"is_active"`
	StartDate   sql.NullTime   `db:"start_date" json:"start_date"`
	EndDate     sql.NullTime   `db:"end_date" json:"end_date"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// InRange reports whether t falls inside the campaign's date range.
// An unset bound is open.
func (c *Campaign) InRange(t time.Time) bool {
	if c.StartDate.Valid && t.Before(c.StartDate.Time) {
		return false
	}
	if c.EndDate.Valid && t.After(c.EndDate.Time) {
		return false
	}
	return true
}

// CampaignStats is a dashboard row: a campaign with aggregate counts
type CampaignStats struct {
	Campaign
	Participants int64 `db:"participants"`
	Completed    int64 `db:"completed"`
	InProgress   int64 `db:"in_progress"`
	Abandoned    int64 `db:"abandoned"`
	Gifts        int64 `db:"gifts"`
	GiftsUsed    int64 `db:"gifts_used"`
}
