package model

import (
	"database/sql"
	"time"
)

// GiftType classifies a reward
type GiftType string

const (
	GiftVoucher  GiftType = "voucher"
	GiftPhysical GiftType = "physical"
	GiftDigital  GiftType = "digital"
	GiftDiscount GiftType = "discount"
	GiftPoints   GiftType = "points"
)

// GiftTypes lists every gift type with its admin label
var GiftTypes = []struct {
	Type  GiftType
	Label string
}{
	{GiftVoucher, "Voucher"},
	{GiftPhysical, "Physical item"},
	{GiftDigital, "Digital code"},
	{GiftDiscount, "Discount"},
	{GiftPoints, "Loyalty points"},
}

// Valid reports whether t is one of the known gift types
func (t GiftType) Valid() bool {
	for _, v := range GiftTypes {
		if v.Type == t {
			return true
		}
	}
	return false
}

// Gift represents a reward with eligibility and inventory rules
type Gift struct {
	ID          int64          `db:"id" json:"id"`
	CampaignID  int64          `db:"campaign_id" json:"campaign_id"`
	Name        string         `db:"name" json:"name"`
	GiftType    GiftType       `db:"gift_type" json:"gift_type"`
	Value       sql.NullString `db:"value" json:"value"`
	MinScore    int            `db:"min_score" json:"min_score"`
	MaxScore    sql.NullInt64  `db:"max_score" json:"max_score"`
	MaxQuantity sql.NullInt64  `db:"max_quantity" json:"max_quantity"`
	UsedCount   int64          `db:"used_count" json:"used_count"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// Remaining returns how many gifts are left. unlimited is true when no
// maximum is set; remaining is never negative.
func (g *Gift) Remaining() (remaining int64, unlimited bool) {
	if !g.MaxQuantity.Valid {
		return 0, true
	}
	remaining = g.MaxQuantity.Int64 - g.UsedCount
	if remaining < 0 {
		remaining = 0
	}
	return remaining, false
}

// Eligible reports whether a score falls inside the gift's score range
func (g *Gift) Eligible(score int) bool {
	if score < g.MinScore {
		return false
	}
	if g.MaxScore.Valid && int64(score) > g.MaxScore.Int64 {
		return false
	}
	return true
}

// GiftRow is a gift joined with its campaign name for list views
type GiftRow struct {
	Gift
	CampaignName sql.NullString `db:"campaign_name"`
}
