package model

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGiftRemaining(t *testing.T) {
	tests := []struct {
		name          string
		gift          Gift
		wantRemaining int64
		wantUnlimited bool
	}{
		{name: "no max is unlimited", gift: Gift{UsedCount: 40}, wantUnlimited: true},
		{name: "partially used", gift: Gift{MaxQuantity: sql.NullInt64{Int64: 10, Valid: true}, UsedCount: 3}, wantRemaining: 7},
		{name: "exhausted", gift: Gift{MaxQuantity: sql.NullInt64{Int64: 5, Valid: true}, UsedCount: 5}},
		{name: "over-used never negative", gift: Gift{MaxQuantity: sql.NullInt64{Int64: 5, Valid: true}, UsedCount: 9}},
		{name: "zero max", gift: Gift{MaxQuantity: sql.NullInt64{Int64: 0, Valid: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remaining, unlimited := tt.gift.Remaining()
			assert.Equal(t, tt.wantRemaining, remaining)
			assert.Equal(t, tt.wantUnlimited, unlimited)
		})
	}
}

func TestGiftEligible(t *testing.T) {
	g := Gift{MinScore: 5, MaxScore: sql.NullInt64{Int64: 8, Valid: true}}
	assert.False(t, g.Eligible(4))
	assert.True(t, g.Eligible(5))
	assert.True(t, g.Eligible(8))
	assert.False(t, g.Eligible(9))

	open := Gift{MinScore: 9}
	assert.True(t, open.Eligible(100))
}

func TestCampaignInRange(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := Campaign{
		StartDate: sql.NullTime{Time: now.Add(-time.Hour), Valid: true},
		EndDate:   sql.NullTime{Time: now.Add(time.Hour), Valid: true},
	}
	assert.True(t, c.InRange(now))
	assert.False(t, c.InRange(now.Add(2*time.Hour)))
	assert.False(t, c.InRange(now.Add(-2*time.Hour)))

	var open Campaign
	assert.True(t, open.InRange(now))
}

func TestStatusAndTypeValid(t *testing.T) {
	assert.True(t, StatusCompleted.Valid())
	assert.False(t, QuizStatus("finished").Valid())
	assert.True(t, GiftVoucher.Valid())
	assert.False(t, GiftType("car").Valid())
}

func TestRenamePairs(t *testing.T) {
	pairs := NewTables("wp_").RenamePairs()
	assert.Len(t, pairs, 4)
	assert.Equal(t, RenamePair{Old: "wp_quiz_users", New: "wp_qcm_quiz_users"}, pairs[2])
}
