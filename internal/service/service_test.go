package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkkikiki/quizgift/internal/database"
	"github.com/kkkkikiki/quizgift/internal/model"
	"github.com/kkkkikiki/quizgift/internal/repository"
	"github.com/kkkkikiki/quizgift/internal/service"
	"github.com/kkkkikiki/quizgift/internal/testutil"
)

func addParticipant(t *testing.T, db *database.DB, campaignID int64, name, email string, status model.QuizStatus, score int) int64 {
	t.Helper()
	p := &model.Participant{
		CampaignID: campaignID,
		FullName:   name,
		Email:      email,
		Phone:      sql.NullString{String: "0912345678", Valid: true},
		Status:     status,
		Score:      score,
	}
	repo := repository.NewParticipantRepository(db.Tables, db.Dialect)
	require.NoError(t, repo.CreateParticipant(context.Background(), db.Conn, p))
	return p.ID
}

func ptr[T any](v T) *T { return &v }

func TestCampaignService_CreateDerivesSlug(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupDB(t)
	svc := service.NewCampaignService(db)

	c, err := svc.Create(ctx, service.CampaignInput{Name: "  Tết Quiz 2026 "})
	require.NoError(t, err)
	assert.Equal(t, "Tết Quiz 2026", c.Name)
	assert.Equal(t, "tet-quiz-2026", c.Slug.String)
	assert.False(t, c.Description.Valid)
}

func TestCampaignService_Validation(t *testing.T) {
	ctx := context.Background()
	svc := service.NewCampaignService(testutil.SetupDB(t))
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   service.CampaignInput
	}{
		{"empty name", service.CampaignInput{Name: " "}},
		{"end before start", service.CampaignInput{Name: "x", StartDate: &start, EndDate: ptr(start.Add(-time.Hour))}},
		{"bad slug", service.CampaignInput{Name: "x", Slug: "Not A Slug"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			assert.ErrorIs(t, err, service.ErrInvalidCampaign)
		})
	}
}

func TestCampaignService_UpdateAndDeleteCascade(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupDB(t)
	campaigns := service.NewCampaignService(db)
	gifts := service.NewGiftService(db)

	c, err := campaigns.Create(ctx, service.CampaignInput{Name: "Autumn"})
	require.NoError(t, err)
	_, err = gifts.Create(ctx, service.GiftInput{CampaignID: c.ID, Name: "Mug", GiftType: model.GiftPhysical})
	require.NoError(t, err)

	updated, err := campaigns.Update(ctx, c.ID, service.CampaignInput{Name: "Autumn", Slug: "autumn-2026", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "autumn-2026", updated.Slug.String)
	assert.True(t, updated.IsActive)

	require.NoError(t, campaigns.Delete(ctx, c.ID))
	assert.Equal(t, 0, testutil.Count(t, db, db.Tables.Gifts(), ""))

	_, err = campaigns.Get(ctx, c.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, campaigns.Delete(ctx, c.ID), repository.ErrNotFound)
}

func TestGiftService_Validation(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupDB(t)
	campaigns := service.NewCampaignService(db)
	gifts := service.NewGiftService(db)
	c, err := campaigns.Create(ctx, service.CampaignInput{Name: "Winter"})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   service.GiftInput
	}{
		{"no campaign", service.GiftInput{Name: "x", GiftType: model.GiftVoucher}},
		{"unknown campaign", service.GiftInput{CampaignID: c.ID + 100, Name: "x", GiftType: model.GiftVoucher}},
		{"no name", service.GiftInput{CampaignID: c.ID, GiftType: model.GiftVoucher}},
		{"bad type", service.GiftInput{CampaignID: c.ID, Name: "x", GiftType: "car"}},
		{"inverted range", service.GiftInput{CampaignID: c.ID, Name: "x", GiftType: model.GiftVoucher, MinScore: 8, MaxScore: ptr(5)}},
		{"negative quantity", service.GiftInput{CampaignID: c.ID, Name: "x", GiftType: model.GiftVoucher, MaxQuantity: ptr(int64(-1))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gifts.Create(ctx, tt.in)
			assert.ErrorIs(t, err, service.ErrInvalidGift)
		})
	}
}

func TestGiftService_AssignGift(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupDB(t)
	campaigns := service.NewCampaignService(db)
	gifts := service.NewGiftService(db)

	c, err := campaigns.Create(ctx, service.CampaignInput{Name: "Quiz"})
	require.NoError(t, err)
	voucher, err := gifts.Create(ctx, service.GiftInput{
		CampaignID: c.ID, Name: "Voucher", GiftType: model.GiftVoucher, MinScore: 8, MaxQuantity: ptr(int64(1)),
	})
	require.NoError(t, err)
	sticker, err := gifts.Create(ctx, service.GiftInput{
		CampaignID: c.ID, Name: "Sticker", GiftType: model.GiftPhysical, MinScore: 5, MaxScore: ptr(10),
	})
	require.NoError(t, err)

	top := addParticipant(t, db, c.ID, "An", "an@example.com", model.StatusCompleted, 9)
	second := addParticipant(t, db, c.ID, "Binh", "binh@example.com", model.StatusCompleted, 9)
	low := addParticipant(t, db, c.ID, "Chi", "chi@example.com", model.StatusCompleted, 2)
	playing := addParticipant(t, db, c.ID, "Dung", "dung@example.com", model.StatusInProgress, 9)

	g, err := gifts.AssignGift(ctx, top)
	require.NoError(t, err)
	assert.Equal(t, voucher.ID, g.ID)
	assert.Equal(t, int64(1), g.UsedCount)

	_, err = gifts.AssignGift(ctx, top)
	assert.ErrorIs(t, err, service.ErrAlreadyAssigned)

	// Voucher stock is exhausted; the next high scorer gets the sticker.
	g, err = gifts.AssignGift(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, sticker.ID, g.ID)

	_, err = gifts.AssignGift(ctx, low)
	assert.ErrorIs(t, err, repository.ErrNoGiftAvailable)

	_, err = gifts.AssignGift(ctx, playing)
	assert.ErrorIs(t, err, service.ErrNotCompleted)

	_, err = gifts.AssignGift(ctx, 9999)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	v, err := gifts.Get(ctx, voucher.ID)
	require.NoError(t, err)
	remaining, unlimited := v.Remaining()
	assert.False(t, unlimited)
	assert.Zero(t, remaining)

	// Returning the voucher restores its stock.
	require.NoError(t, gifts.UnassignGift(ctx, top))
	v, err = gifts.Get(ctx, voucher.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.UsedCount)

	participants := service.NewParticipantService(db)
	p, err := participants.Get(ctx, top)
	require.NoError(t, err)
	assert.False(t, p.GiftID.Valid)
}

func TestGiftService_AutoAssign(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupDB(t)
	gifts := service.NewGiftService(db)

	c, err := service.NewCampaignService(db).Create(ctx, service.CampaignInput{Name: "Auto"})
	require.NoError(t, err)
	_, err = gifts.Create(ctx, service.GiftInput{
		CampaignID: c.ID, Name: "Voucher", GiftType: model.GiftVoucher, MinScore: 5, MaxQuantity: ptr(int64(1)),
	})
	require.NoError(t, err)

	first := addParticipant(t, db, c.ID, "An", "an@example.com", model.StatusCompleted, 9)
	second := addParticipant(t, db, c.ID, "Binh", "binh@example.com", model.StatusCompleted, 8)
	addParticipant(t, db, c.ID, "Chi", "chi@example.com", model.StatusCompleted, 4)

	// one unit of stock: the second participant waits without failing the run
	n, err := gifts.AutoAssign(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	participants := service.NewParticipantService(db)
	p, err := participants.Get(ctx, first)
	require.NoError(t, err)
	assert.True(t, p.GiftID.Valid)
	p, err = participants.Get(ctx, second)
	require.NoError(t, err)
	assert.False(t, p.GiftID.Valid)

	n, err = gifts.AutoAssign(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestParticipantService_Search(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupDB(t)
	c, err := service.NewCampaignService(db).Create(ctx, service.CampaignInput{Name: "Search"})
	require.NoError(t, err)

	addParticipant(t, db, c.ID, "Nguyễn Văn Đức", "duc@example.com", model.StatusCompleted, 5)
	addParticipant(t, db, c.ID, "Trần Thị Mai", "mai@example.com", model.StatusStarted, 0)
	addParticipant(t, db, c.ID, "Lê Minh", "minh@example.com", model.StatusCompleted, 7)

	svc := service.NewParticipantService(db)

	rows, err := svc.Search(ctx, model.ParticipantFilter{}, "nguyen duc")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "duc@example.com", rows[0].Email)

	rows, err = svc.Search(ctx, model.ParticipantFilter{Status: model.StatusCompleted}, "")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = svc.Search(ctx, model.ParticipantFilter{Status: model.StatusStarted}, "minh")
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = svc.Search(ctx, model.ParticipantFilter{Limit: 1}, "example")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = svc.Search(ctx, model.ParticipantFilter{Offset: 10}, "example")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParticipantService_SweepAbandoned(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupDB(t)
	c, err := service.NewCampaignService(db).Create(ctx, service.CampaignInput{Name: "Sweep"})
	require.NoError(t, err)
	addParticipant(t, db, c.ID, "Idle", "idle@example.com", model.StatusInProgress, 1)
	addParticipant(t, db, c.ID, "Done", "done@example.com", model.StatusCompleted, 9)

	svc := service.NewParticipantService(db)

	n, err := svc.SweepAbandoned(ctx, time.Now(), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = svc.SweepAbandoned(ctx, time.Now().Add(2*time.Hour), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	counts, err := svc.CountByStatus(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[model.StatusAbandoned])
	assert.Equal(t, int64(1), counts[model.StatusCompleted])
}

func TestFold(t *testing.T) {
	assert.Equal(t, "nguyen van duc", service.Fold("Nguyễn Văn Đức"))
	assert.Equal(t, "ha noi", service.Fold("Hà Nội"))
}
