package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkkikiki/quizgift/internal/model"
	"github.com/kkkkikiki/quizgift/internal/repository"
	"github.com/kkkkikiki/quizgift/internal/scheduler"
	"github.com/kkkkikiki/quizgift/internal/service"
	"github.com/kkkkikiki/quizgift/internal/settings"
	"github.com/kkkkikiki/quizgift/internal/testutil"
)

func TestJobs(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupDB(t)
	campaigns := service.NewCampaignService(db)
	participants := service.NewParticipantService(db)

	now := time.Now()
	start := now.Add(-time.Hour)
	c, err := campaigns.Create(ctx, service.CampaignInput{Name: "Live", StartDate: &start})
	require.NoError(t, err)
	require.False(t, c.IsActive)

	p := &model.Participant{CampaignID: c.ID, FullName: "Idle", Email: "idle@example.com", Status: model.StatusStarted}
	require.NoError(t, repository.NewParticipantRepository(db.Tables, db.Dialect).CreateParticipant(ctx, db.Conn, p))

	jobs := &scheduler.Jobs{
		Campaigns:    campaigns,
		Participants: participants,
		AbandonAfter: time.Hour,
		Now:          func() time.Time { return now.Add(2 * time.Hour) },
	}

	require.NoError(t, jobs.SyncCampaigns(ctx))
	got, err := campaigns.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	require.NoError(t, jobs.SweepAbandoned(ctx))
	row, err := participants.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAbandoned, row.Status)
}

func TestJobs_AssignGifts(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupDB(t)
	campaigns := service.NewCampaignService(db)
	gifts := service.NewGiftService(db)
	participantRepo := repository.NewParticipantRepository(db.Tables, db.Dialect)

	store, err := settings.NewStore(db.Conn, repository.NewOptionRepository(db.Tables))
	require.NoError(t, err)

	c, err := campaigns.Create(ctx, service.CampaignInput{Name: "Spring"})
	require.NoError(t, err)
	stock := int64(5)
	g, err := gifts.Create(ctx, service.GiftInput{CampaignID: c.ID, Name: "Voucher", GiftType: model.GiftTypes[0].Type, MaxQuantity: &stock})
	require.NoError(t, err)

	passed := &model.Participant{CampaignID: c.ID, FullName: "Passed", Email: "passed@example.com", Status: model.StatusCompleted, Score: 8}
	failed := &model.Participant{CampaignID: c.ID, FullName: "Failed", Email: "failed@example.com", Status: model.StatusCompleted, Score: 3}
	playing := &model.Participant{CampaignID: c.ID, FullName: "Playing", Email: "playing@example.com", Status: model.StatusInProgress, Score: 9}
	for _, p := range []*model.Participant{passed, failed, playing} {
		require.NoError(t, participantRepo.CreateParticipant(ctx, db.Conn, p))
	}

	jobs := &scheduler.Jobs{Gifts: gifts, Settings: store}

	// switched off: nothing is assigned
	require.NoError(t, store.Set(ctx, settings.AutoAssignGift, "no"))
	require.NoError(t, jobs.AssignGifts(ctx))
	row, err := participantRepo.GetParticipant(ctx, db.Conn, passed.ID)
	require.NoError(t, err)
	assert.False(t, row.GiftID.Valid)

	require.NoError(t, store.Set(ctx, settings.AutoAssignGift, "yes"))
	require.NoError(t, store.Set(ctx, settings.PassScore, "7"))
	require.NoError(t, jobs.AssignGifts(ctx))

	row, err = participantRepo.GetParticipant(ctx, db.Conn, passed.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, row.GiftID.Int64)

	for _, id := range []int64{failed.ID, playing.ID} {
		row, err := participantRepo.GetParticipant(ctx, db.Conn, id)
		require.NoError(t, err)
		assert.False(t, row.GiftID.Valid, "participant %d", id)
	}

	// a second run finds nobody left to assign
	require.NoError(t, jobs.AssignGifts(ctx))
	assert.Equal(t, 1, testutil.Count(t, db, db.Tables.Participants(), "gift_id IS NOT NULL"))
}

func TestScheduler_StartShutdown(t *testing.T) {
	db := testutil.SetupDB(t)
	store, err := settings.NewStore(db.Conn, repository.NewOptionRepository(db.Tables))
	require.NoError(t, err)
	s, err := scheduler.New(context.Background(), &scheduler.Jobs{
		Campaigns:    service.NewCampaignService(db),
		Participants: service.NewParticipantService(db),
		Gifts:        service.NewGiftService(db),
		Settings:     store,
		AbandonAfter: time.Hour,
	})
	require.NoError(t, err)

	s.Start()
	assert.NoError(t, s.Shutdown())
}
