package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkkikiki/quizgift/internal/model"
	"github.com/kkkkikiki/quizgift/internal/repository"
	"github.com/kkkkikiki/quizgift/internal/testutil"
)

func TestLegacyRepository_BatchInsert(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupLegacyDB(t)
	repo := repository.NewLegacyRepository(db.Tables, db.Dialect)

	campaignID, err := repo.CreateLegacyCampaign(ctx, db.Conn, "Legacy", true)
	require.NoError(t, err)
	require.NoError(t, repo.CreateLegacyGift(ctx, db.Conn, campaignID, "Mug", model.GiftPhysical))

	// More than one batch, with one repeated email.
	now := time.Now()
	users := make([]model.LegacyUser, 0, 1201)
	for i := range 1200 {
		users = append(users, model.LegacyUser{
			CampaignID: sql.NullInt64{Int64: campaignID, Valid: i%10 != 0},
			FullName:   fmt.Sprintf("User %d", i),
			Email:      fmt.Sprintf("user%d@example.com", i),
			CreatedAt:  now,
		})
	}
	users = append(users, model.LegacyUser{FullName: "Again", Email: "user1@example.com", CreatedAt: now})

	tx, err := db.Conn.BeginTxx(ctx, nil)
	require.NoError(t, err)
	ids, err := repo.InsertLegacyUsers(ctx, tx, users)
	require.NoError(t, err)
	assert.Len(t, ids, 1200)

	sessions := []model.LegacySession{
		{UserID: ids["user0@example.com"], Score: 8, TotalQuestions: 10, CorrectAnswers: 8, IsCompleted: true, StartedAt: now, CompletedAt: sql.NullTime{Time: now, Valid: true}},
		{UserID: ids["user1@example.com"], Score: 2, TotalQuestions: 10, CorrectAnswers: 2, StartedAt: now},
	}
	require.NoError(t, repo.InsertLegacySessions(ctx, tx, sessions))
	require.NoError(t, tx.Commit())

	n, err := repo.CountLegacyUsers(ctx, db.Conn)
	require.NoError(t, err)
	assert.Equal(t, int64(1201), n)
	assert.Equal(t, 121, testutil.Count(t, db, db.Tables.LegacyQuizUsers(), "campaign_id IS NULL"))
	assert.Equal(t, 1, testutil.Count(t, db, db.Tables.LegacyQuizSessions(), "is_completed = 1"))

	// The repeated email maps to the later row.
	assert.Equal(t, 1, testutil.Count(t, db, db.Tables.LegacyQuizUsers(), "id = ? AND full_name = 'Again'", ids["user1@example.com"]))
}
