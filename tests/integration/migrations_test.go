package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicaldog17/replyqueue/internal/models"
	"github.com/tropicaldog17/replyqueue/migrations"
)

func TestMigrations_AppliedOnceAndIdempotent(t *testing.T) {
	tc := freshContainer(t)
	ctx := context.Background()

	sqlDB, err := tc.DB.GetSQLDB()
	require.NoError(t, err)

	all, err := migrations.Load()
	require.NoError(t, err)
	version, err := migrations.CurrentVersion(ctx, sqlDB)
	require.NoError(t, err)
	assert.Equal(t, all[len(all)-1].ID, version)

	require.NoError(t, migrations.Run(ctx, tc.DB, nil))
	again, err := migrations.CurrentVersion(ctx, sqlDB)
	require.NoError(t, err)
	assert.Equal(t, version, again)

	for _, table := range []string{"system_state", "review_batches", "review_items", "outbox_replies", "answer_vectors"} {
		assert.True(t, tc.DB.Migrator().HasTable(table), table)
	}
}

func TestMigrations_SinglePendingBatch(t *testing.T) {
	tc := freshContainer(t)

	require.NoError(t, tc.DB.Create(&models.ReviewBatch{BatchID: "batch_a", Status: models.BatchStatusPendingReview}).Error)
	err := tc.DB.Create(&models.ReviewBatch{BatchID: "batch_b", Status: models.BatchStatusPendingReview}).Error
	assert.Error(t, err)

	require.NoError(t, tc.DB.Create(&models.ReviewBatch{BatchID: "batch_c", Status: models.BatchStatusApproved}).Error)
}

func TestMigrations_CommentUniqueAcrossItems(t *testing.T) {
	tc := freshContainer(t)

	require.NoError(t, tc.DB.Create(&models.ReviewBatch{BatchID: "batch_a", Status: models.BatchStatusPendingReview}).Error)
	item := &models.ReviewItem{BatchID: "batch_a", PostID: "p", CommentID: "c1", CommentText: "hi", Status: models.ItemStatusPending}
	require.NoError(t, tc.DB.Create(item).Error)

	dup := &models.ReviewItem{BatchID: "batch_a", PostID: "p", CommentID: "c1", CommentText: "hi again", Status: models.ItemStatusPending}
	assert.Error(t, tc.DB.Create(dup).Error)
}
