package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicaldog17/replyqueue/internal/db"
	apperrors "github.com/tropicaldog17/replyqueue/internal/errors"
	"github.com/tropicaldog17/replyqueue/internal/models"
	"github.com/tropicaldog17/replyqueue/internal/repositories"
)

var t0 = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

func newReviewService(t *testing.T, database *db.DB) *reviewService {
	t.Helper()
	svc := NewReviewService(
		repositories.NewStateRepository(database),
		repositories.NewReviewRepository(database),
		nil,
	).(*reviewService)
	svc.now = stepClock(t0, time.Second)
	return svc
}

func reviewItem(batchID, postID, commentID, reply string) *models.ReviewItem {
	score := 90
	item := &models.ReviewItem{
		BatchID:     batchID,
		PostID:      postID,
		PostLink:    "https://facebook.com/" + postID,
		CommentID:   commentID,
		CommentText: "comment " + commentID,
		ImpactScore: &score,
	}
	if reply != "" {
		item.ProposedReply = &reply
	}
	return item
}

func TestReviewService_Lock(t *testing.T) {
	ctx := context.Background()
	svc := newReviewService(t, newTestDB(t))

	locked, err := svc.IsLocked(ctx)
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, svc.Lock(ctx))
	require.NoError(t, svc.Lock(ctx))
	locked, err = svc.IsLocked(ctx)
	require.NoError(t, err)
	assert.True(t, locked)

	require.NoError(t, svc.Unlock(ctx))
	require.NoError(t, svc.Unlock(ctx))
	locked, err = svc.IsLocked(ctx)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestReviewService_GetOrCreateBatchReusesPending(t *testing.T) {
	ctx := context.Background()
	svc := newReviewService(t, newTestDB(t))

	first, err := svc.GetOrCreateBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "batch_2026-03-01T06-00-00-000000000Z", first)

	for i := 0; i < 3; i++ {
		again, err := svc.GetOrCreateBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	require.NoError(t, svc.Decide(ctx, first, models.BatchStatusRejected))
	next, err := svc.GetOrCreateBatch(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, next)
}

func TestReviewService_DecideExactlyOnce(t *testing.T) {
	ctx := context.Background()
	svc := newReviewService(t, newTestDB(t))

	id, err := svc.GetOrCreateBatch(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Decide(ctx, id, models.BatchStatusApproved))

	batch, err := svc.GetBatch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusApproved, batch.Status)
	require.NotNil(t, batch.DecidedAt)

	err = svc.Decide(ctx, id, models.BatchStatusRejected)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyDecided)
	batch, err = svc.GetBatch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusApproved, batch.Status)

	assert.ErrorIs(t, svc.Decide(ctx, "batch_missing", models.BatchStatusApproved), apperrors.ErrNotFound)

	var verr *apperrors.ErrValidation
	assert.ErrorAs(t, svc.Decide(ctx, id, models.BatchStatusPendingReview), &verr)
	assert.ErrorAs(t, svc.Decide(ctx, " ", models.BatchStatusApproved), &verr)
}

func TestReviewService_RecordItemDedupesComments(t *testing.T) {
	ctx := context.Background()
	svc := newReviewService(t, newTestDB(t))
	id, err := svc.GetOrCreateBatch(ctx)
	require.NoError(t, err)

	inserted, err := svc.RecordItem(ctx, reviewItem(id, "p1", "c1", "hi"))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = svc.RecordItem(ctx, reviewItem(id, "p1", "c1", "hello again"))
	require.NoError(t, err)
	assert.False(t, inserted)

	n, err := svc.CountItems(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	items, err := svc.ListItems(ctx, id)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "hi", items[0].Reply())
	assert.Equal(t, models.ItemStatusPending, items[0].Status)
}

func TestReviewService_RemoveItem(t *testing.T) {
	ctx := context.Background()
	svc := newReviewService(t, newTestDB(t))
	id, err := svc.GetOrCreateBatch(ctx)
	require.NoError(t, err)
	_, err = svc.RecordItem(ctx, reviewItem(id, "p1", "c1", "hi"))
	require.NoError(t, err)
	items, err := svc.ListItems(ctx, id)
	require.NoError(t, err)
	itemID := items[0].ID

	assert.ErrorIs(t, svc.RemoveItem(ctx, id, itemID+100), apperrors.ErrNotFound)
	assert.ErrorIs(t, svc.RemoveItem(ctx, "batch_missing", itemID), apperrors.ErrNotFound)

	require.NoError(t, svc.RemoveItem(ctx, id, itemID))
	items, err = svc.ListItems(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusRemoved, items[0].Status)

	require.NoError(t, svc.Decide(ctx, id, models.BatchStatusApproved))
	assert.ErrorIs(t, svc.RemoveItem(ctx, id, itemID), apperrors.ErrAlreadyDecided)
}
