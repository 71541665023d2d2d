package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tropicaldog17/replyqueue/internal/errors"
	"github.com/tropicaldog17/replyqueue/internal/models"
)

func newAdminFixture(t *testing.T) (*outboxFixture, *adminService) {
	t.Helper()
	f := newOutboxFixture(t, OutboxConfig{MinDelaySec: 300, MaxDelaySec: 420}, &seqRandom{values: []int{10, 50, 90}})
	admin := NewAdminService(f.review, f.outbox, nil).(*adminService)
	admin.now = fixedClock(t0.Add(time.Hour))
	require.NoError(t, f.review.Lock(context.Background()))
	return f, admin
}

func TestAdminService_ApproveSchedulesEveryEligibleItem(t *testing.T) {
	ctx := context.Background()
	f, admin := newAdminFixture(t)
	f.addItems(t,
		reviewItem(f.batchID, "p1", "c1", "one"),
		reviewItem(f.batchID, "p1", "c2", "two"),
		reviewItem(f.batchID, "p2", "c3", "three"),
		reviewItem(f.batchID, "p2", "c4", ""),
	)

	res, err := admin.ApproveBatch(ctx, f.batchID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusApproved, res.Status)
	assert.Equal(t, 3, res.Queued)
	require.NotNil(t, res.FirstSendAt)
	assert.Equal(t, t0.Add(time.Hour+310*time.Second), *res.FirstSendAt)
	assert.True(t, res.LastSendAt.After(*res.FirstSendAt))

	assert.Len(t, f.entries(t, models.OutboxStatusQueued), 3)
	locked, err := f.review.IsLocked(ctx)
	require.NoError(t, err)
	assert.False(t, locked)

	_, err = admin.ApproveBatch(ctx, f.batchID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyDecided)
	assert.Len(t, f.entries(t, ""), 3)
}

func TestAdminService_RejectQueuesNothing(t *testing.T) {
	ctx := context.Background()
	f, admin := newAdminFixture(t)
	f.addItems(t,
		reviewItem(f.batchID, "p1", "c1", "one"),
		reviewItem(f.batchID, "p1", "c2", "two"),
	)

	res, err := admin.RejectBatch(ctx, f.batchID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusRejected, res.Status)
	assert.Empty(t, f.entries(t, ""))

	locked, err := f.review.IsLocked(ctx)
	require.NoError(t, err)
	assert.False(t, locked)

	_, err = admin.ApproveBatch(ctx, f.batchID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyDecided)
	assert.Empty(t, f.entries(t, ""))
}

func TestAdminService_UnknownBatch(t *testing.T) {
	ctx := context.Background()
	f, admin := newAdminFixture(t)

	_, err := admin.ApproveBatch(ctx, "batch_nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = admin.RejectBatch(ctx, "batch_nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = admin.GetBatchDetail(ctx, "batch_nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = admin.CancelBatch(ctx, "batch_nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// the lock is untouched by failed decisions
	locked, err := f.review.IsLocked(ctx)
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestAdminService_RemovedItemIsNotScheduled(t *testing.T) {
	ctx := context.Background()
	f, admin := newAdminFixture(t)
	f.addItems(t,
		reviewItem(f.batchID, "p1", "c1", "one"),
		reviewItem(f.batchID, "p1", "c2", "two"),
	)
	detail, err := admin.GetBatchDetail(ctx, f.batchID)
	require.NoError(t, err)
	require.Len(t, detail.Items, 2)
	assert.Equal(t, models.BatchStatusPendingReview, detail.Batch.Status)

	require.NoError(t, admin.RemoveItem(ctx, f.batchID, detail.Items[0].ID))
	res, err := admin.ApproveBatch(ctx, f.batchID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Queued)

	listed, err := admin.ListOutbox(ctx, &models.OutboxFilter{Status: models.OutboxStatusQueued})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "c2", listed[0].CommentID)

	n, err := admin.CancelBatch(ctx, f.batchID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
