package repositories

import (
	"context"
	"time"

	"github.com/tropicaldog17/replyqueue/internal/models"
)

// StateRepository persists process-wide key/value flags
type StateRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// ReviewRepository defines data operations for review batches and their items
type ReviewRepository interface {
	CreateBatch(ctx context.Context, batch *models.ReviewBatch) error
	GetBatch(ctx context.Context, batchID string) (*models.ReviewBatch, error)
	GetPendingBatch(ctx context.Context) (*models.ReviewBatch, error)
	SetBatchStatus(ctx context.Context, batchID string, status models.BatchStatus, decidedAt time.Time) (bool, error)

	// InsertItem returns false when an item for the same comment already exists.
	InsertItem(ctx context.Context, item *models.ReviewItem) (bool, error)
	CountItems(ctx context.Context, batchID string) (int64, error)
	ListItems(ctx context.Context, batchID string) ([]*models.ReviewItem, error)
	ListSchedulableItems(ctx context.Context, batchID string) ([]*models.ReviewItem, error)
	RemoveItem(ctx context.Context, batchID string, itemID int64) (bool, error)
}

// OutboxRepository defines data operations for the delivery queue
type OutboxRepository interface {
	// Enqueue inserts entries in order, skipping comments that already have an entry.
	Enqueue(ctx context.Context, entries []*models.OutboxEntry) (int, error)
	FetchDue(ctx context.Context, now time.Time) (*models.OutboxEntry, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id string, reason string) (bool, error)
	CancelQueued(ctx context.Context, batchID string) (int64, error)
	List(ctx context.Context, filter *models.OutboxFilter) ([]*models.OutboxEntry, error)
}

// VectorCacheRepository stores answer embeddings keyed by exact answer text
type VectorCacheRepository interface {
	LoadAll(ctx context.Context) ([]models.CachedVector, error)
	Append(ctx context.Context, vectors []models.CachedVector) error
}
