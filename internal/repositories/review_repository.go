package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tropicaldog17/replyqueue/internal/db"
	apperrors "github.com/tropicaldog17/replyqueue/internal/errors"
	"github.com/tropicaldog17/replyqueue/internal/models"
)

type reviewRepository struct {
	db *db.DB
}

func NewReviewRepository(database *db.DB) ReviewRepository {
	return &reviewRepository{db: database}
}

// CreateBatch is a no-op on any unique conflict, including a concurrent pending batch.
func (r *reviewRepository) CreateBatch(ctx context.Context, batch *models.ReviewBatch) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(batch).Error
}

func (r *reviewRepository) GetBatch(ctx context.Context, batchID string) (*models.ReviewBatch, error) {
	var b models.ReviewBatch
	err := r.db.WithContext(ctx).First(&b, "batch_id = ?", batchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *reviewRepository) GetPendingBatch(ctx context.Context) (*models.ReviewBatch, error) {
	var list []*models.ReviewBatch
	err := r.db.WithContext(ctx).
		Where("status = ?", models.BatchStatusPendingReview).
		Order("created_at DESC").
		Limit(1).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// SetBatchStatus only moves a batch out of PENDING_REVIEW; it reports false when no pending batch matched.
func (r *reviewRepository) SetBatchStatus(ctx context.Context, batchID string, status models.BatchStatus, decidedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ReviewBatch{}).
		Where("batch_id = ? AND status = ?", batchID, models.BatchStatusPendingReview).
		Updates(map[string]interface{}{
			"status":     status,
			"decided_at": decidedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *reviewRepository) InsertItem(ctx context.Context, item *models.ReviewItem) (bool, error) {
	if item.Status == "" {
		item.Status = models.ItemStatusPending
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "comment_id"}}, DoNothing: true}).
		Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *reviewRepository) CountItems(ctx context.Context, batchID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ReviewItem{}).
		Where("batch_id = ?", batchID).
		Count(&n).Error
	return n, err
}

func (r *reviewRepository) ListItems(ctx context.Context, batchID string) ([]*models.ReviewItem, error) {
	var list []*models.ReviewItem
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("post_id, id").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListSchedulableItems returns PENDING items with a non-empty reply, in creation order.
func (r *reviewRepository) ListSchedulableItems(ctx context.Context, batchID string) ([]*models.ReviewItem, error) {
	var list []*models.ReviewItem
	if err := r.db.WithContext(ctx).
		Where("batch_id = ? AND status = ?", batchID, models.ItemStatusPending).
		Where("proposed_reply IS NOT NULL AND proposed_reply <> ''").
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *reviewRepository) RemoveItem(ctx context.Context, batchID string, itemID int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ReviewItem{}).
		Where("batch_id = ? AND id = ?", batchID, itemID).
		Update("status", models.ItemStatusRemoved)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
