package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tropicaldog17/replyqueue/internal/db"
	"github.com/tropicaldog17/replyqueue/internal/models"
)

type outboxRepository struct {
	db *db.DB
}

func NewOutboxRepository(database *db.DB) OutboxRepository {
	return &outboxRepository{db: database}
}

func (r *outboxRepository) Enqueue(ctx context.Context, entries []*models.OutboxEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	inserted := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range entries {
			if e.Status == "" {
				e.Status = models.OutboxStatusQueued
			}
			res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "comment_id"}}, DoNothing: true}).
				Create(e)
			if res.Error != nil {
				return res.Error
			}
			inserted += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// FetchDue returns the QUEUED entry with the earliest scheduled time not after now, or nil.
func (r *outboxRepository) FetchDue(ctx context.Context, now time.Time) (*models.OutboxEntry, error) {
	var list []*models.OutboxEntry
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", models.OutboxStatusQueued, now).
		Order("scheduled_at ASC").
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

func (r *outboxRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error) {
	return r.transition(ctx, id, map[string]interface{}{
		"status":  models.OutboxStatusSent,
		"sent_at": sentAt,
	})
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string, reason string) (bool, error) {
	return r.transition(ctx, id, map[string]interface{}{
		"status":      models.OutboxStatusFailed,
		"fail_reason": reason,
	})
}

func (r *outboxRepository) CancelQueued(ctx context.Context, batchID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.OutboxEntry{}).
		Where("batch_id = ? AND status = ?", batchID, models.OutboxStatusQueued).
		Update("status", models.OutboxStatusCanceled)
	return res.RowsAffected, res.Error
}

func (r *outboxRepository) List(ctx context.Context, filter *models.OutboxFilter) ([]*models.OutboxEntry, error) {
	var list []*models.OutboxEntry
	q := r.db.WithContext(ctx).Model(&models.OutboxEntry{})
	if filter != nil {
		if filter.BatchID != "" {
			q = q.Where("batch_id = ?", filter.BatchID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Order("scheduled_at ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// transition updates a QUEUED entry only, so terminal states never move backward.
func (r *outboxRepository) transition(ctx context.Context, id string, updates map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.OutboxEntry{}).
		Where("id = ? AND status = ?", id, models.OutboxStatusQueued).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
