package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/tropicaldog17/replyqueue/internal/logger"
	"github.com/tropicaldog17/replyqueue/internal/models"
)

// AdminService is the human decision boundary: each action maps onto the review
// state machine and, for approvals, the outbox.
type AdminService interface {
	ApproveBatch(ctx context.Context, batchID string) (*models.DecisionResult, error)
	RejectBatch(ctx context.Context, batchID string) (*models.DecisionResult, error)
	RemoveItem(ctx context.Context, batchID string, itemID int64) error
	CancelBatch(ctx context.Context, batchID string) (int64, error)
	GetBatchDetail(ctx context.Context, batchID string) (*models.BatchDetail, error)
	ListOutbox(ctx context.Context, filter *models.OutboxFilter) ([]*models.OutboxEntry, error)
}

// adminService implements the AdminService interface
type adminService struct {
	review ReviewService
	outbox *OutboxService
	now    Clock
	logger *zap.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(review ReviewService, outbox *OutboxService, log *zap.Logger) AdminService {
	return &adminService{review: review, outbox: outbox, now: utcNow, logger: logger.OrNop(log)}
}

// ApproveBatch decides the batch, queues its replies and releases the review lock.
// The lock is released even when scheduling fails so scanning can resume.
func (s *adminService) ApproveBatch(ctx context.Context, batchID string) (*models.DecisionResult, error) {
	if err := s.review.Decide(ctx, batchID, models.BatchStatusApproved); err != nil {
		return nil, err
	}

	result := &models.DecisionResult{BatchID: batchID, Status: models.BatchStatusApproved}
	entries, schedErr := s.outbox.ScheduleBatch(ctx, batchID, s.now())
	if schedErr == nil && len(entries) > 0 {
		result.Queued = len(entries)
		first, last := entries[0].ScheduledAt, entries[len(entries)-1].ScheduledAt
		result.FirstSendAt, result.LastSendAt = &first, &last
	}
	unlockErr := s.review.Unlock(ctx)

	if err := errors.Join(schedErr, unlockErr); err != nil {
		s.logger.Error("approval incomplete", zap.String("batch_id", batchID), zap.Error(err))
		return result, err
	}
	s.logger.Info("batch approved", zap.String("batch_id", batchID), zap.Int("queued", result.Queued))
	return result, nil
}

func (s *adminService) RejectBatch(ctx context.Context, batchID string) (*models.DecisionResult, error) {
	if err := s.review.Decide(ctx, batchID, models.BatchStatusRejected); err != nil {
		return nil, err
	}
	if err := s.review.Unlock(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("batch rejected", zap.String("batch_id", batchID))
	return &models.DecisionResult{BatchID: batchID, Status: models.BatchStatusRejected}, nil
}

func (s *adminService) RemoveItem(ctx context.Context, batchID string, itemID int64) error {
	return s.review.RemoveItem(ctx, batchID, itemID)
}

// CancelBatch stops the unsent remainder of an approved batch.
func (s *adminService) CancelBatch(ctx context.Context, batchID string) (int64, error) {
	if _, err := s.review.GetBatch(ctx, batchID); err != nil {
		return 0, err
	}
	return s.outbox.CancelBatch(ctx, batchID)
}

func (s *adminService) GetBatchDetail(ctx context.Context, batchID string) (*models.BatchDetail, error) {
	batch, err := s.review.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	items, err := s.review.ListItems(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return &models.BatchDetail{Batch: batch, Items: items}, nil
}

func (s *adminService) ListOutbox(ctx context.Context, filter *models.OutboxFilter) ([]*models.OutboxEntry, error) {
	return s.outbox.List(ctx, filter)
}
