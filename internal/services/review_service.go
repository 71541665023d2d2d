package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/tropicaldog17/replyqueue/internal/errors"
	"github.com/tropicaldog17/replyqueue/internal/logger"
	"github.com/tropicaldog17/replyqueue/internal/models"
	"github.com/tropicaldog17/replyqueue/internal/repositories"
)

const batchIDLayout = "2006-01-02T15:04:05.000000000Z"

// ReviewService owns the review lock and the lifecycle of review batches and items.
type ReviewService interface {
	IsLocked(ctx context.Context) (bool, error)
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error

	// GetOrCreateBatch returns the PENDING_REVIEW batch, creating one when none exists.
	GetOrCreateBatch(ctx context.Context) (string, error)
	// Decide moves a pending batch to APPROVED or REJECTED. Unlocking is the caller's job.
	Decide(ctx context.Context, batchID string, outcome models.BatchStatus) error
	GetBatch(ctx context.Context, batchID string) (*models.ReviewBatch, error)

	RecordItem(ctx context.Context, item *models.ReviewItem) (bool, error)
	CountItems(ctx context.Context, batchID string) (int64, error)
	ListItems(ctx context.Context, batchID string) ([]*models.ReviewItem, error)
	RemoveItem(ctx context.Context, batchID string, itemID int64) error
}

type reviewService struct {
	state  repositories.StateRepository
	review repositories.ReviewRepository
	now    Clock
	logger *zap.Logger
}

func NewReviewService(state repositories.StateRepository, review repositories.ReviewRepository, log *zap.Logger) ReviewService {
	return &reviewService{state: state, review: review, now: utcNow, logger: logger.OrNop(log)}
}

func (s *reviewService) IsLocked(ctx context.Context) (bool, error) {
	v, _, err := s.state.Get(ctx, models.StateKeyReviewLock)
	if err != nil {
		return false, fmt.Errorf("failed to read review lock: %w", err)
	}
	return v == "true", nil
}

func (s *reviewService) Lock(ctx context.Context) error {
	if err := s.state.Set(ctx, models.StateKeyReviewLock, "true"); err != nil {
		return fmt.Errorf("failed to set review lock: %w", err)
	}
	s.logger.Info("review lock set")
	return nil
}

func (s *reviewService) Unlock(ctx context.Context) error {
	if err := s.state.Set(ctx, models.StateKeyReviewLock, "false"); err != nil {
		return fmt.Errorf("failed to clear review lock: %w", err)
	}
	s.logger.Info("review lock cleared")
	return nil
}

func (s *reviewService) GetOrCreateBatch(ctx context.Context) (string, error) {
	pending, err := s.review.GetPendingBatch(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load pending batch: %w", err)
	}
	if pending != nil {
		return pending.BatchID, nil
	}

	now := s.now()
	batchID := newBatchID(now)
	if err := s.review.CreateBatch(ctx, &models.ReviewBatch{
		BatchID:   batchID,
		Status:    models.BatchStatusPendingReview,
		CreatedAt: now,
	}); err != nil {
		return "", fmt.Errorf("failed to create batch: %w", err)
	}

	// re-read so a concurrent creator and this call agree on one pending batch
	pending, err = s.review.GetPendingBatch(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load pending batch: %w", err)
	}
	if pending == nil {
		return "", fmt.Errorf("batch %s was not created", batchID)
	}
	s.logger.Info("review batch created", zap.String("batch_id", pending.BatchID))
	return pending.BatchID, nil
}

func (s *reviewService) Decide(ctx context.Context, batchID string, outcome models.BatchStatus) error {
	if strings.TrimSpace(batchID) == "" {
		return &apperrors.ErrValidation{Field: "batch_id", Message: "is required"}
	}
	if !outcome.IsDecision() {
		return &apperrors.ErrValidation{Field: "outcome", Message: fmt.Sprintf("must be %s or %s", models.BatchStatusApproved, models.BatchStatusRejected)}
	}

	updated, err := s.review.SetBatchStatus(ctx, batchID, outcome, s.now())
	if err != nil {
		return fmt.Errorf("failed to decide batch %s: %w", batchID, err)
	}
	if !updated {
		if _, err := s.review.GetBatch(ctx, batchID); err != nil {
			return fmt.Errorf("batch %s: %w", batchID, err)
		}
		return fmt.Errorf("batch %s: %w", batchID, apperrors.ErrAlreadyDecided)
	}
	s.logger.Info("review batch decided", zap.String("batch_id", batchID), zap.String("outcome", string(outcome)))
	return nil
}

func (s *reviewService) GetBatch(ctx context.Context, batchID string) (*models.ReviewBatch, error) {
	return s.review.GetBatch(ctx, batchID)
}

func (s *reviewService) RecordItem(ctx context.Context, item *models.ReviewItem) (bool, error) {
	item.Status = models.ItemStatusPending
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	inserted, err := s.review.InsertItem(ctx, item)
	if err != nil {
		return false, fmt.Errorf("failed to record item for comment %s: %w", item.CommentID, err)
	}
	if !inserted {
		s.logger.Debug("comment already has a review item", zap.String("comment_id", item.CommentID))
	}
	return inserted, nil
}

func (s *reviewService) CountItems(ctx context.Context, batchID string) (int64, error) {
	return s.review.CountItems(ctx, batchID)
}

func (s *reviewService) ListItems(ctx context.Context, batchID string) ([]*models.ReviewItem, error) {
	return s.review.ListItems(ctx, batchID)
}

// RemoveItem curates a pending batch; items of decided batches can no longer change.
func (s *reviewService) RemoveItem(ctx context.Context, batchID string, itemID int64) error {
	if strings.TrimSpace(batchID) == "" {
		return &apperrors.ErrValidation{Field: "batch_id", Message: "is required"}
	}
	if itemID <= 0 {
		return &apperrors.ErrValidation{Field: "item_id", Message: "must be positive"}
	}
	batch, err := s.review.GetBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("batch %s: %w", batchID, err)
	}
	if batch.Status != models.BatchStatusPendingReview {
		return fmt.Errorf("batch %s: %w", batchID, apperrors.ErrAlreadyDecided)
	}
	removed, err := s.review.RemoveItem(ctx, batchID, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove item %d: %w", itemID, err)
	}
	if !removed {
		return fmt.Errorf("item %d in batch %s: %w", itemID, batchID, apperrors.ErrNotFound)
	}
	s.logger.Info("review item removed", zap.String("batch_id", batchID), zap.Int64("item_id", itemID))
	return nil
}

func newBatchID(t time.Time) string {
	stamp := t.UTC().Format(batchIDLayout)
	return "batch_" + strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
}
