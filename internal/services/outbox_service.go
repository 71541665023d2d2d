package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tropicaldog17/replyqueue/internal/logger"
	"github.com/tropicaldog17/replyqueue/internal/models"
	"github.com/tropicaldog17/replyqueue/internal/repositories"
)

// OutboxConfig controls send spacing and rehearsal mode.
type OutboxConfig struct {
	MinDelaySec int  `yaml:"send_min_delay_sec"`
	MaxDelaySec int  `yaml:"send_max_delay_sec"`
	DryRun      bool `yaml:"dry_run"`
}

func DefaultOutboxConfig() OutboxConfig {
	return OutboxConfig{MinDelaySec: 300, MaxDelaySec: 420, DryRun: true}
}

// OutboxService schedules approved replies and delivers them one per tick.
type OutboxService struct {
	review   repositories.ReviewRepository
	outbox   repositories.OutboxRepository
	platform PlatformClient
	rnd      RandomSource
	now      Clock
	cfg      OutboxConfig
	logger   *zap.Logger
}

func NewOutboxService(review repositories.ReviewRepository, outbox repositories.OutboxRepository, platform PlatformClient, rnd RandomSource, cfg OutboxConfig, log *zap.Logger) *OutboxService {
	if rnd == nil {
		rnd = DefaultRandom()
	}
	return &OutboxService{
		review:   review,
		outbox:   outbox,
		platform: platform,
		rnd:      rnd,
		now:      utcNow,
		cfg:      cfg,
		logger:   logger.OrNop(log),
	}
}

// WithClock replaces the time source.
func (s *OutboxService) WithClock(now Clock) *OutboxService {
	s.now = now
	return s
}

// ScheduleBatch queues every pending item with a reply. Each send lands a random
// [min,max] seconds after the previous one, so times strictly increase.
func (s *OutboxService) ScheduleBatch(ctx context.Context, batchID string, approvedAt time.Time) ([]*models.OutboxEntry, error) {
	items, err := s.review.ListSchedulableItems(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items for batch %s: %w", batchID, err)
	}
	if len(items) == 0 {
		s.logger.Info("approved batch has nothing to send", zap.String("batch_id", batchID))
		return nil, nil
	}

	// whole seconds, rounded up so the first gap is never below the minimum
	base := approvedAt.UTC().Add(time.Second - 1).Truncate(time.Second)
	var offset time.Duration
	entries := make([]*models.OutboxEntry, 0, len(items))
	for _, it := range items {
		offset += s.jitter()
		entries = append(entries, &models.OutboxEntry{
			BatchID:     batchID,
			PostID:      it.PostID,
			PostLink:    it.PostLink,
			CommentID:   it.CommentID,
			ReplyText:   it.Reply(),
			ScheduledAt: base.Add(offset),
			Status:      models.OutboxStatusQueued,
		})
	}

	n, err := s.outbox.Enqueue(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue batch %s: %w", batchID, err)
	}
	s.logger.Info("batch scheduled",
		zap.String("batch_id", batchID),
		zap.Int("queued", n),
		zap.Int("skipped", len(entries)-n),
		zap.Time("first_send", entries[0].ScheduledAt),
		zap.Time("last_send", entries[len(entries)-1].ScheduledAt))
	return entries, nil
}

func (s *OutboxService) jitter() time.Duration {
	lo, hi := s.cfg.MinDelaySec, s.cfg.MaxDelaySec
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	return time.Duration(lo+s.rnd.IntN(hi-lo+1)) * time.Second
}

// Tick delivers at most one due entry. A nil result means nothing was due.
// Delivery failures are recorded on the entry, never retried and never returned.
func (s *OutboxService) Tick(ctx context.Context) (*models.TickResult, error) {
	entry, err := s.outbox.FetchDue(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due outbox entry: %w", err)
	}
	if entry == nil {
		return nil, nil
	}

	log := s.logger.With(zap.String("outbox_id", entry.ID), zap.String("comment_id", entry.CommentID))
	result := &models.TickResult{EntryID: entry.ID, CommentID: entry.CommentID, DryRun: s.cfg.DryRun}

	if s.cfg.DryRun {
		log.Info("dry run, not sending reply", zap.String("reply", entry.ReplyText))
		return s.markSent(ctx, log, result)
	}

	replyID, err := s.platform.PostReply(ctx, entry.CommentID, entry.ReplyText)
	switch {
	case err != nil:
		return s.markFailed(ctx, log, result, "reply_failed: "+err.Error())
	case replyID == "":
		return s.markFailed(ctx, log, result, "reply_failed: empty id")
	}
	result.ReplyID = replyID
	log.Info("reply sent", zap.String("reply_id", replyID))
	return s.markSent(ctx, log, result)
}

func (s *OutboxService) markSent(ctx context.Context, log *zap.Logger, result *models.TickResult) (*models.TickResult, error) {
	ok, err := s.outbox.MarkSent(ctx, result.EntryID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to mark %s sent: %w", result.EntryID, err)
	}
	if !ok {
		log.Warn("outbox entry left QUEUED before it could be marked sent")
	}
	result.Status = models.OutboxStatusSent
	return result, nil
}

func (s *OutboxService) markFailed(ctx context.Context, log *zap.Logger, result *models.TickResult, reason string) (*models.TickResult, error) {
	log.Warn("reply delivery failed", zap.String("reason", reason))
	ok, err := s.outbox.MarkFailed(ctx, result.EntryID, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to mark %s failed: %w", result.EntryID, err)
	}
	if !ok {
		log.Warn("outbox entry left QUEUED before it could be marked failed")
	}
	result.Status = models.OutboxStatusFailed
	result.FailReason = reason
	return result, nil
}

// CancelBatch cancels every entry of the batch that has not been sent yet.
func (s *OutboxService) CancelBatch(ctx context.Context, batchID string) (int64, error) {
	n, err := s.outbox.CancelQueued(ctx, batchID)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel batch %s: %w", batchID, err)
	}
	s.logger.Info("queued replies canceled", zap.String("batch_id", batchID), zap.Int64("canceled", n))
	return n, nil
}

func (s *OutboxService) List(ctx context.Context, filter *models.OutboxFilter) ([]*models.OutboxEntry, error) {
	return s.outbox.List(ctx, filter)
}
