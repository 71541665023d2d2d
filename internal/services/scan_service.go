package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tropicaldog17/replyqueue/internal/logger"
	"github.com/tropicaldog17/replyqueue/internal/models"
)

// ScanConfig bounds one scan cycle.
type ScanConfig struct {
	MaxBatchSize     int `yaml:"max_batch_size"`
	PostLookbackDays int `yaml:"post_lookback_days"`
}

func DefaultScanConfig() ScanConfig {
	return ScanConfig{MaxBatchSize: 50, PostLookbackDays: 7}
}

// ScanService fills the pending review batch from recent comments and hands it to a human.
type ScanService struct {
	review   ReviewService
	platform PlatformClient
	proposer Proposer
	notifier ReviewNotifier
	links    *LinkBuilder
	cfg      ScanConfig
	logger   *zap.Logger
}

func NewScanService(review ReviewService, platform PlatformClient, proposer Proposer, notifier ReviewNotifier, links *LinkBuilder, cfg ScanConfig, log *zap.Logger) *ScanService {
	def := DefaultScanConfig()
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = def.MaxBatchSize
	}
	if cfg.PostLookbackDays <= 0 {
		cfg.PostLookbackDays = def.PostLookbackDays
	}
	if links == nil {
		links = NewLinkBuilder("", "")
	}
	return &ScanService{
		review:   review,
		platform: platform,
		proposer: proposer,
		notifier: notifier,
		links:    links,
		cfg:      cfg,
		logger:   logger.OrNop(log),
	}
}

// RunScan performs one scan cycle. Platform and model failures only skip work.
// Cancellation or a failed item write ends the walk early but the batch is still
// locked and presented; the returned error is reserved for lock-state failures.
func (s *ScanService) RunScan(ctx context.Context) (*models.ScanResult, error) {
	result := &models.ScanResult{}

	locked, err := s.review.IsLocked(ctx)
	if err != nil {
		return nil, err
	}
	if locked {
		s.logger.Info("review lock held, skipping scan")
		result.Skipped = true
		result.Locked = true
		return result, nil
	}

	batchID, err := s.review.GetOrCreateBatch(ctx)
	if err != nil {
		return nil, err
	}
	result.BatchID = batchID
	log := s.logger.With(zap.String("batch_id", batchID))

	count, err := s.review.CountItems(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to count batch items: %w", err)
	}

	posts, err := s.platform.ListRecentPosts(ctx, s.cfg.PostLookbackDays)
	if err != nil {
		log.Warn("listing recent posts failed", zap.Error(err))
		posts = nil
	}
	result.PostsSeen = len(posts)
	log.Info("scan started", zap.Int("posts", len(posts)), zap.Int64("existing_items", count))

scan:
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			result.Interrupted = err.Error()
			break
		}
		if s.full(count) {
			break
		}

		comments, err := s.platform.ListTopLevelComments(ctx, post.ID)
		if err != nil {
			log.Warn("listing comments failed", zap.String("post_id", post.ID), zap.Error(err))
			continue
		}

		for _, c := range comments {
			if err := ctx.Err(); err != nil {
				result.Interrupted = err.Error()
				break scan
			}
			if s.full(count) {
				break scan
			}
			result.CommentsSeen++

			added, err := s.considerComment(ctx, log, batchID, post, c)
			if err != nil {
				log.Error("recording review item failed, ending scan early", zap.String("comment_id", c.ID), zap.Error(err))
				result.Interrupted = err.Error()
				break scan
			}
			if added {
				count++
				result.ItemsAdded++
			}
		}
	}

	result.TotalItems = count
	if count == 0 {
		log.Info("scan found no eligible comments")
		return result, nil
	}

	// Whatever the batch holds goes to review, including items left by an
	// earlier scan that stopped before it could lock.
	lockCtx := context.WithoutCancel(ctx)
	if err := s.review.Lock(lockCtx); err != nil {
		return nil, err
	}
	result.Locked = true

	if err := s.notify(lockCtx, batchID); err != nil {
		log.Warn("review notification failed", zap.Error(err))
		result.NotifyFailure = err.Error()
	}
	log.Info("scan finished, batch sent for review",
		zap.Int("items_added", result.ItemsAdded),
		zap.Int64("total_items", count),
		zap.String("interrupted", result.Interrupted))
	return result, nil
}

func (s *ScanService) full(count int64) bool {
	return count >= int64(s.cfg.MaxBatchSize)
}

func (s *ScanService) considerComment(ctx context.Context, log *zap.Logger, batchID string, post models.Post, c models.Comment) (bool, error) {
	text := strings.TrimSpace(c.Text)
	if text == "" || c.ID == "" {
		return false, nil
	}
	log = log.With(zap.String("post_id", post.ID), zap.String("comment_id", c.ID))

	replied, err := s.platform.HasAccountReplied(ctx, c.ID)
	if err != nil {
		log.Warn("reply check failed, skipping comment", zap.Error(err))
		return false, nil
	}
	if replied {
		return false, nil
	}

	proposal := s.proposer.Propose(ctx, text)
	if proposal == nil || proposal.Text == "" {
		return false, nil
	}

	reply := proposal.Text
	score := proposal.Score
	inserted, err := s.review.RecordItem(ctx, &models.ReviewItem{
		BatchID:       batchID,
		PostID:        post.ID,
		PostLink:      post.PermalinkURL,
		CommentID:     c.ID,
		CommentText:   text,
		ProposedReply: &reply,
		ImpactScore:   &score,
	})
	if err != nil {
		return false, err
	}
	if inserted {
		log.Debug("review item recorded", zap.Int("impact_score", score))
	}
	return inserted, nil
}

func (s *ScanService) notify(ctx context.Context, batchID string) error {
	if s.notifier == nil {
		return nil
	}
	preview, err := BuildPreview(ctx, s.review, s.links, batchID)
	if err != nil {
		return err
	}
	if len(preview.Items) == 0 {
		return nil
	}
	return s.notifier.PresentBatch(ctx, preview)
}

// BuildPreview assembles the human-facing view of a batch with its decision links.
func BuildPreview(ctx context.Context, review ReviewService, links *LinkBuilder, batchID string) (*models.BatchPreview, error) {
	items, err := review.ListItems(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch items: %w", err)
	}
	preview := &models.BatchPreview{
		BatchID:    batchID,
		ApproveURL: links.ApproveURL(batchID),
		RejectURL:  links.RejectURL(batchID),
		Items:      make([]models.PreviewItem, 0, len(items)),
	}
	for _, it := range items {
		preview.Items = append(preview.Items, models.PreviewItem{
			ItemID:        it.ID,
			PostID:        it.PostID,
			PostLink:      it.PostLink,
			CommentText:   it.CommentText,
			ProposedReply: it.Reply(),
			ImpactScore:   it.ImpactScore,
			Status:        it.Status,
			RemoveURL:     links.RemoveURL(batchID, it.ID),
		})
	}
	return preview, nil
}
