package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/tropicaldog17/replyqueue/internal/logger"
	"github.com/tropicaldog17/replyqueue/internal/models"
	"github.com/tropicaldog17/replyqueue/internal/repositories"
)

// EmbeddingCache keeps one vector per exact answer text. Entries are only ever
// appended; a reworded answer is a miss and gets a fresh vector.
type EmbeddingCache struct {
	store  repositories.VectorCacheRepository
	model  LanguageModel
	logger *zap.Logger
}

func NewEmbeddingCache(store repositories.VectorCacheRepository, model LanguageModel, log *zap.Logger) *EmbeddingCache {
	return &EmbeddingCache{store: store, model: model, logger: logger.OrNop(log)}
}

// Ensure returns vectors keyed by text for every entry it can, embedding the
// missing texts in a single call. Failures leave the missing texts out.
func (c *EmbeddingCache) Ensure(ctx context.Context, entries []models.AnswerBankEntry) map[string][]float32 {
	cached, err := c.store.LoadAll(ctx)
	if err != nil {
		c.logger.Warn("vector cache load failed, treating as empty", zap.Error(err))
		cached = nil
	}

	byText := make(map[string][]float32, len(cached))
	for _, v := range cached {
		byText[v.Text] = v.Vector
	}

	var missing []models.AnswerBankEntry
	seen := make(map[string]bool)
	for _, e := range entries {
		if _, ok := byText[e.Text]; ok || seen[e.Text] {
			continue
		}
		seen[e.Text] = true
		missing = append(missing, e)
	}
	if len(missing) == 0 {
		return byText
	}

	texts := make([]string, len(missing))
	for i, m := range missing {
		texts[i] = m.Text
	}
	vecs, err := c.model.Embed(ctx, texts)
	if err != nil {
		c.logger.Warn("embedding answer texts failed", zap.Int("missing", len(texts)), zap.Error(err))
		return byText
	}
	if len(vecs) != len(texts) {
		c.logger.Warn("embedding count mismatch", zap.Int("want", len(texts)), zap.Int("got", len(vecs)))
		return byText
	}

	added := make([]models.CachedVector, 0, len(missing))
	for i, m := range missing {
		if len(vecs[i]) == 0 {
			continue
		}
		byText[m.Text] = vecs[i]
		added = append(added, models.CachedVector{
			Text:     m.Text,
			AnswerID: m.ID,
			Lang:     m.Language(),
			Vector:   vecs[i],
		})
	}
	if err := c.store.Append(ctx, added); err != nil {
		c.logger.Warn("persisting answer vectors failed", zap.Int("count", len(added)), zap.Error(err))
	} else {
		c.logger.Debug("answer vectors cached", zap.Int("count", len(added)))
	}
	return byText
}
