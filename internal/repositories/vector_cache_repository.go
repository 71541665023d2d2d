package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tropicaldog17/replyqueue/internal/db"
	"github.com/tropicaldog17/replyqueue/internal/models"
)

type vectorCacheRepository struct {
	db *db.DB
}

// NewVectorCacheRepository stores embeddings in the answer_vectors table.
func NewVectorCacheRepository(database *db.DB) VectorCacheRepository {
	return &vectorCacheRepository{db: database}
}

func (r *vectorCacheRepository) LoadAll(ctx context.Context) ([]models.CachedVector, error) {
	var list []models.CachedVector
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *vectorCacheRepository) Append(ctx context.Context, vectors []models.CachedVector) error {
	if len(vectors) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range vectors {
			if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "text"}}, DoNothing: true}).
				Create(&vectors[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
