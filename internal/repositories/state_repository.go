package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tropicaldog17/replyqueue/internal/db"
	"github.com/tropicaldog17/replyqueue/internal/models"
)

type stateRepository struct {
	db *db.DB
}

func NewStateRepository(database *db.DB) StateRepository {
	return &stateRepository{db: database}
}

func (r *stateRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var s models.SystemState
	err := r.db.WithContext(ctx).First(&s, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s.Value, true, nil
}

func (r *stateRepository) Set(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&models.SystemState{Key: key, Value: value}).Error
}
