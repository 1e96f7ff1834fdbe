package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"clonehub/internal/model"
)

// InteractionRepository only inserts and reads; audit rows are never changed.
type InteractionRepository struct {
	db *gorm.DB
}

func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

func (r *InteractionRepository) Create(ctx context.Context, interaction *model.AIInteraction) error {
	if err := r.db.WithContext(ctx).Create(interaction).Error; err != nil {
		return fmt.Errorf("create ai interaction failed: %w", err)
	}
	return nil
}

func (r *InteractionRepository) ListByCloneID(ctx context.Context, cloneID string, limit int) ([]model.AIInteraction, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var list []model.AIInteraction
	if err := r.db.WithContext(ctx).Where("clone_id = ?", cloneID).Order("created_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list ai interactions failed: %w", err)
	}
	return list, nil
}
