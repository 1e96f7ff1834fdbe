package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"clonehub/internal/model"
)

type CloneRepository struct {
	db *gorm.DB
}

func NewCloneRepository(db *gorm.DB) *CloneRepository {
	return &CloneRepository{db: db}
}

func (r *CloneRepository) Create(ctx context.Context, clone *model.Clone) error {
	if err := r.db.WithContext(ctx).Omit("Documents").Create(clone).Error; err != nil {
		return fmt.Errorf("create clone failed: %w", err)
	}
	return nil
}

// GetByID returns the clone with its documents, or nil when it does not exist.
func (r *CloneRepository) GetByID(ctx context.Context, id string) (*model.Clone, error) {
	var clone model.Clone
	err := r.db.WithContext(ctx).
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("uploaded_at ASC")
		}).
		Where("id = ?", id).
		First(&clone).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get clone failed: %w", err)
	}
	return &clone, nil
}

// Exists skips the documents preload.
func (r *CloneRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Clone{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check clone failed: %w", err)
	}
	return count > 0, nil
}

// List returns global clones plus, when workspaceID is set, the clones scoped
// to that workspace.
func (r *CloneRepository) List(ctx context.Context, workspaceID *string) ([]model.Clone, error) {
	q := r.db.WithContext(ctx).Model(&model.Clone{})
	if workspaceID != nil {
		q = q.Where("workspace_id = ? OR visibility = ?", *workspaceID, model.VisibilityGlobal)
	} else {
		q = q.Where("visibility = ?", model.VisibilityGlobal)
	}

	var clones []model.Clone
	if err := q.Order("created_at ASC").Order("id ASC").Find(&clones).Error; err != nil {
		return nil, fmt.Errorf("list clones failed: %w", err)
	}
	return clones, nil
}

// Update applies the column changes and reports whether the clone existed.
func (r *CloneRepository) Update(ctx context.Context, id string, changes map[string]interface{}) (bool, error) {
	exists, err := r.Exists(ctx, id)
	if err != nil || !exists {
		return false, err
	}
	if len(changes) == 0 {
		return true, nil
	}
	if err := r.db.WithContext(ctx).Model(&model.Clone{ID: id}).Updates(changes).Error; err != nil {
		return false, fmt.Errorf("update clone failed: %w", err)
	}
	return true, nil
}

// Delete removes the clone and its document records. It reports whether the
// clone existed.
func (r *CloneRepository) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("clone_id = ?", id).Delete(&model.CloneDocument{}).Error; err != nil {
			return fmt.Errorf("delete clone documents failed: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&model.Clone{})
		if res.Error != nil {
			return fmt.Errorf("delete clone failed: %w", res.Error)
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
