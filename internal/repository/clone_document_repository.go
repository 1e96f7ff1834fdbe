package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"clonehub/internal/model"
)

type CloneDocumentRepository struct {
	db *gorm.DB
}

func NewCloneDocumentRepository(db *gorm.DB) *CloneDocumentRepository {
	return &CloneDocumentRepository{db: db}
}

func (r *CloneDocumentRepository) Create(ctx context.Context, doc *model.CloneDocument) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create clone document failed: %w", err)
	}
	return nil
}

func (r *CloneDocumentRepository) GetByID(ctx context.Context, id string) (*model.CloneDocument, error) {
	var doc model.CloneDocument
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get clone document failed: %w", err)
	}
	return &doc, nil
}

func (r *CloneDocumentRepository) ListByCloneID(ctx context.Context, cloneID string) ([]model.CloneDocument, error) {
	var docs []model.CloneDocument
	if err := r.db.WithContext(ctx).Where("clone_id = ?", cloneID).Order("uploaded_at ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list clone documents failed: %w", err)
	}
	return docs, nil
}

// StatusChange moves a document from one observed status to the next.
type StatusChange struct {
	From         model.DocumentStatus
	To           model.DocumentStatus
	ProcessedAt  *time.Time
	ErrorMessage string
}

// UpdateStatus applies change only if the row still has change.From. It
// returns false when another writer moved the document first.
func (r *CloneDocumentRepository) UpdateStatus(ctx context.Context, id string, change StatusChange) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.CloneDocument{}).
		Where("id = ? AND status = ?", id, change.From).
		Updates(map[string]interface{}{
			"status":        change.To,
			"processed_at":  change.ProcessedAt,
			"error_message": change.ErrorMessage,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("update clone document status failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
