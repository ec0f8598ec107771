package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"learnpilot-rag/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) ListByUserID(userID string) ([]model.Document, error) {
	var list []model.Document
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

func (r *DocumentRepository) GetByIDAndUserID(id, userID string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

// UpdateStatus moves a document to the given status. FailReason is only
// written for failed; a later successful pass clears it.
func (r *DocumentRepository) UpdateStatus(id, status, failReason string) error {
	updates := map[string]interface{}{
		"status":      status,
		"fail_reason": failReason,
	}
	if err := r.db.Model(&model.Document{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("update document status failed: %w", err)
	}
	return nil
}

// MarkIndexed records a successful indexing pass with its passage count
// and the embedder identifier the passages were written with.
func (r *DocumentRepository) MarkIndexed(id string, chunkCount int, embedder string) error {
	updates := map[string]interface{}{
		"status":      model.StatusIndexed,
		"fail_reason": "",
		"chunk_count": chunkCount,
		"embedder":    embedder,
	}
	if err := r.db.Model(&model.Document{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("mark document indexed failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) DeleteByIDAndUserID(id, userID string) error {
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}
