package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentProcessed  DocumentStatus = "processed"
	DocumentFailed     DocumentStatus = "failed"
)

func (s DocumentStatus) rank() int {
	switch s {
	case DocumentPending:
		return 0
	case DocumentProcessing:
		return 1
	case DocumentProcessed, DocumentFailed:
		return 2
	default:
		return -1
	}
}

func (s DocumentStatus) Valid() bool { return s.rank() >= 0 }

func (s DocumentStatus) Terminal() bool { return s.rank() == 2 }

// CanTransitionTo reports whether moving from s to next keeps the status
// sequence pending -> processing -> processed|failed monotonic. Skipping
// processing is allowed; staying in place is not a transition.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() > s.rank()
}

// CloneDocument is a knowledge-source file indexed by the AI service for one clone.
type CloneDocument struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	CloneID         string         `gorm:"size:36;not null;index" json:"clone_id"`
	FileName        string         `gorm:"size:255;not null" json:"file_name"`
	FileType        string         `gorm:"size:128;not null" json:"file_type"`
	Status          DocumentStatus `gorm:"size:16;not null;index" json:"status"`
	RemoteIndexName string         `gorm:"size:128;not null" json:"remote_index_name"`
	ErrorMessage    string         `gorm:"size:512" json:"error_message,omitempty"`
	UploadedAt      time.Time      `gorm:"not null" json:"uploaded_at"`
	ProcessedAt     *time.Time     `json:"processed_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (d *CloneDocument) BeforeCreate(*gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// DocumentStatusEvent is published when the AI service reports indexing
// progress for a document.
type DocumentStatusEvent struct {
	DocumentID   string         `json:"document_id"`
	Status       DocumentStatus `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ReportedAt   time.Time      `json:"reported_at"`
}
