package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Visibility string

const (
	VisibilityWorkspace Visibility = "workspace"
	VisibilityGlobal    Visibility = "global"
)

func (v Visibility) Valid() bool {
	return v == VisibilityWorkspace || v == VisibilityGlobal
}

// Clone is an AI persona. A nil WorkspaceID means the clone is not
// workspace-scoped.
type Clone struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	WorkspaceID *string         `gorm:"size:64;index" json:"workspace_id"`
	Name        string          `gorm:"size:128;not null" json:"name"`
	BasePrompt  string          `gorm:"type:text;not null" json:"base_prompt"`
	Visibility  Visibility      `gorm:"size:16;not null;index" json:"visibility"`
	Documents   []CloneDocument `gorm:"foreignKey:CloneID;constraint:OnDelete:CASCADE" json:"documents,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (c *Clone) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
