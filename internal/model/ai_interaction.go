package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AIInteraction is one audited chat exchange. Rows are only ever inserted.
type AIInteraction struct {
	ID          string                      `gorm:"primaryKey;size:36" json:"id"`
	UserID      string                      `gorm:"size:64;not null;index" json:"user_id"`
	CloneID     string                      `gorm:"size:36;not null;index" json:"clone_id"`
	WorkspaceID *string                     `gorm:"size:64;index" json:"workspace_id"`
	ChannelID   *string                     `gorm:"size:64" json:"channel_id"`
	Query       string                      `gorm:"type:text;not null" json:"query"`
	Context     datatypes.JSONSlice[string] `json:"context"`
	Response    string                      `gorm:"type:text;not null" json:"response"`
	CreatedAt   time.Time                   `json:"created_at"`
}

func (AIInteraction) TableName() string {
	return "ai_interactions"
}

func (i *AIInteraction) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
