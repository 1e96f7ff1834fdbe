package app

import (
	"context"
	"strings"

	"clonehub/internal/apperr"
	"clonehub/internal/model"
)

// InteractionLog is the append-only audit trail of chat exchanges.
type InteractionLog struct {
	interactions InteractionStore
}

type LogInput struct {
	UserID      string
	CloneID     string
	WorkspaceID *string
	ChannelID   *string
	Query       string
	Context     []string
	Response    string
}

func NewInteractionLog(interactions InteractionStore) *InteractionLog {
	return &InteractionLog{interactions: interactions}
}

func (l *InteractionLog) LogInteraction(ctx context.Context, input LogInput) (*model.AIInteraction, error) {
	if strings.TrimSpace(input.UserID) == "" || strings.TrimSpace(input.CloneID) == "" {
		return nil, apperr.Validation("user_id and clone_id are required")
	}
	snippets := input.Context
	if snippets == nil {
		snippets = []string{}
	}
	interaction := &model.AIInteraction{
		UserID:      input.UserID,
		CloneID:     input.CloneID,
		WorkspaceID: input.WorkspaceID,
		ChannelID:   input.ChannelID,
		Query:       input.Query,
		Context:     snippets,
		Response:    input.Response,
	}
	if err := l.interactions.Create(ctx, interaction); err != nil {
		return nil, apperr.Unknown("record interaction failed", err)
	}
	return interaction, nil
}

// ListByClone returns the newest interactions first.
func (l *InteractionLog) ListByClone(ctx context.Context, cloneID string, limit int) ([]model.AIInteraction, error) {
	if strings.TrimSpace(cloneID) == "" {
		return nil, apperr.Validation("clone id is required")
	}
	list, err := l.interactions.ListByCloneID(ctx, cloneID, limit)
	if err != nil {
		return nil, apperr.Unknown("list interactions failed", err)
	}
	if list == nil {
		list = []model.AIInteraction{}
	}
	return list, nil
}
