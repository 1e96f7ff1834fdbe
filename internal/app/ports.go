package app

import (
	"context"

	"clonehub/internal/ai"
	"clonehub/internal/model"
	"clonehub/internal/repository"
)

type CloneStore interface {
	Create(ctx context.Context, clone *model.Clone) error
	GetByID(ctx context.Context, id string) (*model.Clone, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, workspaceID *string) ([]model.Clone, error)
	Update(ctx context.Context, id string, changes map[string]interface{}) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type DocumentStore interface {
	Create(ctx context.Context, doc *model.CloneDocument) error
	GetByID(ctx context.Context, id string) (*model.CloneDocument, error)
	ListByCloneID(ctx context.Context, cloneID string) ([]model.CloneDocument, error)
	UpdateStatus(ctx context.Context, id string, change repository.StatusChange) (bool, error)
}

type InteractionStore interface {
	Create(ctx context.Context, interaction *model.AIInteraction) error
	ListByCloneID(ctx context.Context, cloneID string, limit int) ([]model.AIInteraction, error)
}

// Gateway is the part of the AI service client the services depend on.
type Gateway interface {
	UploadDocument(ctx context.Context, in ai.UploadRequest) (ai.UploadReceipt, error)
	Chat(ctx context.Context, in ai.ChatRequest) (*ai.ChatResponse, error)
	SemanticSearch(ctx context.Context, in ai.SearchRequest) (ai.SearchResult, error)
	CheckHealth(ctx context.Context) (*ai.HealthStatus, error)
}

type CloneCache interface {
	GetClone(ctx context.Context, id string) (*model.Clone, bool, error)
	SetClone(ctx context.Context, clone *model.Clone) error
	Invalidate(ctx context.Context, id string) error
}

type StatusPublisher interface {
	PublishStatus(ctx context.Context, event model.DocumentStatusEvent) error
}
