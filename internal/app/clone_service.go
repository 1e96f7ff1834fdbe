package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"clonehub/internal/apperr"
	"clonehub/internal/model"
)

// CloneService owns clone persona records.
type CloneService struct {
	clones CloneStore
	cache  CloneCache
	logger *zap.Logger
}

type CreateCloneInput struct {
	WorkspaceID *string
	Name        string
	BasePrompt  string
	Visibility  string
}

// UpdateCloneInput carries a partial update. Nil fields are left unchanged;
// a non-nil empty WorkspaceID clears the workspace.
type UpdateCloneInput struct {
	WorkspaceID *string
	Name        *string
	BasePrompt  *string
	Visibility  *string
}

func NewCloneService(clones CloneStore, cache CloneCache, logger *zap.Logger) *CloneService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloneService{
		clones: clones,
		cache:  cache,
		logger: logger.Named("clone"),
	}
}

func (s *CloneService) Create(ctx context.Context, input CreateCloneInput) (*model.Clone, error) {
	name := strings.TrimSpace(input.Name)
	prompt := strings.TrimSpace(input.BasePrompt)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}

	workspaceID := normalizeWorkspace(input.WorkspaceID)
	visibility := model.Visibility(strings.TrimSpace(input.Visibility))
	if visibility == "" {
		visibility = model.VisibilityGlobal
		if workspaceID != nil {
			visibility = model.VisibilityWorkspace
		}
	}
	if !visibility.Valid() {
		return nil, apperr.Validation("visibility must be workspace or global")
	}
	if visibility == model.VisibilityWorkspace && workspaceID == nil {
		return nil, apperr.Validation("workspace visibility requires workspace_id")
	}

	clone := &model.Clone{
		WorkspaceID: workspaceID,
		Name:        name,
		BasePrompt:  prompt,
		Visibility:  visibility,
	}
	if err := s.clones.Create(ctx, clone); err != nil {
		return nil, apperr.Unknown("create clone failed", err)
	}
	s.logger.Info("clone created", zap.String("clone_id", clone.ID), zap.String("visibility", string(visibility)))
	return clone, nil
}

// Get returns the clone with its documents.
func (s *CloneService) Get(ctx context.Context, id string) (*model.Clone, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.Validation("clone id is required")
	}

	if s.cache != nil {
		cached, ok, err := s.cache.GetClone(ctx, id)
		if err != nil {
			s.logger.Warn("read clone cache failed", zap.String("clone_id", id), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	clone, err := s.clones.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Unknown("get clone failed", err)
	}
	if clone == nil {
		return nil, apperr.NotFound("clone not found")
	}

	if s.cache != nil {
		if err := s.cache.SetClone(ctx, clone); err != nil {
			s.logger.Warn("write clone cache failed", zap.String("clone_id", id), zap.Error(err))
		}
	}
	return clone, nil
}

// List returns the clones visible from workspaceID, or only global clones
// when no workspace is given.
func (s *CloneService) List(ctx context.Context, workspaceID *string) ([]model.Clone, error) {
	clones, err := s.clones.List(ctx, normalizeWorkspace(workspaceID))
	if err != nil {
		return nil, apperr.Unknown("list clones failed", err)
	}
	if clones == nil {
		clones = []model.Clone{}
	}
	return clones, nil
}

func (s *CloneService) Update(ctx context.Context, id string, input UpdateCloneInput) (*model.Clone, error) {
	current, err := s.clones.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Unknown("get clone failed", err)
	}
	if current == nil {
		return nil, apperr.NotFound("clone not found")
	}

	changes := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		changes["name"] = name
	}
	if input.BasePrompt != nil {
		changes["base_prompt"] = strings.TrimSpace(*input.BasePrompt)
	}

	workspaceID := current.WorkspaceID
	if input.WorkspaceID != nil {
		workspaceID = normalizeWorkspace(input.WorkspaceID)
		changes["workspace_id"] = workspaceID
	}
	visibility := current.Visibility
	if input.Visibility != nil {
		visibility = model.Visibility(strings.TrimSpace(*input.Visibility))
		if !visibility.Valid() {
			return nil, apperr.Validation("visibility must be workspace or global")
		}
		changes["visibility"] = visibility
	}
	if visibility == model.VisibilityWorkspace && workspaceID == nil {
		return nil, apperr.Validation("workspace visibility requires workspace_id")
	}

	if len(changes) > 0 {
		found, err := s.clones.Update(ctx, id, changes)
		if err != nil {
			return nil, apperr.Unknown("update clone failed", err)
		}
		if !found {
			return nil, apperr.NotFound("clone not found")
		}
		s.invalidate(ctx, id)
	}

	updated, err := s.clones.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Unknown("get clone failed", err)
	}
	if updated == nil {
		return nil, apperr.NotFound("clone not found")
	}
	return updated, nil
}

// Delete removes the clone and its document records.
func (s *CloneService) Delete(ctx context.Context, id string) error {
	deleted, err := s.clones.Delete(ctx, id)
	if err != nil {
		return apperr.Unknown("delete clone failed", err)
	}
	if !deleted {
		return apperr.NotFound("clone not found")
	}
	s.invalidate(ctx, id)
	s.logger.Info("clone deleted", zap.String("clone_id", id))
	return nil
}

func (s *CloneService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("invalidate clone cache failed", zap.String("clone_id", id), zap.Error(err))
	}
}

func normalizeWorkspace(workspaceID *string) *string {
	if workspaceID == nil {
		return nil
	}
	w := strings.TrimSpace(*workspaceID)
	if w == "" {
		return nil
	}
	return &w
}
