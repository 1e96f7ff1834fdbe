package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"clonehub/internal/ai"
	"clonehub/internal/model"
	"clonehub/internal/repository"
)

var errStoreDown = errors.New("store down")

type memCloneStore struct {
	mu     sync.Mutex
	clones map[string]model.Clone
	docs   *memDocumentStore
	seq    int
}

func newMemCloneStore(docs *memDocumentStore) *memCloneStore {
	return &memCloneStore{clones: map[string]model.Clone{}, docs: docs}
}

func (s *memCloneStore) Create(_ context.Context, clone *model.Clone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	s.seq++
	clone.CreatedAt = time.Unix(int64(s.seq), 0)
	clone.UpdatedAt = clone.CreatedAt
	s.clones[clone.ID] = *clone
	return nil
}

func (s *memCloneStore) GetByID(ctx context.Context, id string) (*model.Clone, error) {
	s.mu.Lock()
	c, ok := s.clones[id]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	if s.docs != nil {
		docs, _ := s.docs.ListByCloneID(ctx, id)
		c.Documents = docs
	}
	return &c, nil
}

func (s *memCloneStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.clones[id]
	return ok, nil
}

func (s *memCloneStore) List(_ context.Context, workspaceID *string) ([]model.Clone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Clone
	for _, c := range s.clones {
		inWorkspace := workspaceID != nil && c.WorkspaceID != nil && *c.WorkspaceID == *workspaceID
		if c.Visibility == model.VisibilityGlobal || inWorkspace {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memCloneStore) Update(_ context.Context, id string, changes map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clones[id]
	if !ok {
		return false, nil
	}
	for k, v := range changes {
		switch k {
		case "name":
			c.Name = v.(string)
		case "base_prompt":
			c.BasePrompt = v.(string)
		case "visibility":
			c.Visibility = v.(model.Visibility)
		case "workspace_id":
			c.WorkspaceID = v.(*string)
		}
	}
	s.clones[id] = c
	return true, nil
}

func (s *memCloneStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clones[id]; !ok {
		return false, nil
	}
	delete(s.clones, id)
	if s.docs != nil {
		s.docs.deleteByClone(id)
	}
	return true, nil
}

type memDocumentStore struct {
	mu   sync.Mutex
	docs map[string]model.CloneDocument

	// beforeUpdate runs once before the next conditional update.
	beforeUpdate func()
}

func newMemDocumentStore() *memDocumentStore {
	return &memDocumentStore{docs: map[string]model.CloneDocument{}}
}

func (s *memDocumentStore) Create(_ context.Context, doc *model.CloneDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	s.docs[doc.ID] = *doc
	return nil
}

func (s *memDocumentStore) GetByID(_ context.Context, id string) (*model.CloneDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *memDocumentStore) ListByCloneID(_ context.Context, cloneID string) ([]model.CloneDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CloneDocument
	for _, d := range s.docs {
		if d.CloneID == cloneID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *memDocumentStore) UpdateStatus(_ context.Context, id string, change repository.StatusChange) (bool, error) {
	if hook := s.takeHook(); hook != nil {
		hook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok || d.Status != change.From {
		return false, nil
	}
	d.Status = change.To
	d.ProcessedAt = change.ProcessedAt
	d.ErrorMessage = change.ErrorMessage
	s.docs[id] = d
	return true, nil
}

func (s *memDocumentStore) takeHook() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	hook := s.beforeUpdate
	s.beforeUpdate = nil
	return hook
}

func (s *memDocumentStore) setStatus(id string, status model.DocumentStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.docs[id]
	d.Status = status
	s.docs[id] = d
}

func (s *memDocumentStore) deleteByClone(cloneID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.docs {
		if d.CloneID == cloneID {
			delete(s.docs, id)
		}
	}
}

func (s *memDocumentStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

type memInteractionStore struct {
	mu   sync.Mutex
	rows []model.AIInteraction
	fail bool
}

func (s *memInteractionStore) Create(_ context.Context, interaction *model.AIInteraction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStoreDown
	}
	if interaction.ID == "" {
		interaction.ID = uuid.NewString()
	}
	s.rows = append(s.rows, *interaction)
	return nil
}

func (s *memInteractionStore) ListByCloneID(_ context.Context, cloneID string, limit int) ([]model.AIInteraction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AIInteraction
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].CloneID == cloneID {
			out = append(out, s.rows[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memInteractionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type fakeGateway struct {
	mu sync.Mutex

	uploadErr error
	chatErr   error
	searchErr error
	healthErr error
	chatResp  *ai.ChatResponse

	uploads  []ai.UploadRequest
	chats    []ai.ChatRequest
	searches []ai.SearchRequest
}

func (g *fakeGateway) UploadDocument(_ context.Context, in ai.UploadRequest) (ai.UploadReceipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.uploads = append(g.uploads, in)
	if g.uploadErr != nil {
		return nil, g.uploadErr
	}
	return ai.UploadReceipt(`{"status":"queued"}`), nil
}

func (g *fakeGateway) Chat(_ context.Context, in ai.ChatRequest) (*ai.ChatResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chats = append(g.chats, in)
	if g.chatErr != nil {
		return nil, g.chatErr
	}
	if g.chatResp != nil {
		return g.chatResp, nil
	}
	return &ai.ChatResponse{Response: "answer", Context: ai.Snippets{"snippet"}}, nil
}

func (g *fakeGateway) SemanticSearch(_ context.Context, in ai.SearchRequest) (ai.SearchResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.searches = append(g.searches, in)
	if g.searchErr != nil {
		return nil, g.searchErr
	}
	return ai.SearchResult(`{"results":[]}`), nil
}

func (g *fakeGateway) CheckHealth(context.Context) (*ai.HealthStatus, error) {
	if g.healthErr != nil {
		return nil, g.healthErr
	}
	return &ai.HealthStatus{Status: "ok"}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []model.DocumentStatusEvent
	err    error
}

func (p *fakePublisher) PublishStatus(_ context.Context, event model.DocumentStatusEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

type fakeCache struct {
	mu          sync.Mutex
	items       map[string]model.Clone
	invalidated []string
	getErr      error
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[string]model.Clone{}}
}

func (c *fakeCache) GetClone(_ context.Context, id string) (*model.Clone, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.items[id]
	if !ok {
		return nil, false, nil
	}
	return &v, true, nil
}

func (c *fakeCache) SetClone(_ context.Context, clone *model.Clone) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[clone.ID] = *clone
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

func strPtr(s string) *string { return &s }
