package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"clonehub/internal/ai"
	"clonehub/internal/apperr"
)

const defaultMaxHistory = 20

// ChatService answers chat and search requests on behalf of a clone.
type ChatService struct {
	clones       *CloneService
	gateway      Gateway
	interactions *InteractionLog
	logger       *zap.Logger

	indexName  string
	maxHistory int
}

type ChatServiceConfig struct {
	IndexName  string
	MaxHistory int
}

type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatInput struct {
	CloneID     string
	UserID      string
	Message     string
	History     []HistoryMessage
	WorkspaceID *string
	ChannelID   *string
}

type ChatResult struct {
	Response      string   `json:"response"`
	Context       []string `json:"context"`
	InteractionID string   `json:"interaction_id,omitempty"`
}

type SearchInput struct {
	CloneID     string
	WorkspaceID string
	ChannelID   *string
	Query       string
}

type HealthResult struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func NewChatService(
	clones *CloneService,
	gateway Gateway,
	interactions *InteractionLog,
	cfg ChatServiceConfig,
	logger *zap.Logger,
) *ChatService {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = defaultMaxHistory
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		clones:       clones,
		gateway:      gateway,
		interactions: interactions,
		logger:       logger.Named("chat"),
		indexName:    strings.TrimSpace(cfg.IndexName),
		maxHistory:   cfg.MaxHistory,
	}
}

// Chat forwards the message to the AI service with the clone's persona and
// records the exchange. A failure to record is logged and does not fail the
// chat; InteractionID is empty in that case.
func (s *ChatService) Chat(ctx context.Context, input ChatInput) (*ChatResult, error) {
	clone, err := s.clones.Get(ctx, input.CloneID)
	if err != nil {
		return nil, err
	}
	if s.indexName == "" {
		return nil, apperr.Configuration("remote index is not configured")
	}
	if strings.TrimSpace(input.UserID) == "" {
		return nil, apperr.Authentication("authenticated user is required")
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, apperr.Validation("message is required")
	}

	resp, err := s.gateway.Chat(ctx, ai.ChatRequest{
		Messages:    s.history(input.History),
		CloneID:     clone.ID,
		WorkspaceID: input.WorkspaceID,
		ChannelID:   input.ChannelID,
		BasePrompt:  clone.BasePrompt,
		IndexName:   s.indexName,
		Query:       message,
	})
	if err != nil {
		return nil, err
	}

	result := &ChatResult{Response: resp.Response, Context: []string(resp.Context)}
	if result.Context == nil {
		result.Context = []string{}
	}

	interaction, err := s.interactions.LogInteraction(ctx, LogInput{
		UserID:      input.UserID,
		CloneID:     clone.ID,
		WorkspaceID: input.WorkspaceID,
		ChannelID:   input.ChannelID,
		Query:       message,
		Context:     result.Context,
		Response:    resp.Response,
	})
	if err != nil {
		s.logger.Warn("record interaction failed",
			zap.String("clone_id", clone.ID),
			zap.String("user_id", input.UserID),
			zap.Error(err))
		return result, nil
	}
	result.InteractionID = interaction.ID
	return result, nil
}

// Search runs a semantic search over workspace messages, using the clone's
// persona when a clone id is given.
func (s *ChatService) Search(ctx context.Context, input SearchInput) (ai.SearchResult, error) {
	workspaceID := strings.TrimSpace(input.WorkspaceID)
	query := strings.TrimSpace(input.Query)
	if workspaceID == "" || query == "" {
		return nil, apperr.Validation("workspace_id and query are required")
	}
	if s.indexName == "" {
		return nil, apperr.Configuration("remote index is not configured")
	}

	basePrompt := ""
	if strings.TrimSpace(input.CloneID) != "" {
		clone, err := s.clones.Get(ctx, input.CloneID)
		if err != nil {
			return nil, err
		}
		basePrompt = clone.BasePrompt
	}

	return s.gateway.SemanticSearch(ctx, ai.SearchRequest{
		WorkspaceID: workspaceID,
		ChannelID:   input.ChannelID,
		BasePrompt:  basePrompt,
		IndexName:   s.indexName,
		Query:       query,
	})
}

// Health never returns the raw gateway error.
func (s *ChatService) Health(ctx context.Context) HealthResult {
	status, err := s.gateway.CheckHealth(ctx)
	if err != nil {
		s.logger.Warn("ai service health check failed", zap.Error(err))
		return HealthResult{Status: "degraded", Detail: apperr.PublicMessage(err)}
	}
	return HealthResult{Status: status.Status}
}

func (s *ChatService) history(messages []HistoryMessage) []ai.ChatMessage {
	if len(messages) > s.maxHistory {
		messages = messages[len(messages)-s.maxHistory:]
	}
	out := make([]ai.ChatMessage, 0, len(messages))
	for _, m := range messages {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != "user" && role != "assistant" && role != "system" {
			continue
		}
		out = append(out, ai.ChatMessage{Role: role, Content: m.Content})
	}
	return out
}
