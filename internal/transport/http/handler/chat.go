package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"clonehub/internal/app"
	"clonehub/internal/transport/http/response"
)

type ChatHandler struct {
	chat         *app.ChatService
	interactions *app.InteractionLog
}

type HistoryItem struct {
	Role    string `json:"role" binding:"required,oneof=user assistant system"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message     string        `json:"message" binding:"required"`
	History     []HistoryItem `json:"history" binding:"omitempty,dive"`
	WorkspaceID *string       `json:"workspace_id"`
	ChannelID   *string       `json:"channel_id"`
}

type SearchRequest struct {
	CloneID     string  `json:"clone_id"`
	WorkspaceID *string `json:"workspace_id"`
	ChannelID   *string `json:"channel_id"`
	Query       string  `json:"query" binding:"required"`
}

func NewChatHandler(chat *app.ChatService, interactions *app.InteractionLog) *ChatHandler {
	return &ChatHandler{chat: chat, interactions: interactions}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	history := make([]app.HistoryMessage, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, app.HistoryMessage{Role: m.Role, Content: m.Content})
	}

	result, err := h.chat.Chat(c.Request.Context(), app.ChatInput{
		CloneID:     c.Param("id"),
		UserID:      getUserIDFromContext(c),
		Message:     req.Message,
		History:     history,
		WorkspaceID: workspaceFrom(c, req.WorkspaceID),
		ChannelID:   req.ChannelID,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}

func (h *ChatHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	workspaceID := ""
	if w := workspaceFrom(c, req.WorkspaceID); w != nil {
		workspaceID = *w
	}
	result, err := h.chat.Search(c.Request.Context(), app.SearchInput{
		CloneID:     req.CloneID,
		WorkspaceID: workspaceID,
		ChannelID:   req.ChannelID,
		Query:       req.Query,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}

func (h *ChatHandler) Interactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	list, err := h.interactions.ListByClone(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, list)
}

func (h *ChatHandler) AIHealth(c *gin.Context) {
	result := h.chat.Health(c.Request.Context())
	if result.Status == "degraded" {
		c.JSON(http.StatusServiceUnavailable, response.APIResponse{
			Code:    response.CodeUpstreamUnavailable,
			Message: result.Status,
			Data:    result,
		})
		return
	}
	response.OK(c, result)
}
