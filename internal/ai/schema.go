package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content"`
}

type UploadRequest struct {
	File      []byte
	FileName  string
	MimeType  string
	CloneID   string
	IndexName string
}

// UploadReceipt is the service's acknowledgement of an upload. Its shape is
// owned by the AI service, so it is kept as raw JSON.
type UploadReceipt = json.RawMessage

type ChatRequest struct {
	Messages    []ChatMessage `json:"messages" validate:"dive"`
	CloneID     string        `json:"clone_id" validate:"required"`
	WorkspaceID *string       `json:"workspace_id,omitempty"`
	ChannelID   *string       `json:"channel_id,omitempty"`
	BasePrompt  string        `json:"base_prompt"`
	IndexName   string        `json:"pinecone_index" validate:"required"`
	Query       string        `json:"query" validate:"required"`
}

type ChatResponse struct {
	Response string   `json:"response" validate:"required"`
	Context  Snippets `json:"context"`
}

type SearchRequest struct {
	WorkspaceID string  `json:"workspace_id" validate:"required"`
	ChannelID   *string `json:"channel_id,omitempty"`
	BasePrompt  string  `json:"base_prompt"`
	IndexName   string  `json:"pinecone_index" validate:"required"`
	Query       string  `json:"query" validate:"required"`
}

// SearchResult is passed through to callers untouched.
type SearchResult = json.RawMessage

type HealthStatus struct {
	Status string `json:"status" validate:"required"`
}

// Snippets holds the retrieval context returned with a chat answer. The
// service may send a single string, a list of strings, or a list of document
// objects carrying their text under page_content, content or text.
type Snippets []string

func (s *Snippets) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*s = nil
		} else {
			*s = Snippets{single}
		}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("context must be a string or a list: %w", err)
	}
	out := make(Snippets, 0, len(items))
	for _, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			out = append(out, text)
			continue
		}
		var doc struct {
			PageContent *string `json:"page_content"`
			Content     *string `json:"content"`
			Text        *string `json:"text"`
		}
		if err := json.Unmarshal(item, &doc); err != nil {
			return fmt.Errorf("unsupported context item: %w", err)
		}
		switch {
		case doc.PageContent != nil:
			out = append(out, *doc.PageContent)
		case doc.Content != nil:
			out = append(out, *doc.Content)
		case doc.Text != nil:
			out = append(out, *doc.Text)
		default:
			return fmt.Errorf("context item has no text field")
		}
	}
	*s = out
	return nil
}
