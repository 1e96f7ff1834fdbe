// Package ai is the gateway to the remote AI microservice that indexes clone
// documents and answers chat and search requests. Every failure leaving this
// package is an *apperr.Error.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"clonehub/internal/apperr"
)

const (
	APIKeyHeader = "X-API-Key"

	defaultTimeout        = 120 * time.Second
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	maxResponseBytes      = 8 << 20
)

type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	baseURL        string
	apiKey         string
	timeout        time.Duration
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	httpClient *http.Client
	validate   *validator.Validate
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, apperr.Configuration("ai service base url is not configured")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperr.Configuration("ai service api key is not configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 || cfg.MaxAttempts > defaultMaxAttempts {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:        baseURL,
		apiKey:         cfg.APIKey,
		timeout:        cfg.Timeout,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		httpClient:     &http.Client{},
		validate:       validator.New(),
		logger:         logger.Named("ai"),
	}, nil
}

// UploadDocument sends a file to the indexing endpoint as multipart form data.
func (c *Client) UploadDocument(ctx context.Context, in UploadRequest) (UploadReceipt, error) {
	if len(in.File) == 0 || strings.TrimSpace(in.FileName) == "" {
		return nil, apperr.Validation("file is required")
	}
	if in.CloneID == "" || in.IndexName == "" {
		return nil, apperr.Validation("clone_id and index name are required")
	}

	raw, err := c.do(ctx, "upload_document", c.maxAttempts, func(ctx context.Context) (*http.Request, error) {
		body, contentType, err := multipartBody(in)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents", body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	return rawJSON(raw)
}

func (c *Client) Chat(ctx context.Context, in ChatRequest) (*ChatResponse, error) {
	if err := c.validate.Struct(in); err != nil {
		return nil, apperr.Validation("invalid chat request: " + err.Error())
	}
	raw, err := c.do(ctx, "chat", c.maxAttempts, c.jsonRequest(http.MethodPost, "/chat", in))
	if err != nil {
		return nil, err
	}
	var out ChatResponse
	if err := c.decode(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SemanticSearch rejects requests without a workspace or query before any
// network call is made.
func (c *Client) SemanticSearch(ctx context.Context, in SearchRequest) (SearchResult, error) {
	if strings.TrimSpace(in.WorkspaceID) == "" || strings.TrimSpace(in.Query) == "" {
		return nil, apperr.Validation("workspace_id and query are required")
	}
	if err := c.validate.Struct(in); err != nil {
		return nil, apperr.Validation("invalid search request: " + err.Error())
	}
	raw, err := c.do(ctx, "message_search", c.maxAttempts, c.jsonRequest(http.MethodPost, "/message-search", in))
	if err != nil {
		return nil, err
	}
	return rawJSON(raw)
}

// CheckHealth makes a single attempt. Any failure is reported as
// UpstreamUnavailable.
func (c *Client) CheckHealth(ctx context.Context) (*HealthStatus, error) {
	raw, err := c.do(ctx, "health", 1, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	})
	if err != nil {
		return nil, apperr.UpstreamUnavailable("ai service is unavailable", err)
	}
	var out HealthStatus
	if err := c.decode(raw, &out); err != nil {
		return nil, apperr.UpstreamUnavailable("ai service is unavailable", err)
	}
	return &out, nil
}

type requestBuilder func(ctx context.Context) (*http.Request, error)

func (c *Client) jsonRequest(method, path string, payload interface{}) requestBuilder {
	return func(ctx context.Context) (*http.Request, error) {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request failed: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
}

// do runs one logical call with retries on transient failures. The request is
// rebuilt for every attempt.
func (c *Client) do(ctx context.Context, op string, attempts int, build requestBuilder) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body []byte
	attempt := 0
	operation := func() error {
		attempt++
		req, err := build(ctx)
		if err != nil {
			return backoff.Permanent(apperr.Unknown("build ai service request failed", err))
		}
		req.Header.Set(APIKeyHeader, c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return classifyTransportError(ctx, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return classifyTransportError(ctx, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			upErr := apperr.Upstream(resp.StatusCode, upstreamMessage(raw, resp.StatusCode))
			if transientStatus(resp.StatusCode) {
				return upErr
			}
			return backoff.Permanent(upErr)
		}
		body = raw
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialBackoff
	policy.MaxInterval = c.maxBackoff
	policy.Multiplier = 2
	policy.RandomizationFactor = 0.5
	policy.MaxElapsedTime = 0

	var retries uint64
	if attempts > 1 {
		retries = uint64(attempts - 1)
	}
	err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx),
		func(err error, wait time.Duration) {
			c.logger.Warn("ai service call failed, retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err))
		})
	if err != nil {
		err = normalize(ctx, err)
		c.logger.Debug("ai service call failed",
			zap.String("op", op),
			zap.Int("attempts", attempt),
			zap.Error(err))
		return nil, err
	}
	return body, nil
}

func (c *Client) decode(raw []byte, out interface{}) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return malformed(err)
	}
	if err := c.validate.Struct(out); err != nil {
		return malformed(err)
	}
	return nil
}

func malformed(err error) error {
	return &apperr.Error{
		Kind:    apperr.KindUpstream,
		Status:  http.StatusBadGateway,
		Message: "ai service returned a malformed response",
		Err:     err,
	}
}

func rawJSON(raw []byte) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(raw) {
		return nil, malformed(errors.New("response body is not json"))
	}
	return json.RawMessage(raw), nil
}

func multipartBody(in UploadRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	mimeType := in.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, in.FileName))
	header.Set("Content-Type", mimeType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part failed: %w", err)
	}
	if _, err := part.Write(in.File); err != nil {
		return nil, "", fmt.Errorf("write file part failed: %w", err)
	}
	if err := w.WriteField("clone_id", in.CloneID); err != nil {
		return nil, "", fmt.Errorf("write clone_id failed: %w", err)
	}
	if err := w.WriteField("pinecone_index", in.IndexName); err != nil {
		return nil, "", fmt.Errorf("write pinecone_index failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer failed: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
