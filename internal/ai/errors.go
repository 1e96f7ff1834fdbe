package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"clonehub/internal/apperr"
)

// transientStatus reports whether an upstream status is worth another attempt.
func transientStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// classifyTransportError handles a request that produced no response. Once
// the context is done there is nothing left to retry.
func classifyTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return backoff.Permanent(contextError(ctxErr))
	}
	return apperr.UpstreamUnavailable("ai service is unreachable", err)
}

// normalize makes sure whatever came out of the retry loop is an *apperr.Error.
func normalize(ctx context.Context, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return contextError(err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return contextError(ctxErr)
	}
	return apperr.Unknown("ai service call failed", err)
}

func contextError(err error) error {
	if errors.Is(err, context.Canceled) {
		return apperr.Unknown("ai service call was cancelled", err)
	}
	return apperr.UpstreamUnavailable("ai service timed out", err)
}

// upstreamMessage pulls a readable message out of an error body. Only string
// fields are surfaced; a validation list contributes its first "msg".
func upstreamMessage(raw []byte, status int) string {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			v, ok := body[key]
			if !ok {
				continue
			}
			if s := stringField(v); s != "" {
				return s
			}
			var items []struct {
				Msg json.RawMessage `json:"msg"`
			}
			if err := json.Unmarshal(v, &items); err == nil && len(items) > 0 {
				if s := stringField(items[0].Msg); s != "" {
					return s
				}
			}
		}
	}
	return fmt.Sprintf("ai service returned status %d", status)
}

func stringField(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
