package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
)

// MaxResponseBytes caps how much of a provider response body is read.
const MaxResponseBytes = 8 << 20

// HTTPRequest describes one JSON POST to a provider endpoint.
type HTTPRequest struct {
	Provider string // used in error messages, e.g. "OpenAI"
	URL      string
	Headers  map[string]string
	Body     any
}

// PostJSON sends req and returns the response body. Transport failures,
// unreadable or oversized bodies and non-2xx statuses come back as
// *common.AppError carrying the LLM error codes; the body is returned with
// a status error so callers can log it.
func PostJSON(ctx context.Context, client *http.Client, req HTTPRequest, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 180 * time.Second}
	}
	log := common.LoggerFrom(ctx, logger)
	start := time.Now()

	bs, err := json.Marshal(req.Body)
	if err != nil {
		return nil, common.NewAppError(common.CodeLLMFailed, "encode "+req.Provider+" request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(bs))
	if err != nil {
		return nil, common.NewAppError(common.CodeLLMFailed, "build "+req.Provider+" request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	log.Debug("llm.http.request", "provider", req.Provider, "url", req.URL, "content_length", len(bs))

	resp, err := client.Do(httpReq)
	if err != nil {
		log.Error("llm.http.send_error", "provider", req.Provider, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, common.NewAppError(common.CodeLLMFailed,
			fmt.Sprintf("%s request failed: %v", req.Provider, err), errors.Join(common.ErrLLMTransport, err))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn("llm.http.response_body_close_error", "error", err)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		log.Error("llm.http.read_error", "provider", req.Provider, "status", resp.StatusCode, "error", err)
		return nil, common.NewAppError(common.CodeLLMFailed,
			"read "+req.Provider+" response", errors.Join(common.ErrLLMTransport, err))
	}
	if len(raw) > MaxResponseBytes {
		return nil, common.NewAppError(common.CodeLLMFailed,
			fmt.Sprintf("%s response exceeds %d bytes", req.Provider, MaxResponseBytes), common.ErrLLMTransport)
	}

	log.Info("llm.http.response",
		"provider", req.Provider,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, StatusError(req.Provider, resp.StatusCode, raw)
	}
	return raw, nil
}

// StatusError maps a non-2xx provider status onto the LLM error codes.
func StatusError(provider string, status int, body []byte) *common.AppError {
	detail := fmt.Sprintf("%s status %d: %s", provider, status, common.Truncate(string(body), 300))
	cause := errors.Join(common.ErrLLMTransport, fmt.Errorf("http status %d", status))
	switch {
	case status == http.StatusUnauthorized:
		return common.NewAppError(common.CodeLLMAuth, provider+" authentication failed.", cause)
	case status == http.StatusForbidden:
		return common.NewAppError(common.CodeLLMPermission, "Permission denied for "+provider+".", cause)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return common.NewAppError(common.CodeLLMValidation, provider+" validation error: "+detail, cause)
	case status == http.StatusTooManyRequests || status >= 500:
		ae := common.NewAppError(common.CodeLLMUnavailable, provider+" temporarily unavailable.", cause)
		ae.Retryable = true
		return ae
	default:
		return common.NewAppError(common.CodeLLMFailed, provider+" extraction failed: "+detail, cause)
	}
}
