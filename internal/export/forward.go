package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
)

const (
	ForwardFileName = "clinic-menu-import.csv"
	StatusSuccess   = "success"
)

// ForwardOptions are passed to the importer as extra form fields when set.
type ForwardOptions struct {
	ConfirmAutoCreate *bool
	ClearExisting     *bool
}

// Forwarder posts a CSV document to a bulk-import endpoint as multipart form
// data under the "file" field.
type Forwarder struct {
	url    string
	apiKey string
	client *http.Client
	logger *slog.Logger
}

func NewForwarder(url, apiKey string, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

// Forward returns "success" or "failed:<reason>". The error is non-nil only
// when the request could not be built.
func (f *Forwarder) Forward(ctx context.Context, csvData []byte, opts ForwardOptions) (string, error) {
	log := common.LoggerFrom(ctx, f.logger)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, ForwardFileName))
	h.Set("Content-Type", "text/csv; charset=utf-8")
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(csvData); err != nil {
		return "", err
	}
	if opts.ConfirmAutoCreate != nil {
		_ = mw.WriteField("confirmAutoCreate", strconv.FormatBool(*opts.ConfirmAutoCreate))
	}
	if opts.ClearExisting != nil {
		_ = mw.WriteField("clearExisting", strconv.FormatBool(*opts.ClearExisting))
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		log.Error("export.forward.network_error", "url", f.url, "error", err)
		return "failed:network_error", nil
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := http.StatusText(resp.StatusCode)
		var payload struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
			reason = payload.Message
		}
		log.Warn("export.forward.rejected", "status", resp.StatusCode, "reason", reason)
		return "failed:" + reason, nil
	}
	log.Info("export.forward.ok", "bytes", len(csvData), "elapsed_ms", time.Since(start).Milliseconds())
	return StatusSuccess, nil
}
