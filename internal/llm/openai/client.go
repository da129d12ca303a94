package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/llm"
)

var _ llm.Invoker = (*Client)(nil)

const systemMessage = "You extract priced packages from clinic menus. Return ONLY a JSON object, no markdown."

// Invoke implements llm.Invoker using text-only chat/completions in JSON mode.
func (c *Client) Invoke(ctx context.Context, prompt string, opts llm.InvokeOptions) (llm.Completion, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()

	model := opts.ModelID
	if model == "" {
		model = c.cfg.Model
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = c.cfg.Temperature
	}

	c.log.Info("llm.invoke.start",
		"req_id", rid,
		"provider", "openai",
		"model", model,
		"temp", temperature,
		"prompt_chars", len(prompt),
	)

	body := map[string]any{
		"model":           model,
		"temperature":     temperature,
		"max_tokens":      maxTokens,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": systemMessage},
			{"role": "user", "content": prompt},
		},
	}
	raw, err := llm.PostJSON(ctx, c.httpClient, llm.HTTPRequest{
		Provider: "OpenAI",
		URL:      strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions",
		Headers:  map[string]string{"Authorization": "Bearer " + c.cfg.APIKey},
		Body:     body,
	}, c.log)
	if err != nil {
		c.log.Error("llm.invoke.http_error",
			"req_id", rid, "code", common.CodeOf(err), "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Completion{}, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.invoke.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Completion{}, common.NewAppError(common.CodeLLMFailed, "decode openai response", errors.Join(common.ErrLLMTransport, err))
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.invoke.no_choices",
			"req_id", rid, "raw", common.Truncate(string(raw), 500),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Completion{}, common.NewAppError(common.CodeLLMFailed, "no choices in openai response", common.ErrLLMTransport)
	}

	comp := llm.Completion{
		Text:         strings.TrimSpace(cc.Choices[0].Message.Content),
		ModelID:      model,
		StopReason:   cc.Choices[0].FinishReason,
		InputTokens:  cc.Usage.PromptTokens,
		OutputTokens: cc.Usage.CompletionTokens,
	}
	comp.Truncated = llm.IsTruncated(comp.StopReason, comp.OutputTokens, maxTokens)

	c.log.Info("llm.invoke.ok",
		"req_id", rid,
		"stop_reason", comp.StopReason,
		"input_tokens", comp.InputTokens,
		"output_tokens", comp.OutputTokens,
		"output_chars", len(comp.Text),
		"likely_truncated", comp.Truncated,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return comp, nil
}
