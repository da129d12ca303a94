// Package bedrock invokes Anthropic models on AWS Bedrock through the
// InvokeModel API.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/llm"
)

const (
	AnthropicVersion = "bedrock-2023-05-31"

	DefaultMaxTokens   = 6000
	DefaultTemperature = 0.1
	DefaultTimeout     = 180 * time.Second
)

type Config struct {
	Region         string // AWS_REGION
	ModelID        string // plain model id or inference profile ARN
	ProfileARN     string // profile used for the Sonnet model id
	OpusProfileARN string // profile used for the Opus model id
	MaxTokens      int
	Temperature    float32
	Timeout        time.Duration
}

// RuntimeAPI is the part of the bedrockruntime client used here.
type RuntimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type Client struct {
	cfg    Config
	api    RuntimeAPI
	logger *slog.Logger
}

var _ llm.Invoker = (*Client)(nil)

type Option func(*Client)

// WithRuntime replaces the AWS client, mainly for tests.
func WithRuntime(api RuntimeAPI) Option {
	return func(c *Client) { c.api = api }
}

// New builds a client. Without WithRuntime the default AWS credential chain
// is loaded for cfg.Region.
func New(ctx context.Context, cfg Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	if c.api == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, common.NewAppError(common.CodeConfig, "load aws config", err)
		}
		c.api = bedrockruntime.NewFromConfig(awsCfg)
	}
	return c, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float32            `json:"temperature"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Invoke sends prompt as a single user message and returns the generated text.
func (c *Client) Invoke(ctx context.Context, prompt string, opts llm.InvokeOptions) (llm.Completion, error) {
	modelID := c.ResolveModel(opts.ModelID)
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = c.cfg.Temperature
	}

	body, err := json.Marshal(anthropicRequest{
		AnthropicVersion: AnthropicVersion,
		MaxTokens:        maxTokens,
		Temperature:      temperature,
		Messages:         []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return llm.Completion{}, fmt.Errorf("encode bedrock request: %w", err)
	}

	log := common.LoggerFrom(ctx, c.logger).With("model", modelID)
	log.Info("llm.invoke.start", "prompt_chars", len(prompt), "approx_tokens", len(prompt)/4, "max_tokens", maxTokens)
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	out, err := c.api.InvokeModel(callCtx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		if ctx.Err() != nil {
			return llm.Completion{}, ctx.Err()
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			ae := common.NewAppError(common.CodeLLMUnavailable,
				fmt.Sprintf("AWS Bedrock call timed out after %s", c.cfg.Timeout), common.ErrLLMTransport)
			ae.Retryable = true
			err = ae
		} else {
			err = classifyError(err)
		}
		log.Error("llm.invoke.failed", "error", err, "code", common.CodeOf(err), "elapsed_ms", time.Since(start).Milliseconds())
		return llm.Completion{}, err
	}

	var raw []byte
	if out != nil {
		raw = out.Body
	}
	comp, err := decodeResponse(raw)
	if err != nil {
		log.Error("llm.invoke.decode_failed", "error", err, "preview", common.Truncate(string(raw), 500))
		return llm.Completion{}, err
	}
	comp.ModelID = modelID
	comp.Truncated = llm.IsTruncated(comp.StopReason, comp.OutputTokens, maxTokens)

	attrs := []any{
		"stop_reason", comp.StopReason,
		"input_tokens", comp.InputTokens,
		"output_tokens", comp.OutputTokens,
		"output_chars", len(comp.Text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	if comp.Truncated {
		log.Warn("llm.invoke.likely_truncated", attrs...)
	} else {
		log.Info("llm.invoke.ok", attrs...)
	}
	return comp, nil
}

// decodeResponse reads the Anthropic envelope. An empty body yields an empty
// completion; the caller decides whether that is an error.
func decodeResponse(body []byte) (llm.Completion, error) {
	if len(body) == 0 {
		return llm.Completion{StopReason: "unknown"}, nil
	}
	var env anthropicResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return llm.Completion{}, common.NewAppError(common.CodeLLMFailed, "decode bedrock response body", errors.Join(common.ErrLLMTransport, err))
	}
	comp := llm.Completion{
		StopReason:   env.StopReason,
		InputTokens:  env.Usage.InputTokens,
		OutputTokens: env.Usage.OutputTokens,
	}
	for _, block := range env.Content {
		if block.Type == "" || block.Type == "text" {
			comp.Text = block.Text
			break
		}
	}
	if comp.StopReason == "" {
		comp.StopReason = "unknown"
	}
	return comp, nil
}
