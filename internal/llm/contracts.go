package llm

import "context"

// InvokeOptions bound a single model call. Zero values fall back to the
// invoker's configured defaults.
type InvokeOptions struct {
	ModelID     string
	MaxTokens   int
	Temperature float32
}

// Completion is the plain-text output of one model call plus the diagnostics
// needed to tell a truncated answer from a bad one.
type Completion struct {
	Text         string
	ModelID      string
	StopReason   string
	InputTokens  int
	OutputTokens int
	Truncated    bool // stopped at the token cap
}

// Invoker is the interface the extraction pipeline depends on.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, opts InvokeOptions) (Completion, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, prompt string, opts InvokeOptions) (Completion, error)

func (f InvokerFunc) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (Completion, error) {
	return f(ctx, prompt, opts)
}

// TruncationRatio is the share of MaxTokens at which output is considered cut off
// even when the provider reports a normal stop.
const TruncationRatio = 0.98

// IsTruncated reports whether a completion hit its token cap.
func IsTruncated(stopReason string, outputTokens, maxTokens int) bool {
	switch stopReason {
	case "max_tokens", "length":
		return true
	}
	return maxTokens > 0 && float64(outputTokens) >= TruncationRatio*float64(maxTokens)
}
