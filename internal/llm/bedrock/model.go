package bedrock

import (
	"regexp"
	"strings"
)

const (
	SonnetModelID = "anthropic.claude-sonnet-4-5-20250929-v1:0"
	OpusModelID   = "anthropic.claude-opus-4-20250514-v1:0"

	arnPrefix = "arn:aws:bedrock:"
)

var reARNRegion = regexp.MustCompile(`^arn:aws:bedrock:([^:]+):`)

// RegionFromARN returns the region segment of a Bedrock ARN, or "".
func RegionFromARN(arn string) string {
	m := reARNRegion.FindStringSubmatch(arn)
	if m == nil {
		return ""
	}
	return m[1]
}

// ResolveModel picks the model reference for a call: preferred, then the
// configured id, then Sonnet. Plain Sonnet and Opus ids are swapped for their
// inference profile ARN when one is configured. An ARN whose region differs
// from the configured region is logged; Bedrock rejects such calls with an
// opaque "model identifier is invalid" error.
func (c *Client) ResolveModel(preferred string) string {
	id := strings.TrimSpace(preferred)
	if id == "" {
		id = strings.TrimSpace(c.cfg.ModelID)
	}
	if id == "" {
		id = SonnetModelID
	}

	if !strings.HasPrefix(id, arnPrefix) {
		switch {
		case id == SonnetModelID && c.cfg.ProfileARN != "":
			id = c.cfg.ProfileARN
		case id == OpusModelID && c.cfg.OpusProfileARN != "":
			id = c.cfg.OpusProfileARN
		}
	}

	if strings.HasPrefix(id, arnPrefix) {
		if region := RegionFromARN(id); region != "" && region != c.cfg.Region {
			c.logger.Error("bedrock.region_mismatch",
				"configured_region", c.cfg.Region,
				"arn_region", region,
				"model", id,
				"hint", "set AWS_REGION="+region+" or create inference profiles in "+c.cfg.Region,
			)
		}
	}
	return id
}
