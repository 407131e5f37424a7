// Package reasoning provides the reasoning-collaborator client used by the
// selection engine. The collaborator is never assumed reliable: callers fall
// back to heuristic selection on any error or timeout.
package reasoning

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

// TokenBudget bounds one reasoning call.
type TokenBudget struct {
	// MaxTokens is the response token ceiling.
	MaxTokens int
}

// DefaultBudget is used when the caller passes a zero budget.
var DefaultBudget = TokenBudget{MaxTokens: 2048}

// Reasoner is the collaborator contract the selection engine consumes.
type Reasoner interface {
	Reason(ctx context.Context, prompt string, budget TokenBudget) (string, error)
}

// Client wraps the Anthropic SDK with a hard per-call timeout.
type Client struct {
	inner   anthropic.Client
	model   anthropic.Model
	timeout time.Duration
}

// ClientConfig contains configuration for creating a new Client.
type ClientConfig struct {
	// Model is the Claude model to use.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
	// Timeout is the hard per-call deadline. Defaults to 30s.
	Timeout time.Duration
}

// NewClient creates a new reasoning client.
func NewClient(cfg ClientConfig) (*Client, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		inner:   anthropic.NewClient(opts...),
		model:   model,
		timeout: timeout,
	}, nil
}

// ResolveModel maps a friendly model alias from configuration to a concrete
// model. Unknown names pass through unchanged; empty means the client default.
func ResolveModel(name string) anthropic.Model {
	switch name {
	case "sonnet":
		return anthropic.ModelClaudeSonnet4_5_20250929
	case "haiku":
		return anthropic.ModelClaudeHaiku4_5_20251001
	case "opus":
		return anthropic.ModelClaudeOpus4_1_20250805
	default:
		return anthropic.Model(name)
	}
}

// translateModelForBedrock converts standard Anthropic model names to Bedrock
// cross-region inference profile format: us.anthropic.{model}-v1:0.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}
	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}

// Reason sends the prompt and returns the concatenated text response.
// The call is bounded by both the caller's context and the client timeout.
func (c *Client) Reason(ctx context.Context, prompt string, budget TokenBudget) (string, error) {
	if budget.MaxTokens <= 0 {
		budget = DefaultBudget
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(budget.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("reasoning call failed: %w", err)
	}

	var result strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.WriteString(variant.Text)
		}
	}
	return result.String(), nil
}
