package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/josinaldojr/smart-assistant/internal/rag"
)

const DefaultAnthropicModel = "claude-sonnet-4-5"

type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
}

// AnthropicClient only generates; pair it with an embedding provider.
type AnthropicClient struct {
	client *anthropic.Client
	cfg    AnthropicConfig
}

func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing ANTHROPIC_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}

	opts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(cfg.APIKey),
		// falhas abortam o turno, sem retry
		anthropicopt.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	return &AnthropicClient{client: &client, cfg: cfg}, nil
}

func (a *AnthropicClient) Complete(ctx context.Context, messages []rag.Message) (string, error) {
	system, rest := splitSystem(messages)

	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.cfg.Model),
		MaxTokens: int64(a.cfg.MaxTokens),
		Messages:  make([]anthropic.MessageParam, 0, len(rest)),
	}
	if system != "" {
		req.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, m := range rest {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == rag.RoleAssistant {
			req.Messages = append(req.Messages, anthropic.NewAssistantMessage(block))
		} else {
			req.Messages = append(req.Messages, anthropic.NewUserMessage(block))
		}
	}

	rsp, err := a.client.Messages.New(ctx, req)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", rag.NewError(rag.StageGeneration, apiErr.StatusCode, apiErr.RawJSON(), err)
		}
		return "", rag.NewError(rag.StageGeneration, 0, "", err)
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", rag.NewError(rag.StageGeneration, 0, "", errEmptyCompletion)
	}

	return b.String(), nil
}

var _ rag.CompletionClient = (*AnthropicClient)(nil)
