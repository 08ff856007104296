package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/josinaldojr/smart-assistant/internal/rag"
	"google.golang.org/genai"
)

const (
	DefaultGeminiEmbeddingModel = "gemini-embedding-001"
	DefaultGeminiChatModel      = "gemini-2.5-flash"
)

type GeminiConfig struct {
	APIKey         string
	EmbeddingModel string
	ChatModel      string
	Dimensions     int
	MaxTokens      int
	// BaseURL overrides the Gemini API endpoint.
	BaseURL string
}

type GeminiClient struct {
	client *genai.Client
	cfg    GeminiConfig
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing GOOGLE_API_KEY or GEMINI_API_KEY")
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultGeminiEmbeddingModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultGeminiChatModel
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{client: c, cfg: cfg}, nil
}

func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	clean := normalizeWhitespace(text)
	if clean == "" {
		return nil, rag.NewError(rag.StageEmbedding, 0, "", errEmptyEmbeddingInput)
	}

	var ecfg *genai.EmbedContentConfig
	if g.cfg.Dimensions > 0 {
		ecfg = &genai.EmbedContentConfig{
			OutputDimensionality: genai.Ptr(int32(g.cfg.Dimensions)),
		}
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.cfg.EmbeddingModel, genai.Text(clean), ecfg)
	if err != nil {
		return nil, geminiError(rag.StageEmbedding, err)
	}

	if len(resp.Embeddings) == 0 {
		return nil, rag.NewError(rag.StageEmbedding, 0, "", errors.New("no embeddings returned"))
	}

	values := resp.Embeddings[0].Values
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return checkDimensions(out, g.cfg.Dimensions)
}

func (g *GeminiClient) Complete(ctx context.Context, messages []rag.Message) (string, error) {
	system, rest := splitSystem(messages)

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.Text(system)[0]
	}
	if g.cfg.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.cfg.MaxTokens)
	}

	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		role := genai.Role(genai.RoleUser)
		if m.Role == rag.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.ChatModel, contents, cfg)
	if err != nil {
		return "", geminiError(rag.StageGeneration, err)
	}

	if resp == nil {
		return "", rag.NewError(rag.StageGeneration, 0, "", errors.New("empty response from gemini"))
	}

	txt := resp.Text()
	if strings.TrimSpace(txt) == "" {
		return "", rag.NewError(rag.StageGeneration, 0, "", errEmptyCompletion)
	}

	return txt, nil
}

func geminiError(stage rag.Stage, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return rag.NewError(stage, apiErr.Code, apiErr.Message, err)
	}
	return rag.NewError(stage, 0, "", err)
}

var _ rag.EmbeddingsClient = (*GeminiClient)(nil)
var _ rag.CompletionClient = (*GeminiClient)(nil)
