package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/josinaldojr/smart-assistant/internal/rag"
	"github.com/sashabaranov/go-openai"
)

const DefaultAzureAPIVersion = "2024-10-21"

type AzureConfig struct {
	Endpoint             string
	APIKey               string
	APIVersion           string
	EmbeddingDeployment  string
	CompletionDeployment string
	Dimensions           int
	MaxTokens            int
}

// AzureClient talks to Azure OpenAI deployments; the deployment name is passed as the model.
type AzureClient struct {
	client *openai.Client
	cfg    AzureConfig
}

func NewAzureClient(cfg AzureConfig) (*AzureClient, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("missing AZURE_OPENAI_ENDPOINT or AZURE_OPENAI_API_KEY")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAzureAPIVersion
	}

	oc := openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
	oc.APIVersion = cfg.APIVersion
	// deployments are addressed by their exact name
	oc.AzureModelMapperFunc = func(model string) string { return model }

	return &AzureClient{client: openai.NewClientWithConfig(oc), cfg: cfg}, nil
}

func (a *AzureClient) Embed(ctx context.Context, text string) ([]float32, error) {
	clean := normalizeWhitespace(text)
	if clean == "" {
		return nil, rag.NewError(rag.StageEmbedding, 0, "", errEmptyEmbeddingInput)
	}

	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{clean},
		Model: openai.EmbeddingModel(a.cfg.EmbeddingDeployment),
	})
	if err != nil {
		return nil, openAIError(rag.StageEmbedding, err)
	}

	if len(resp.Data) == 0 {
		return nil, rag.NewError(rag.StageEmbedding, 0, "", errors.New("no embeddings returned"))
	}

	return checkDimensions(resp.Data[0].Embedding, a.cfg.Dimensions)
}

func (a *AzureClient) Complete(ctx context.Context, messages []rag.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     a.cfg.CompletionDeployment,
		Messages:  make([]openai.ChatCompletionMessage, 0, len(messages)),
		MaxTokens: a.cfg.MaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", openAIError(rag.StageGeneration, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", rag.NewError(rag.StageGeneration, 0, "", errEmptyCompletion)
	}

	return resp.Choices[0].Message.Content, nil
}

// openAIError keeps the upstream status and body that go-openai exposes.
func openAIError(stage rag.Stage, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return rag.NewError(stage, apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return rag.NewError(stage, reqErr.HTTPStatusCode, string(reqErr.Body), err)
	}
	return rag.NewError(stage, 0, "", err)
}

var _ rag.EmbeddingsClient = (*AzureClient)(nil)
var _ rag.CompletionClient = (*AzureClient)(nil)
