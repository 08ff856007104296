package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/josinaldojr/smart-assistant/internal/config"
	"github.com/josinaldojr/smart-assistant/internal/db"
	"github.com/josinaldojr/smart-assistant/internal/index"
	"github.com/josinaldojr/smart-assistant/internal/ingest"
	"github.com/josinaldojr/smart-assistant/internal/llm"
	"github.com/josinaldojr/smart-assistant/internal/rag"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// App holds the long-lived clients built once at startup.
type App struct {
	Embeddings rag.EmbeddingsClient
	Completion rag.CompletionClient
	Index      rag.VectorIndex
	Service    *rag.Service
	// Importer.Run fails with an import error when no spreadsheet source is configured.
	Importer *ingest.Importer

	closers []func()
}

// New builds providers, the vector index and the import path from cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	emb, err := newEmbeddings(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Embeddings = emb

	comp, err := newCompletion(ctx, cfg, emb)
	if err != nil {
		return nil, err
	}
	a.Completion = comp

	if err := a.openIndex(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	src, err := newSource(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Importer = ingest.NewImporter(src, a.Embeddings, a.Index, cfg.EmbeddingDimensions)

	a.Service = rag.NewService(a.Embeddings, a.Index, a.Completion, rag.Options{
		TopK:           cfg.TopK,
		SystemPrompt:   cfg.SystemPrompt,
		Rephrase:       cfg.RephraseQuery,
		AnswerLanguage: cfg.AnswerLanguage,
	})

	slog.Info("components ready",
		"embeddings", cfg.EmbeddingProvider,
		"completion", cfg.CompletionProvider,
		"vector_store", cfg.VectorStore,
		"import_source", sourceName(src),
	)
	return a, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newEmbeddings(ctx context.Context, cfg *config.Config) (rag.EmbeddingsClient, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderGemini:
		return llm.NewGeminiClient(ctx, geminiConfig(cfg))
	default:
		return llm.NewAzureClient(azureConfig(cfg))
	}
}

// newCompletion reuses the embeddings client when both roles use the same provider.
func newCompletion(ctx context.Context, cfg *config.Config, emb rag.EmbeddingsClient) (rag.CompletionClient, error) {
	if cfg.CompletionProvider == cfg.EmbeddingProvider {
		if c, ok := emb.(rag.CompletionClient); ok {
			return c, nil
		}
	}

	switch cfg.CompletionProvider {
	case config.ProviderGemini:
		return llm.NewGeminiClient(ctx, geminiConfig(cfg))
	case config.ProviderAnthropic:
		return llm.NewAnthropicClient(llm.AnthropicConfig{
			APIKey:    cfg.AnthropicAPIKey,
			Model:     cfg.AnthropicModel,
			MaxTokens: cfg.MaxTokens,
		})
	default:
		return llm.NewAzureClient(azureConfig(cfg))
	}
}

func (a *App) openIndex(ctx context.Context, cfg *config.Config) error {
	switch cfg.VectorStore {
	case config.StorePgvector:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)
		a.Index = index.NewPgRepository(pool)

	case config.StoreQdrant:
		store, err := index.NewQdrantStore(index.QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey,
			UseTLS:     cfg.QdrantUseTLS,
			Collection: cfg.QdrantCollection,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		a.Index = store

	default:
		search, err := index.NewAzureSearch(index.AzureSearchConfig{
			Endpoint:   cfg.AzureSearchEndpoint,
			APIKey:     cfg.AzureSearchAPIKey,
			IndexName:  cfg.AzureSearchIndexName,
			APIVersion: cfg.AzureSearchAPIVersion,
		}, &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		})
		if err != nil {
			return err
		}
		a.Index = search
	}
	return nil
}

// newSource prefers blob storage, then IMPORT_FILE. Neither configured yields a nil source.
func newSource(cfg *config.Config) (ingest.Source, error) {
	switch {
	case cfg.AzureStorageConnectionString != "":
		src, err := ingest.NewBlobSource(cfg.AzureStorageConnectionString, cfg.AzureBlobContainerName, cfg.AzureBlobFileName)
		if err != nil {
			return nil, fmt.Errorf("blob source: %w", err)
		}
		return src, nil
	case cfg.ImportFile != "":
		return ingest.FileSource{Path: cfg.ImportFile}, nil
	default:
		return nil, nil
	}
}

func sourceName(src ingest.Source) string {
	if src == nil {
		return "none"
	}
	return src.Name()
}

func azureConfig(cfg *config.Config) llm.AzureConfig {
	return llm.AzureConfig{
		Endpoint:             cfg.AzureOpenAIEndpoint,
		APIKey:               cfg.AzureOpenAIAPIKey,
		APIVersion:           cfg.AzureOpenAIAPIVersion,
		EmbeddingDeployment:  cfg.AzureOpenAIEmbeddingDeployment,
		CompletionDeployment: cfg.AzureOpenAICompletionDeployment,
		Dimensions:           cfg.EmbeddingDimensions,
		MaxTokens:            cfg.MaxTokens,
	}
}

func geminiConfig(cfg *config.Config) llm.GeminiConfig {
	return llm.GeminiConfig{
		APIKey:         cfg.GeminiAPIKey,
		EmbeddingModel: cfg.GeminiEmbeddingModel,
		ChatModel:      cfg.GeminiChatModel,
		Dimensions:     cfg.EmbeddingDimensions,
		MaxTokens:      cfg.MaxTokens,
	}
}
