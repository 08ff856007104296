package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderAzure     = "azure"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"

	StoreAzureSearch = "azuresearch"
	StorePgvector    = "pgvector"
	StoreQdrant      = "qdrant"
)

type Config struct {
	Port           string        `validate:"required"`
	AllowedOrigins []string
	StaticDir      string
	LogLevel       string        `validate:"oneof=debug info warn error"`
	LogFormat      string        `validate:"oneof=text json"`
	QueryTimeout   time.Duration

	EmbeddingProvider  string `validate:"oneof=azure gemini"`
	CompletionProvider string `validate:"oneof=azure gemini anthropic"`
	VectorStore        string `validate:"oneof=azuresearch pgvector qdrant"`

	EmbeddingDimensions int `validate:"gt=0"`
	TopK                int `validate:"gt=0"`
	MaxTokens           int `validate:"gt=0"`
	RephraseQuery       bool
	AnswerLanguage      string
	SystemPrompt        string

	AzureOpenAIEndpoint             string `validate:"required_if=EmbeddingProvider azure"`
	AzureOpenAIAPIKey               string `validate:"required_if=EmbeddingProvider azure"`
	AzureOpenAIAPIVersion           string
	AzureOpenAIEmbeddingDeployment  string `validate:"required_if=EmbeddingProvider azure"`
	AzureOpenAICompletionDeployment string `validate:"required_if=CompletionProvider azure"`

	AzureSearchEndpoint   string `validate:"required_if=VectorStore azuresearch"`
	AzureSearchAPIKey     string `validate:"required_if=VectorStore azuresearch"`
	AzureSearchIndexName  string `validate:"required_if=VectorStore azuresearch"`
	AzureSearchAPIVersion string

	AzureStorageConnectionString string
	AzureBlobContainerName       string `validate:"required_with=AzureStorageConnectionString"`
	AzureBlobFileName            string `validate:"required_with=AzureStorageConnectionString"`
	ImportFile                   string

	GeminiAPIKey         string `validate:"required_if=EmbeddingProvider gemini"`
	GeminiEmbeddingModel string
	GeminiChatModel      string

	AnthropicAPIKey string `validate:"required_if=CompletionProvider anthropic"`
	AnthropicModel  string

	DatabaseURL string `validate:"required_if=VectorStore pgvector"`

	QdrantHost       string
	QdrantPort       int
	QdrantAPIKey     string
	QdrantUseTLS     bool
	QdrantCollection string
}

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "3001")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")
	v.SetDefault("STATIC_DIR", "wwwroot")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("QUERY_TIMEOUT", "0s")

	v.SetDefault("EMBEDDING_PROVIDER", ProviderAzure)
	v.SetDefault("COMPLETION_PROVIDER", ProviderAzure)
	v.SetDefault("VECTOR_STORE", StoreAzureSearch)

	v.SetDefault("EMBEDDING_DIMENSIONS", 1536)
	v.SetDefault("RETRIEVAL_TOP_K", 30)
	v.SetDefault("MAX_TOKENS", 4096)
	v.SetDefault("REPHRASE_QUERY", false)
	v.SetDefault("ANSWER_LANGUAGE", "")
	v.SetDefault("SYSTEM_PROMPT", "")

	v.SetDefault("AZURE_OPENAI_API_VERSION", "2024-10-21")
	v.SetDefault("AZURE_SEARCH_API_VERSION", "2023-11-01")

	v.SetDefault("QDRANT_HOST", "localhost")
	v.SetDefault("QDRANT_PORT", 6334)
	v.SetDefault("QDRANT_USE_TLS", false)
	v.SetDefault("QDRANT_COLLECTION", "documents")
}

// Load reads .env (if present) and the process environment, applies defaults and validates.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	defaults(v)

	cfg := &Config{
		Port:           v.GetString("PORT"),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		StaticDir:      v.GetString("STATIC_DIR"),
		LogLevel:       strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:      strings.ToLower(v.GetString("LOG_FORMAT")),
		QueryTimeout:   v.GetDuration("QUERY_TIMEOUT"),

		EmbeddingProvider:  strings.ToLower(v.GetString("EMBEDDING_PROVIDER")),
		CompletionProvider: strings.ToLower(v.GetString("COMPLETION_PROVIDER")),
		VectorStore:        strings.ToLower(v.GetString("VECTOR_STORE")),

		EmbeddingDimensions: v.GetInt("EMBEDDING_DIMENSIONS"),
		TopK:                v.GetInt("RETRIEVAL_TOP_K"),
		MaxTokens:           v.GetInt("MAX_TOKENS"),
		RephraseQuery:       v.GetBool("REPHRASE_QUERY"),
		AnswerLanguage:      v.GetString("ANSWER_LANGUAGE"),
		SystemPrompt:        v.GetString("SYSTEM_PROMPT"),

		AzureOpenAIEndpoint:             v.GetString("AZURE_OPENAI_ENDPOINT"),
		AzureOpenAIAPIKey:               v.GetString("AZURE_OPENAI_API_KEY"),
		AzureOpenAIAPIVersion:           v.GetString("AZURE_OPENAI_API_VERSION"),
		AzureOpenAIEmbeddingDeployment:  v.GetString("AZURE_OPENAI_EMBEDDING_DEPLOYMENT"),
		AzureOpenAICompletionDeployment: v.GetString("AZURE_OPENAI_COMPLETION_DEPLOYMENT"),

		AzureSearchEndpoint:   v.GetString("AZURE_SEARCH_ENDPOINT"),
		AzureSearchAPIKey:     v.GetString("AZURE_SEARCH_API_KEY"),
		AzureSearchIndexName:  v.GetString("AZURE_SEARCH_INDEX_NAME"),
		AzureSearchAPIVersion: v.GetString("AZURE_SEARCH_API_VERSION"),

		AzureStorageConnectionString: v.GetString("AZURE_STORAGE_CONNECTION_STRING"),
		AzureBlobContainerName:       v.GetString("AZURE_BLOB_CONTAINER_NAME"),
		AzureBlobFileName:            v.GetString("AZURE_BLOB_FILE_NAME"),
		ImportFile:                   v.GetString("IMPORT_FILE"),

		GeminiAPIKey:         firstNonEmpty(v.GetString("GOOGLE_API_KEY"), v.GetString("GEMINI_API_KEY")),
		GeminiEmbeddingModel: v.GetString("GEMINI_EMBEDDING_MODEL"),
		GeminiChatModel:      v.GetString("GEMINI_CHAT_MODEL"),

		AnthropicAPIKey: v.GetString("ANTHROPIC_API_KEY"),
		AnthropicModel:  v.GetString("ANTHROPIC_MODEL"),

		DatabaseURL: v.GetString("DATABASE_URL"),

		QdrantHost:       v.GetString("QDRANT_HOST"),
		QdrantPort:       v.GetInt("QDRANT_PORT"),
		QdrantAPIKey:     v.GetString("QDRANT_API_KEY"),
		QdrantUseTLS:     v.GetBool("QDRANT_USE_TLS"),
		QdrantCollection: v.GetString("QDRANT_COLLECTION"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.CompletionProvider == ProviderGemini && c.GeminiAPIKey == "" {
		return fmt.Errorf("invalid config: GEMINI_API_KEY is required when COMPLETION_PROVIDER=gemini")
	}
	if c.CompletionProvider == ProviderAzure && (c.AzureOpenAIEndpoint == "" || c.AzureOpenAIAPIKey == "") {
		return fmt.Errorf("invalid config: AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY are required when COMPLETION_PROVIDER=azure")
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
