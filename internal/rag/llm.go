package rag

import "context"

type EmbeddingsClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type CompletionClient interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Retriever returns the text content of the k stored documents nearest to embedding.
type Retriever interface {
	Search(ctx context.Context, embedding []float32, k int) ([]string, error)
}

// Indexer is the write side of a vector index.
type Indexer interface {
	EnsureIndex(ctx context.Context, dimensions int) error
	Upsert(ctx context.Context, docs []Document) error
}

// VectorIndex is implemented by every backend in internal/index.
type VectorIndex interface {
	Retriever
	Indexer
}
