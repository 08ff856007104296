package index

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/josinaldojr/smart-assistant/internal/rag"
	"github.com/qdrant/go-client/qdrant"
)

const DefaultQdrantCollection = "documents"

type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultQdrantCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	return &QdrantStore{client: client, collection: cfg.Collection}, nil
}

func (s *QdrantStore) EnsureIndex(ctx context.Context, dimensions int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return rag.NewError(rag.StageImport, 0, "", err)
	}
	if exists {
		info, err := s.client.GetCollectionInfo(ctx, s.collection)
		if err != nil {
			return rag.NewError(rag.StageImport, 0, "", fmt.Errorf("get collection info: %w", err))
		}
		return checkDimensions("qdrant collection "+s.collection, collectionSize(info), dimensions)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dimensions),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return rag.NewError(rag.StageImport, 0, "", fmt.Errorf("create collection: %w", err))
	}
	return nil
}

// collectionSize reads the size of the single unnamed vector; 0 when the collection uses named vectors.
func collectionSize(info *qdrant.CollectionInfo) int {
	return int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
}

func (s *QdrantStore) Upsert(ctx context.Context, docs []rag.Document) error {
	if len(docs) == 0 {
		return nil
	}

	pts := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		pts[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(d.ID)),
			Vectors: qdrant.NewVectors(d.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"doc_id":   d.ID,
				"filename": d.Filename,
				"userFlow": d.UserFlow,
				"screens":  d.Screens,
				"features": d.Features,
				"content":  d.Content,
			}),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         pts,
	})
	if err != nil {
		return rag.NewError(rag.StageImport, 0, "", err)
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, embedding []float32, k int) ([]string, error) {
	limit := uint64(k)
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Limit:          &limit,
		Query:          qdrant.NewQuery(embedding...),
		WithPayload:    qdrant.NewWithPayloadInclude("content"),
	})
	if err != nil {
		return nil, rag.NewError(rag.StageRetrieval, 0, "", err)
	}

	docs := make([]string, 0, len(resp))
	for _, p := range resp {
		if v, ok := p.Payload["content"]; ok {
			docs = append(docs, v.GetStringValue())
		}
	}
	return docs, nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// pointID maps a document id onto the UUID space qdrant requires, stable across imports.
func pointID(docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(docID)).String()
}

var _ rag.VectorIndex = (*QdrantStore)(nil)
