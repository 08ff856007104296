package index

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/josinaldojr/smart-assistant/internal/rag"
	"github.com/pgvector/pgvector-go"
)

// PgRepository stores documents in a pgvector column of table "document".
type PgRepository struct {
	db *pgxpool.Pool
}

func NewPgRepository(db *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: db}
}

func (r *PgRepository) EnsureIndex(ctx context.Context, dimensions int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS document (
			id         TEXT PRIMARY KEY,
			filename   TEXT NOT NULL DEFAULT '',
			user_flow  TEXT NOT NULL DEFAULT '',
			screens    TEXT NOT NULL DEFAULT '',
			features   TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL,
			embedding  vector(%d) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS document_embedding_hnsw ON document USING hnsw (embedding vector_cosine_ops)`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return rag.NewError(rag.StageImport, 0, "", fmt.Errorf("ensure pgvector schema: %w", err))
		}
	}

	// a tabela pode ter sido criada antes com outra dimensão
	var existing int
	err := r.db.QueryRow(ctx, `
		SELECT atttypmod
		FROM pg_attribute
		WHERE attrelid = 'document'::regclass AND attname = 'embedding'
	`).Scan(&existing)
	if err != nil {
		return rag.NewError(rag.StageImport, 0, "", fmt.Errorf("read embedding dimension: %w", err))
	}
	return checkDimensions("pgvector column document.embedding", existing, dimensions)
}

func (r *PgRepository) Upsert(ctx context.Context, docs []rag.Document) error {
	for _, d := range docs {
		_, err := r.db.Exec(ctx, `
			INSERT INTO document (id, filename, user_flow, screens, features, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				filename = EXCLUDED.filename,
				user_flow = EXCLUDED.user_flow,
				screens = EXCLUDED.screens,
				features = EXCLUDED.features,
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding,
				updated_at = now()
		`,
			d.ID,
			d.Filename,
			d.UserFlow,
			d.Screens,
			d.Features,
			d.Content,
			pgvector.NewVector(d.Embedding),
		)
		if err != nil {
			return rag.NewError(rag.StageImport, 0, "", fmt.Errorf("upsert document %s: %w", d.ID, err))
		}
	}
	return nil
}

// Search faz a busca vetorial por distância de cosseno.
func (r *PgRepository) Search(ctx context.Context, embedding []float32, k int) ([]string, error) {
	if k <= 0 {
		k = rag.DefaultTopK
	}

	rows, err := r.db.Query(ctx, `
		SELECT content
		FROM document
		ORDER BY embedding <=> $1
		LIMIT $2
	`, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, rag.NewError(rag.StageRetrieval, 0, "", err)
	}
	defer rows.Close()

	var docs []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, rag.NewError(rag.StageRetrieval, 0, "", err)
		}
		docs = append(docs, content)
	}

	if err := rows.Err(); err != nil {
		return nil, rag.NewError(rag.StageRetrieval, 0, "", err)
	}
	return docs, nil
}

var _ rag.VectorIndex = (*PgRepository)(nil)
