package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/josinaldojr/smart-assistant/internal/rag"
)

type Result struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Importer embeds records and writes them to a vector index.
type Importer struct {
	source     Source
	embeddings rag.EmbeddingsClient
	index      rag.Indexer
	dimensions int
}

// NewImporter wires the import path. source may be nil when only Index is used.
func NewImporter(source Source, embeddings rag.EmbeddingsClient, index rag.Indexer, dimensions int) *Importer {
	return &Importer{
		source:     source,
		embeddings: embeddings,
		index:      index,
		dimensions: dimensions,
	}
}

// Run downloads the spreadsheet, turns each row into a document and indexes it.
func (im *Importer) Run(ctx context.Context) (Result, error) {
	if im.source == nil {
		return Result{}, rag.NewError(rag.StageImport, 0, "", errors.New("no spreadsheet source configured"))
	}

	data, err := im.source.Open(ctx)
	if err != nil {
		return Result{}, importError(err)
	}

	name := im.source.Name()
	rows, err := ParseSheet(name, data)
	if err != nil {
		return Result{}, importError(err)
	}
	slog.InfoContext(ctx, "spreadsheet parsed", "source", name, "rows", len(rows))

	records, err := RowsToRecords(BaseName(name), rows)
	if err != nil {
		return Result{}, importError(err)
	}

	return im.Index(ctx, records)
}

// Index ensures the index exists, embeds every non-blank record and upserts the batch.
// Any embedding failure aborts the whole import.
func (im *Importer) Index(ctx context.Context, records []Record) (Result, error) {
	if err := checkUniqueIDs(records); err != nil {
		return Result{}, importError(err)
	}
	if err := im.index.EnsureIndex(ctx, im.dimensions); err != nil {
		return Result{}, importError(err)
	}

	var res Result
	docs := make([]rag.Document, 0, len(records))
	for _, rec := range records {
		if strings.TrimSpace(rec.Text) == "" {
			slog.WarnContext(ctx, "skipping empty record", "id", rec.Doc.ID)
			res.Skipped++
			continue
		}

		vec, err := im.embeddings.Embed(ctx, rec.Text)
		if err != nil {
			return Result{}, importError(fmt.Errorf("embed %s: %w", rec.Doc.ID, err))
		}

		doc := rec.Doc
		doc.Embedding = vec
		docs = append(docs, doc)
	}

	if len(docs) > 0 {
		if err := im.index.Upsert(ctx, docs); err != nil {
			return Result{}, importError(err)
		}
	}

	res.Imported = len(docs)
	slog.InfoContext(ctx, "import finished", "imported", res.Imported, "skipped", res.Skipped)
	return res, nil
}

// checkUniqueIDs rejects a batch where two records would overwrite each other in the index.
func checkUniqueIDs(records []Record) error {
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.Doc.ID]; dup {
			return fmt.Errorf("duplicate document id %q", rec.Doc.ID)
		}
		seen[rec.Doc.ID] = struct{}{}
	}
	return nil
}

// importError re-tags a failure as an import error, keeping upstream status and body.
func importError(err error) error {
	var rerr *rag.Error
	if errors.As(err, &rerr) {
		if rerr.Stage == rag.StageImport {
			return err
		}
		return rag.NewError(rag.StageImport, rerr.Status, rerr.Body, err)
	}
	return rag.NewError(rag.StageImport, 0, "", err)
}
