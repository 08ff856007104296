package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/josinaldojr/smart-assistant/internal/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEmbeddings struct{ mock.Mock }

func (m *mockEmbeddings) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	vec, _ := args.Get(0).([]float32)
	return vec, args.Error(1)
}

type mockIndexer struct{ mock.Mock }

func (m *mockIndexer) EnsureIndex(ctx context.Context, dimensions int) error {
	return m.Called(ctx, dimensions).Error(0)
}

func (m *mockIndexer) Upsert(ctx context.Context, docs []rag.Document) error {
	return m.Called(ctx, docs).Error(0)
}

type staticSource struct {
	name string
	data []byte
	err  error
}

func (s staticSource) Name() string { return s.name }

func (s staticSource) Open(context.Context) ([]byte, error) { return s.data, s.err }

func TestImporterRun(t *testing.T) {
	src := staticSource{name: "flows.csv", data: []byte("User Flow,Screens\nLogin,Home\nCheckout,Cart\n")}
	emb := &mockEmbeddings{}
	idx := &mockIndexer{}

	idx.On("EnsureIndex", mock.Anything, 2).Return(nil)
	emb.On("Embed", mock.Anything, "Login Home").Return([]float32{1, 0}, nil)
	emb.On("Embed", mock.Anything, "Checkout Cart").Return([]float32{0, 1}, nil)
	idx.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	res, err := NewImporter(src, emb, idx, 2).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Imported: 2}, res)

	docs := idx.Calls[1].Arguments.Get(1).([]rag.Document)
	require.Len(t, docs, 2)
	assert.Equal(t, "flows-0", docs[0].ID)
	assert.Equal(t, []float32{1, 0}, docs[0].Embedding)
	assert.Equal(t, "flows-1", docs[1].ID)
	assert.Equal(t, "Checkout", docs[1].UserFlow)
}

func TestImporterSkipsBlankRecords(t *testing.T) {
	emb := &mockEmbeddings{}
	idx := &mockIndexer{}
	idx.On("EnsureIndex", mock.Anything, 3).Return(nil)
	emb.On("Embed", mock.Anything, "text").Return([]float32{1, 2, 3}, nil)
	idx.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	res, err := NewImporter(nil, emb, idx, 3).Index(context.Background(), []Record{
		{Doc: rag.Document{ID: "a"}, Text: "  "},
		{Doc: rag.Document{ID: "b"}, Text: "text"},
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Imported: 1, Skipped: 1}, res)
}

func TestImporterEmbeddingFailureAborts(t *testing.T) {
	emb := &mockEmbeddings{}
	idx := &mockIndexer{}
	idx.On("EnsureIndex", mock.Anything, 3).Return(nil)
	emb.On("Embed", mock.Anything, mock.Anything).
		Return(nil, rag.NewError(rag.StageEmbedding, 429, "rate limited", errors.New("too many requests")))

	_, err := NewImporter(nil, emb, idx, 3).Index(context.Background(), []Record{{Doc: rag.Document{ID: "a"}, Text: "x"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, rag.ErrImport)

	var rerr *rag.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 429, rerr.Status)
	idx.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestImporterRejectsDuplicateIDs(t *testing.T) {
	emb := &mockEmbeddings{}
	idx := &mockIndexer{}

	_, err := NewImporter(nil, emb, idx, 3).Index(context.Background(), []Record{
		{Doc: rag.Document{ID: "intro-0"}, Text: "api intro"},
		{Doc: rag.Document{ID: "intro-0"}, Text: "guide intro"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, rag.ErrImport)
	assert.Contains(t, err.Error(), `duplicate document id "intro-0"`)
	idx.AssertNotCalled(t, "EnsureIndex", mock.Anything, mock.Anything)
	emb.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestLoadFilesKeepsExtensionInID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guide.md"), []byte("markdown"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guide.txt"), []byte("plain"), 0o644))

	records, err := LoadFiles(dir)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.NoError(t, checkUniqueIDs(records))
}

func TestImporterSourceFailure(t *testing.T) {
	src := staticSource{name: "flows.xlsx", err: errors.New("blob not found")}
	_, err := NewImporter(src, &mockEmbeddings{}, &mockIndexer{}, 3).Run(context.Background())
	assert.ErrorIs(t, err, rag.ErrImport)
}

func TestImporterWithoutSource(t *testing.T) {
	_, err := NewImporter(nil, &mockEmbeddings{}, &mockIndexer{}, 3).Run(context.Background())
	assert.ErrorIs(t, err, rag.ErrImport)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "flows.csv")
	require.NoError(t, os.WriteFile(p, []byte("a\n1\n"), 0o644))

	src := FileSource{Path: p}
	assert.Equal(t, "flows.csv", src.Name())
	data, err := src.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n", string(data))

	_, err = FileSource{Path: filepath.Join(dir, "missing.csv")}.Open(context.Background())
	assert.ErrorIs(t, err, rag.ErrImport)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guide.md"), []byte("# Guide\nStep one."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.html"),
		[]byte(`<html><head><style>p{}</style><script>var x=1</script></head><body><p>Checkout</p><p>Pay now</p></body></html>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89, 0x50}, 0o644))

	records, err := LoadFiles(dir)
	require.NoError(t, err)
	require.Len(t, records, 2)

	byID := map[string]Record{}
	for _, r := range records {
		byID[r.Doc.ID] = r
	}
	assert.Equal(t, "# Guide\nStep one.", byID["guide_md-0"].Text)
	assert.Equal(t, "Checkout\nPay now", byID["page_html-0"].Doc.Content)
}

func TestSplitIntoChunks(t *testing.T) {
	assert.Nil(t, splitIntoChunks("  ", 10))
	assert.Equal(t, []string{"short"}, splitIntoChunks("short", 10))

	chunks := splitIntoChunks("aaaa\nbbbb\ncccc", 10)
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, chunks)

	long := strings.Repeat("x", 25)
	assert.Equal(t, []string{"xxxxxxxxxx", "xxxxxxxxxx", "xxxxx"}, splitIntoChunks(long, 10))
}

func TestSplitIntoChunksKeepsMultiByteRunes(t *testing.T) {
	line := strings.Repeat("ação", 5) // 30 bytes, 20 runes
	chunks := splitIntoChunks(line, 10)

	assert.Equal(t, line, strings.Join(chunks, ""))
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c), c)
		assert.LessOrEqual(t, len(c), 10)
	}
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "ab", sanitizeUTF8("a\xffb"))
	assert.Equal(t, "ção", sanitizeUTF8("ção"))
}
