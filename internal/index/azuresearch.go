package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/josinaldojr/smart-assistant/internal/rag"
)

const (
	DefaultSearchAPIVersion = "2023-11-01"
	// maxUploadBatch is the service limit of documents per indexing request.
	maxUploadBatch = 1000
)

type AzureSearchConfig struct {
	Endpoint   string
	APIKey     string
	IndexName  string
	APIVersion string
}

// AzureSearch is a REST client for one Azure AI Search index.
type AzureSearch struct {
	cfg    AzureSearchConfig
	client *http.Client
}

func NewAzureSearch(cfg AzureSearchConfig, client *http.Client) (*AzureSearch, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" || cfg.IndexName == "" {
		return nil, fmt.Errorf("missing AZURE_SEARCH_ENDPOINT, AZURE_SEARCH_API_KEY or AZURE_SEARCH_INDEX_NAME")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultSearchAPIVersion
	}
	if client == nil {
		client = &http.Client{}
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &AzureSearch{cfg: cfg, client: client}, nil
}

type vectorQuery struct {
	Kind   string    `json:"kind"`
	Vector []float32 `json:"vector"`
	Fields string    `json:"fields"`
	K      int       `json:"k"`
}

type searchRequest struct {
	Select        string        `json:"select"`
	Top           int           `json:"top"`
	VectorQueries []vectorQuery `json:"vectorQueries"`
}

type searchResponse struct {
	Value []struct {
		Content string `json:"content"`
	} `json:"value"`
}

func (s *AzureSearch) Search(ctx context.Context, embedding []float32, k int) ([]string, error) {
	req := searchRequest{
		Select: "content",
		Top:    k,
		VectorQueries: []vectorQuery{{
			Kind:   "vector",
			Vector: embedding,
			Fields: "embedding",
			K:      k,
		}},
	}

	var rsp searchResponse
	if err := s.do(ctx, http.MethodPost, s.indexPath("/docs/search"), req, &rsp); err != nil {
		return nil, stageError(rag.StageRetrieval, err)
	}

	docs := make([]string, 0, len(rsp.Value))
	for _, v := range rsp.Value {
		docs = append(docs, v.Content)
	}
	return docs, nil
}

type indexField struct {
	Name                string `json:"name"`
	Type                string `json:"type"`
	Key                 bool   `json:"key,omitempty"`
	Searchable          bool   `json:"searchable"`
	Filterable          bool   `json:"filterable"`
	Retrievable         bool   `json:"retrievable"`
	Dimensions          int    `json:"dimensions,omitempty"`
	VectorSearchProfile string `json:"vectorSearchProfile,omitempty"`
}

type indexSchema struct {
	Name         string       `json:"name"`
	Fields       []indexField `json:"fields"`
	VectorSearch struct {
		Algorithms []map[string]string `json:"algorithms"`
		Profiles   []map[string]string `json:"profiles"`
	} `json:"vectorSearch"`
}

// EnsureIndex creates or updates the index schema. The embedding field dimension must
// match the embedding model.
func (s *AzureSearch) EnsureIndex(ctx context.Context, dimensions int) error {
	schema := indexSchema{
		Name: s.cfg.IndexName,
		Fields: []indexField{
			{Name: "id", Type: "Edm.String", Key: true, Retrievable: true, Filterable: true},
			{Name: "filename", Type: "Edm.String", Searchable: true, Filterable: true, Retrievable: true},
			{Name: "userFlow", Type: "Edm.String", Searchable: true, Filterable: true, Retrievable: true},
			{Name: "screens", Type: "Edm.String", Searchable: true, Filterable: true, Retrievable: true},
			{Name: "features", Type: "Edm.String", Searchable: true, Filterable: true, Retrievable: true},
			{Name: "content", Type: "Edm.String", Searchable: true, Retrievable: true},
			{
				Name:                "embedding",
				Type:                "Collection(Edm.Single)",
				Searchable:          true,
				Retrievable:         true,
				Dimensions:          dimensions,
				VectorSearchProfile: "default",
			},
		},
	}
	schema.VectorSearch.Algorithms = []map[string]string{{"name": "default-hnsw", "kind": "hnsw"}}
	schema.VectorSearch.Profiles = []map[string]string{{"name": "default", "algorithm": "default-hnsw"}}

	if err := s.do(ctx, http.MethodPut, s.indexPath(""), schema, nil); err != nil {
		return stageError(rag.StageImport, err)
	}
	return nil
}

type uploadResponse struct {
	Value []struct {
		Key          string `json:"key"`
		Status       bool   `json:"status"`
		ErrorMessage string `json:"errorMessage"`
	} `json:"value"`
}

func (s *AzureSearch) Upsert(ctx context.Context, docs []rag.Document) error {
	for start := 0; start < len(docs); start += maxUploadBatch {
		end := min(start+maxUploadBatch, len(docs))

		actions := make([]map[string]any, 0, end-start)
		for _, d := range docs[start:end] {
			actions = append(actions, map[string]any{
				"@search.action": "upload",
				"id":             d.ID,
				"filename":       d.Filename,
				"userFlow":       d.UserFlow,
				"screens":        d.Screens,
				"features":       d.Features,
				"content":        d.Content,
				"embedding":      d.Embedding,
			})
		}

		var rsp uploadResponse
		if err := s.do(ctx, http.MethodPost, s.indexPath("/docs/index"), map[string]any{"value": actions}, &rsp); err != nil {
			return stageError(rag.StageImport, err)
		}

		var failed []string
		for _, v := range rsp.Value {
			if !v.Status {
				failed = append(failed, fmt.Sprintf("%s: %s", v.Key, v.ErrorMessage))
			}
		}
		if len(failed) > 0 {
			return rag.NewError(rag.StageImport, http.StatusMultiStatus, strings.Join(failed, "; "),
				fmt.Errorf("%d documents rejected", len(failed)))
		}
	}
	return nil
}

func (s *AzureSearch) indexPath(suffix string) string {
	return "/indexes/" + url.PathEscape(s.cfg.IndexName) + suffix
}

// httpError is a non-2xx answer from the service.
type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("azure search http %d", e.status)
}

func stageError(stage rag.Stage, err error) error {
	var herr *httpError
	if errors.As(err, &herr) {
		return rag.NewError(stage, herr.status, herr.body, err)
	}
	return rag.NewError(stage, 0, "", err)
}

func (s *AzureSearch) do(ctx context.Context, method string, path string, req any, rsp any) error {
	u := s.cfg.Endpoint + path + "?api-version=" + url.QueryEscape(s.cfg.APIVersion)

	var buf io.Reader
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("api-key", s.cfg.APIKey)

	response, err := s.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode >= 400 {
		return &httpError{status: response.StatusCode, body: string(payload)}
	}

	if rsp != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, rsp); err != nil {
			return fmt.Errorf("decode azure search response: %w", err)
		}
	}

	return nil
}

var _ rag.VectorIndex = (*AzureSearch)(nil)
