package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/josinaldojr/smart-assistant/internal/rag"
)

// Source yields the raw bytes of the spreadsheet to import.
type Source interface {
	Name() string
	Open(ctx context.Context) ([]byte, error)
}

type BlobSource struct {
	client    *azblob.Client
	container string
	blob      string
}

func NewBlobSource(connectionString, container, blob string) (*BlobSource, error) {
	if connectionString == "" || container == "" || blob == "" {
		return nil, fmt.Errorf("missing AZURE_STORAGE_CONNECTION_STRING, AZURE_BLOB_CONTAINER_NAME or AZURE_BLOB_FILE_NAME")
	}
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	return &BlobSource{client: client, container: container, blob: blob}, nil
}

func (s *BlobSource) Name() string {
	return s.blob
}

func (s *BlobSource) Open(ctx context.Context) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, s.blob, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			return nil, rag.NewError(rag.StageImport, respErr.StatusCode, respErr.ErrorCode, err)
		}
		return nil, rag.NewError(rag.StageImport, 0, "", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, rag.NewError(rag.StageImport, 0, "", fmt.Errorf("read blob %s: %w", s.blob, err))
	}
	return data, nil
}

// FileSource reads a spreadsheet from local disk.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string {
	return filepath.Base(s.Path)
}

func (s FileSource) Open(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, rag.NewError(rag.StageImport, 0, "", err)
	}
	return data, nil
}
