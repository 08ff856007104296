package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/josinaldojr/smart-assistant/internal/rag"
)

// HTTPQuerier talks to the assistant API.
type HTTPQuerier struct {
	baseURL string
	client  *http.Client
}

func NewHTTPQuerier(baseURL string, client *http.Client) *HTTPQuerier {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &HTTPQuerier{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (q *HTTPQuerier) Query(ctx context.Context, conv rag.Conversation) (string, error) {
	body, err := json.Marshal(rag.QueryRequest{Messages: conv})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.baseURL+"/api/query", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return "", fmt.Errorf("assistant api: %s (http %d)", e.Error, resp.StatusCode)
		}
		return "", fmt.Errorf("assistant api: http %d", resp.StatusCode)
	}

	var out rag.QueryResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode reply: %w", err)
	}
	return out.Reply, nil
}

var _ Querier = (*HTTPQuerier)(nil)
