package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/josinaldojr/smart-assistant/internal/rag"
	"golang.org/x/net/html"
)

// Crawl fetches pages breadth-first from baseURL, staying on the same host, and chunks their text.
// Pages that fail to download are logged and skipped.
func Crawl(ctx context.Context, client *http.Client, baseURL string, maxPages int) ([]Record, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	if client == nil {
		client = http.DefaultClient
	}

	visited := make(map[string]bool)
	queue := []string{base.String()}
	pages := 0
	var records []Record

	for len(queue) > 0 && pages < maxPages {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			continue
		}
		visited[current] = true
		pages++

		body, err := fetchPage(ctx, client, current)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.WarnContext(ctx, "page skipped", "url", current, "error", err)
			continue
		}

		text := sanitizeUTF8(strings.TrimSpace(extractMainText(body)))
		if text != "" {
			name := pageName(current, base)
			for i, c := range splitIntoChunks(text, maxChunkLen) {
				records = append(records, Record{
					Doc: rag.Document{
						ID:       DocumentID(name, i),
						Filename: current,
						Content:  c,
					},
					Text: c,
				})
			}
		}

		for _, link := range extractLinks(body, base) {
			if !visited[link] {
				queue = append(queue, link)
			}
		}
	}

	slog.InfoContext(ctx, "crawl finished", "base", base.String(), "pages", pages, "records", len(records))
	return records, nil
}

func fetchPage(ctx context.Context, client *http.Client, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// pageName turns a page URL into a document name: the path slug (or "overview" for the base
// page) plus a short hash of the URL, so pages sharing a last segment stay distinct.
func pageName(raw string, base *url.URL) string {
	sum := sha256.Sum256([]byte(raw))
	hash := hex.EncodeToString(sum[:4])

	u, err := url.Parse(raw)
	if err != nil {
		return hash
	}
	slug := strings.Trim(u.Path, "/")
	if u.Path == base.Path || u.Path == base.Path+"/" || slug == "" {
		slug = "overview"
	}
	return slug + "-" + hash
}

var skippedAssets = []string{".css", ".js", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico"}

func extractLinks(htmlStr string, base *url.URL) []string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key != "href" {
					continue
				}
				if link, ok := resolveLink(a.Val, base); ok && !seen[link] {
					seen[link] = true
					links = append(links, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links
}

func resolveLink(href string, base *url.URL) (string, bool) {
	h := strings.TrimSpace(href)
	if h == "" || strings.HasPrefix(h, "#") {
		return "", false
	}
	u, err := url.Parse(h)
	if err != nil {
		return "", false
	}
	u = base.ResolveReference(u)
	if u.Host != base.Host {
		return "", false
	}
	lp := strings.ToLower(u.Path)
	for _, ext := range skippedAssets {
		if strings.HasSuffix(lp, ext) {
			return "", false
		}
	}
	return u.Scheme + "://" + u.Host + u.Path, true
}
