package ingest

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	pdf "github.com/dslipak/pdf"
	"github.com/josinaldojr/smart-assistant/internal/rag"
	"golang.org/x/net/html"
)

const maxChunkLen = 2000

// LoadFiles walks root and turns every .md/.txt/.html/.htm/.pdf file into chunked records.
func LoadFiles(root string) ([]Record, error) {
	var records []Record

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isTextFile(path) {
			return nil
		}

		content, err := readText(path)
		if err != nil {
			return err
		}
		content = sanitizeUTF8(strings.TrimSpace(content))
		if content == "" {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		// a extensão fica no nome: guide.md e guide.txt não podem colidir
		filename := filepath.ToSlash(rel)

		chunks := splitIntoChunks(content, maxChunkLen)
		for i, c := range chunks {
			records = append(records, Record{
				Doc: rag.Document{
					ID:       DocumentID(filename, i),
					Filename: filename,
					Content:  c,
				},
				Text: c,
			})
		}
		slog.Info("file loaded", "path", path, "chunks", len(chunks))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func readText(path string) (string, error) {
	lpath := strings.ToLower(path)

	switch {
	case strings.HasSuffix(lpath, ".pdf"):
		text, err := extractTextFromPDF(path)
		if err != nil {
			return "", fmt.Errorf("read pdf %s: %w", path, err)
		}
		return text, nil

	case strings.HasSuffix(lpath, ".html") || strings.HasSuffix(lpath, ".htm"):
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return extractMainText(string(data)), nil

	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), nil
	}
}

func isTextFile(path string) bool {
	l := strings.ToLower(path)
	return strings.HasSuffix(l, ".md") ||
		strings.HasSuffix(l, ".txt") ||
		strings.HasSuffix(l, ".html") ||
		strings.HasSuffix(l, ".htm") ||
		strings.HasSuffix(l, ".pdf")
}

func extractMainText(htmlStr string) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}

	var b strings.Builder
	var walk func(*html.Node, bool)

	walk = func(n *html.Node, skip bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				skip = true
			}
		}

		if n.Type == html.TextNode && !skip {
			t := strings.TrimSpace(n.Data)
			if t != "" {
				b.WriteString(t)
				b.WriteString("\n")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, skip)
		}
	}
	walk(doc, false)

	var kept []string
	for _, l := range strings.Split(b.String(), "\n") {
		l = strings.TrimSpace(l)
		if len(l) > 1 {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

func extractTextFromPDF(path string) (string, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}

	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	buf := bytes.NewBuffer(nil)
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", err
	}

	return sanitizeUTF8(strings.TrimSpace(buf.String())), nil
}

// splitIntoChunks packs whole lines into chunks of at most maxLen bytes; longer lines are cut.
func splitIntoChunks(content string, maxLen int) []string {
	content = sanitizeUTF8(strings.TrimSpace(content))
	if content == "" {
		return nil
	}
	if len(content) <= maxLen {
		return []string{content}
	}

	var chunks []string
	var buf strings.Builder

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		chunk := sanitizeUTF8(strings.TrimSpace(buf.String()))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		buf.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		for len(line) > maxLen {
			cut := runeCut(line, maxLen)
			part := line[:cut]
			line = line[cut:]

			flush()
			buf.WriteString(part)
			flush()
		}

		if buf.Len()+len(line)+1 > maxLen {
			flush()
		}

		buf.WriteString(line)
		buf.WriteRune('\n')
	}

	flush()
	return chunks
}

// runeCut returns the largest offset <= max that does not split a UTF-8 sequence.
func runeCut(s string, max int) int {
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return max
	}
	return cut
}

// sanitizeUTF8 drops invalid bytes (Postgres rejects them with 22021).
func sanitizeUTF8(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[1:]
			continue
		}
		b.WriteRune(r)
		s = s[size:]
	}
	return b.String()
}
