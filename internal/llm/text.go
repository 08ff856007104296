package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/josinaldojr/smart-assistant/internal/rag"
)

var (
	errEmptyEmbeddingInput = errors.New("empty text for embedding")
	errEmptyCompletion     = errors.New("model returned empty text")
)

// checkDimensions enforces that every vector matches the dimension declared by the index.
// dim <= 0 disables the check.
func checkDimensions(values []float32, dim int) ([]float32, error) {
	if len(values) == 0 {
		return nil, rag.NewError(rag.StageEmbedding, 0, "", errors.New("no embeddings returned"))
	}
	if dim > 0 && len(values) != dim {
		return nil, rag.NewError(rag.StageEmbedding, 0, "",
			fmt.Errorf("unexpected embedding size %d (expected %d)", len(values), dim))
	}
	return values, nil
}

// splitSystem separates leading system messages (providers that take a dedicated
// system instruction) from the rest of the conversation.
func splitSystem(messages []rag.Message) (string, []rag.Message) {
	var sys []string
	i := 0
	for ; i < len(messages) && messages[i].Role == rag.RoleSystem; i++ {
		sys = append(sys, messages[i].Content)
	}
	return strings.Join(sys, "\n"), messages[i:]
}

func normalizeWhitespace(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
			if !space {
				b.WriteRune(' ')
				space = true
			}
		} else {
			b.WriteRune(r)
			space = false
		}
	}
	return b.String()
}
