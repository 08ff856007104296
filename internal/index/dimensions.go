package index

import (
	"fmt"

	"github.com/josinaldojr/smart-assistant/internal/rag"
)

// checkDimensions fails the import when an existing index was created for another vector size.
// existing <= 0 means the size could not be read and is not checked.
func checkDimensions(what string, existing, want int) error {
	if existing <= 0 || want <= 0 || existing == want {
		return nil
	}
	return rag.NewError(rag.StageImport, 0, "",
		fmt.Errorf("%s has %d dimensions, embeddings have %d", what, existing, want))
}
