package rag

import (
	"errors"
	"fmt"
)

// Role identifica o autor de uma mensagem.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleSystem only appears in composed completion requests, never in a Conversation.
	RoleSystem Role = "system"
)

// Turn
// Uma mensagem da conversa. Imutável depois de criada.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is chronological; order matters.
type Conversation []Turn

// Message is one entry of the composed completion request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Document
// Registro indexado gerado a partir de uma linha de planilha (ou trecho de arquivo).
type Document struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	UserFlow  string    `json:"userFlow,omitempty"`
	Screens   string    `json:"screens,omitempty"`
	Features  string    `json:"features,omitempty"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
}

// QueryRequest
// Payload da API /api/query.
type QueryRequest struct {
	Messages Conversation `json:"messages"`
}

// QueryResponse
// Resposta da API /api/query.
type QueryResponse struct {
	Reply string `json:"reply"`
}

var ErrInvalidConversation = errors.New("invalid conversation")

// Validate checks the orchestration precondition: non-empty, known roles, last turn from the user.
func (c Conversation) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: no messages", ErrInvalidConversation)
	}
	for i, t := range c {
		if t.Role != RoleUser && t.Role != RoleAssistant {
			return fmt.Errorf("%w: message %d has role %q", ErrInvalidConversation, i, t.Role)
		}
	}
	if c[len(c)-1].Role != RoleUser {
		return fmt.Errorf("%w: last message must come from the user", ErrInvalidConversation)
	}
	return nil
}

// Latest returns the last turn. Callers validate first.
func (c Conversation) Latest() Turn {
	return c[len(c)-1]
}
