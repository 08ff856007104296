package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/josinaldojr/smart-assistant/internal/rag"
)

var (
	ErrEmptyInput    = errors.New("message is empty")
	ErrAwaitingReply = errors.New("a reply is already pending")
	// ErrDiscarded is returned when the session was reset while the reply was in flight.
	ErrDiscarded = errors.New("conversation was reset")
)

// Querier sends the whole conversation and returns the assistant's reply text.
type Querier interface {
	Query(ctx context.Context, conv rag.Conversation) (string, error)
}

// Session holds one client-side conversation. Only one request may be in flight at a time.
type Session struct {
	querier Querier

	mu       sync.Mutex
	turns    rag.Conversation
	awaiting bool
	epoch    uint64
}

func NewSession(q Querier) *Session {
	return &Session{querier: q}
}

// Submit appends the user turn, asks for a reply and appends it.
// On failure the user turn is kept and nothing else is appended.
func (s *Session) Submit(ctx context.Context, input string) (rag.Turn, error) {
	if strings.TrimSpace(input) == "" {
		return rag.Turn{}, ErrEmptyInput
	}

	s.mu.Lock()
	if s.awaiting {
		s.mu.Unlock()
		return rag.Turn{}, ErrAwaitingReply
	}
	s.turns = append(s.turns, rag.Turn{Role: rag.RoleUser, Content: input})
	conv := append(rag.Conversation(nil), s.turns...)
	s.awaiting = true
	epoch := s.epoch
	s.mu.Unlock()

	reply, err := s.querier.Query(ctx, conv)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		return rag.Turn{}, ErrDiscarded
	}
	s.awaiting = false
	if err != nil {
		return rag.Turn{}, err
	}

	turn := rag.Turn{Role: rag.RoleAssistant, Content: reply}
	s.turns = append(s.turns, turn)
	return turn, nil
}

// Reset clears the conversation. A reply still in flight is dropped when it arrives.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	s.awaiting = false
	s.epoch++
}

// Conversation returns a copy of the turns so far.
func (s *Session) Conversation() rag.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(rag.Conversation(nil), s.turns...)
}

func (s *Session) Awaiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaiting
}
