package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/josinaldojr/smart-assistant/internal/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockQuerier struct{ mock.Mock }

func (m *mockQuerier) Query(ctx context.Context, conv rag.Conversation) (string, error) {
	args := m.Called(ctx, conv)
	return args.String(0), args.Error(1)
}

// blockingQuerier holds the request until release is closed.
type blockingQuerier struct {
	started chan rag.Conversation
	release chan struct{}
	reply   string
}

func newBlockingQuerier(reply string) *blockingQuerier {
	return &blockingQuerier{started: make(chan rag.Conversation, 1), release: make(chan struct{}), reply: reply}
}

func (b *blockingQuerier) Query(ctx context.Context, conv rag.Conversation) (string, error) {
	b.started <- conv
	<-b.release
	return b.reply, nil
}

func TestSubmitAppendsTurns(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, rag.Conversation{{Role: rag.RoleUser, Content: "Login flow"}}).Return("1. Valid credentials", nil)

	s := NewSession(q)
	turn, err := s.Submit(context.Background(), "Login flow")
	require.NoError(t, err)

	assert.Equal(t, rag.Turn{Role: rag.RoleAssistant, Content: "1. Valid credentials"}, turn)
	assert.Equal(t, rag.Conversation{
		{Role: rag.RoleUser, Content: "Login flow"},
		{Role: rag.RoleAssistant, Content: "1. Valid credentials"},
	}, s.Conversation())
	assert.False(t, s.Awaiting())
}

func TestSubmitSendsWholeConversation(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, mock.Anything).Return("first", nil).Once()
	q.On("Query", mock.Anything, rag.Conversation{
		{Role: rag.RoleUser, Content: "a"},
		{Role: rag.RoleAssistant, Content: "first"},
		{Role: rag.RoleUser, Content: "b"},
	}).Return("second", nil).Once()

	s := NewSession(q)
	_, err := s.Submit(context.Background(), "a")
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), "b")
	require.NoError(t, err)

	assert.Len(t, s.Conversation(), 4)
	q.AssertExpectations(t)
}

func TestSubmitBlankInput(t *testing.T) {
	q := &mockQuerier{}
	s := NewSession(q)

	for _, in := range []string{"", "   ", "\n\t"} {
		_, err := s.Submit(context.Background(), in)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}
	assert.Empty(t, s.Conversation())
	q.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}

func TestSubmitFailureKeepsUserTurn(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, mock.Anything).Return("", errors.New("http 500"))

	s := NewSession(q)
	_, err := s.Submit(context.Background(), "hello")
	require.Error(t, err)

	assert.Equal(t, rag.Conversation{{Role: rag.RoleUser, Content: "hello"}}, s.Conversation())
	assert.False(t, s.Awaiting())
}

func TestSubmitWhileAwaiting(t *testing.T) {
	bq := newBlockingQuerier("done")
	s := NewSession(bq)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "first")
		done <- err
	}()
	<-bq.started

	assert.True(t, s.Awaiting())
	_, err := s.Submit(context.Background(), "second")
	assert.ErrorIs(t, err, ErrAwaitingReply)
	assert.Equal(t, rag.Conversation{{Role: rag.RoleUser, Content: "first"}}, s.Conversation())

	close(bq.release)
	require.NoError(t, <-done)
	assert.Len(t, s.Conversation(), 2)
	assert.False(t, s.Awaiting())
}

func TestResetDiscardsLateReply(t *testing.T) {
	bq := newBlockingQuerier("late")
	s := NewSession(bq)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "first")
		done <- err
	}()
	<-bq.started

	s.Reset()
	assert.Empty(t, s.Conversation())
	assert.False(t, s.Awaiting())

	close(bq.release)
	assert.ErrorIs(t, <-done, ErrDiscarded)
	assert.Empty(t, s.Conversation())
}

func TestConversationIsCopy(t *testing.T) {
	q := &mockQuerier{}
	q.On("Query", mock.Anything, mock.Anything).Return("ok", nil)
	s := NewSession(q)
	_, _ = s.Submit(context.Background(), "x")

	conv := s.Conversation()
	conv[0].Content = "changed"
	assert.Equal(t, "x", s.Conversation()[0].Content)
}

func TestHTTPQuerier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/query", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req rag.QueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, rag.RoleUser, req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reply":"cases"}`))
	}))
	defer srv.Close()

	reply, err := NewHTTPQuerier(srv.URL+"/", srv.Client()).
		Query(context.Background(), rag.Conversation{{Role: rag.RoleUser, Content: "q"}})
	require.NoError(t, err)
	assert.Equal(t, "cases", reply)
}

func TestHTTPQuerierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"An error occurred while processing your request."}`))
	}))
	defer srv.Close()

	_, err := NewHTTPQuerier(srv.URL, srv.Client()).
		Query(context.Background(), rag.Conversation{{Role: rag.RoleUser, Content: "q"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "An error occurred")
	assert.Contains(t, err.Error(), "500")
}
