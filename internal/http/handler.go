package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/josinaldojr/smart-assistant/internal/ingest"
	"github.com/josinaldojr/smart-assistant/internal/rag"
)

const (
	queryFailedMsg   = "An error occurred while processing your request."
	importFailedMsg  = "Failed to import and index data."
	importSuccessMsg = "Data imported and indexed successfully."
)

// Replier produces the assistant turn for a conversation.
type Replier interface {
	Reply(ctx context.Context, conv rag.Conversation) (rag.Turn, error)
}

// ImportRunner runs a spreadsheet import.
type ImportRunner interface {
	Run(ctx context.Context) (ingest.Result, error)
}

type Handler struct {
	replier      Replier
	importer     ImportRunner
	queryTimeout time.Duration
}

// NewHandler builds the API handler. importer may be nil; queryTimeout <= 0 disables the deadline.
func NewHandler(replier Replier, importer ImportRunner, queryTimeout time.Duration) *Handler {
	return &Handler{replier: replier, importer: importer, queryTimeout: queryTimeout}
}

type errorResponse struct {
	Error string `json:"error"`
}

type importResponse struct {
	Message  string `json:"message"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req rag.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}
	if err := req.Messages.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ctx := r.Context()
	if h.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.queryTimeout)
		defer cancel()
	}

	turn, err := h.replier.Reply(ctx, req.Messages)
	if err != nil {
		if errors.Is(err, rag.ErrInvalidConversation) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		slog.ErrorContext(ctx, "query failed", "error", err, "stage", stageOf(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: queryFailedMsg})
		return
	}

	writeJSON(w, http.StatusOK, rag.QueryResponse{Reply: turn.Content})
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	if h.importer == nil {
		slog.ErrorContext(r.Context(), "import requested but no spreadsheet source is configured")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: importFailedMsg})
		return
	}

	res, err := h.importer.Run(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "import failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: importFailedMsg})
		return
	}

	slog.InfoContext(r.Context(), "import finished", "imported", res.Imported, "skipped", res.Skipped)
	writeJSON(w, http.StatusOK, importResponse{
		Message:  importSuccessMsg,
		Imported: res.Imported,
		Skipped:  res.Skipped,
	})
}

func stageOf(err error) string {
	var rerr *rag.Error
	if errors.As(err, &rerr) {
		return string(rerr.Stage)
	}
	return "unknown"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
