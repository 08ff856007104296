package http

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
)

// NewRouter registers the API routes and, when staticDir exists, the chat UI.
func NewRouter(h *Handler, staticDir string) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/query", h.Query).Methods(http.MethodPost)
	api.HandleFunc("/import", h.Import).Methods(http.MethodPost)

	if staticDir != "" {
		if fi, err := os.Stat(staticDir); err == nil && fi.IsDir() {
			r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir))).Methods(http.MethodGet, http.MethodHead)
		}
	}

	return r
}
