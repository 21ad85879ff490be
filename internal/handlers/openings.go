package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/plotweaver/pkg/storage"
)

type OpeningsHandler struct {
	log     *slog.Logger
	storage storage.Storage
}

func NewOpeningsHandler(log *slog.Logger, storage storage.Storage) *OpeningsHandler {
	return &OpeningsHandler{
		log:     log,
		storage: storage,
	}
}

// ServeHTTP handles
// GET /v1/openings        - map of opening name to filename
// GET /v1/openings/{file} - one opening
func (h *OpeningsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet {
		writeError(w, h.log, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	parts := splitPath(r.URL.Path, "/v1/openings")
	switch len(parts) {
	case 0:
		openings, err := h.storage.ListOpenings(r.Context())
		if err != nil {
			h.log.Error("Failed to list openings", "error", err)
			writeError(w, h.log, http.StatusInternalServerError, "Failed to list openings")
			return
		}
		writeJSON(w, h.log, http.StatusOK, openings)
	case 1:
		filename := parts[0]
		if strings.Contains(filename, "..") {
			writeError(w, h.log, http.StatusBadRequest, "Invalid filename")
			return
		}
		o, err := h.storage.GetOpening(r.Context(), ensureJSONExtension(filename))
		if err != nil {
			if strings.Contains(err.Error(), "not found") {
				writeError(w, h.log, http.StatusNotFound, "Opening not found")
				return
			}
			h.log.Error("Failed to get opening", "error", err, "filename", filename)
			writeError(w, h.log, http.StatusInternalServerError, "Failed to retrieve opening")
			return
		}
		writeJSON(w, h.log, http.StatusOK, o)
	default:
		writeError(w, h.log, http.StatusBadRequest, "Invalid filename")
	}
}
