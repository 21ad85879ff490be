package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jwebster45206/plotweaver/pkg/storage"
)

const defaultArchiveLimit = 20

type ArchiveHandler struct {
	archive storage.Archive
	logger  *slog.Logger
}

func NewArchiveHandler(archive storage.Archive, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		archive: archive,
		logger:  logger,
	}
}

// ServeHTTP handles
// GET /v1/archive?limit=n - newest finished stories
// GET /v1/archive/{id}    - one finished story
func (h *ArchiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	parts := splitPath(r.URL.Path, "/v1/archive")
	switch len(parts) {
	case 0:
		limit := defaultArchiveLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, h.logger, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}
		rows, err := h.archive.ListArchived(r.Context(), limit)
		if err != nil {
			h.logger.Error("Failed to list archive", "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to list archive")
			return
		}
		if rows == nil {
			rows = []storage.ArchivedStory{}
		}
		writeJSON(w, h.logger, http.StatusOK, rows)
	case 1:
		id, ok := parseStoryID(parts[0])
		if !ok {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid story ID format")
			return
		}
		row, err := h.archive.GetArchived(r.Context(), id)
		if err != nil {
			h.logger.Error("Failed to read archive", "error", err, "story_id", id.String())
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to read archive")
			return
		}
		if row == nil {
			writeError(w, h.logger, http.StatusNotFound, "Story not archived")
			return
		}
		writeJSON(w, h.logger, http.StatusOK, row)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}
