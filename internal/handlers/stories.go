package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/plotweaver/internal/worker"
	"github.com/jwebster45206/plotweaver/pkg/engine"
	"github.com/jwebster45206/plotweaver/pkg/queue"
	"github.com/jwebster45206/plotweaver/pkg/storage"
	"github.com/jwebster45206/plotweaver/pkg/story"
)

// StepEnqueuer hands step requests to the workers.
type StepEnqueuer interface {
	EnqueueRequest(ctx context.Context, req *queue.Request) error
}

// QueuedPublisher announces accepted requests to event subscribers.
type QueuedPublisher interface {
	PublishRequestQueued(ctx context.Context, storyID uuid.UUID, requestID string, requestType string) error
}

// CreateStoryRequest starts a story from a stored opening or an inline one.
type CreateStoryRequest struct {
	Opening string         `json:"opening,omitempty"` // opening filename
	Inline  *story.Opening `json:"inline,omitempty"`
}

// StepRequest is the optional body of a step call.
type StepRequest struct {
	Steps int `json:"steps,omitempty"`
}

// StoryResponse is a story snapshot together with its rendering.
type StoryResponse struct {
	Story      *story.Story      `json:"story"`
	Year       int               `json:"year"`
	Ended      bool              `json:"ended"`
	Totals     story.Diagnostics `json:"totals"`
	Transcript string            `json:"transcript"`
}

// StepResponse reports the steps a synchronous call ran.
type StepResponse struct {
	Results    []engine.StepResult `json:"results"`
	Year       int                 `json:"year"`
	Ended      bool                `json:"ended"`
	Transcript string              `json:"transcript"`
}

// QueuedResponse acknowledges a request handed to the workers.
type QueuedResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

type StoriesHandler struct {
	processor *worker.StoryProcessor
	storage   storage.Storage
	queue     StepEnqueuer
	publisher QueuedPublisher
	logger    *slog.Logger
}

func NewStoriesHandler(processor *worker.StoryProcessor, s storage.Storage, logger *slog.Logger) *StoriesHandler {
	return &StoriesHandler{
		processor: processor,
		storage:   s,
		logger:    logger,
	}
}

// WithQueue makes step and run calls asynchronous. publisher may be nil.
func (h *StoriesHandler) WithQueue(q StepEnqueuer, publisher QueuedPublisher) *StoriesHandler {
	h.queue = q
	h.publisher = publisher
	return h
}

// ServeHTTP handles story requests
// Routes:
// POST /v1/stories            - Start a story from an opening
// GET /v1/stories/{id}        - Read a story and its transcript
// DELETE /v1/stories/{id}     - Delete a story
// POST /v1/stories/{id}/step  - Advance a story by {"steps": n} steps
// POST /v1/stories/{id}/run   - Advance a story until it ends
func (h *StoriesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	parts := splitPath(r.URL.Path, "/v1/stories")
	if len(parts) == 0 {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleCreate(w, r)
		return
	}

	id, ok := parseStoryID(parts[0])
	if !ok {
		h.logger.Warn("Invalid story ID", "id", parts[0])
		writeError(w, h.logger, http.StatusBadRequest, "Invalid story ID format")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleRead(w, r, id)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.handleDelete(w, r, id)
	case len(parts) == 2 && parts[1] == "step" && r.Method == http.MethodPost:
		var body StepRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
				return
			}
		}
		if body.Steps < 0 {
			writeError(w, h.logger, http.StatusBadRequest, "steps must not be negative")
			return
		}
		if body.Steps == 0 {
			body.Steps = 1
		}
		h.handleAdvance(w, r, queue.NewStepRequest(id, body.Steps))
	case len(parts) == 2 && parts[1] == "run" && r.Method == http.MethodPost:
		h.handleAdvance(w, r, queue.NewRunRequest(id))
	case len(parts) <= 2:
		h.logger.Warn("Method not allowed for stories endpoint", "method", r.Method, "path", r.URL.Path)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *StoriesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid create story request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	opening := req.Inline
	switch {
	case opening != nil && req.Opening != "":
		writeError(w, h.logger, http.StatusBadRequest, "Specify either opening or inline, not both")
		return
	case opening == nil && req.Opening == "":
		writeError(w, h.logger, http.StatusBadRequest, "opening is required")
		return
	case opening == nil:
		o, err := h.storage.GetOpening(r.Context(), ensureJSONExtension(req.Opening))
		if err != nil {
			if strings.Contains(err.Error(), "not found") {
				writeError(w, h.logger, http.StatusNotFound, "Opening not found")
				return
			}
			h.logger.Error("Failed to load opening", "error", err, "opening", req.Opening)
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		opening = o
	}

	if err := opening.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	st, err := h.processor.Create(r.Context(), opening)
	if err != nil {
		h.logger.Error("Failed to create story", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create story")
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, newStoryResponse(st))
}

func (h *StoriesHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	st, err := h.processor.Load(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load story", "error", err, "story_id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load story")
		return
	}
	if st == nil {
		writeError(w, h.logger, http.StatusNotFound, "Story not found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newStoryResponse(st))
}

func (h *StoriesHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	st, err := h.processor.Load(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load story", "error", err, "story_id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete story")
		return
	}
	if st == nil {
		writeError(w, h.logger, http.StatusNotFound, "Story not found")
		return
	}
	if err := h.processor.Delete(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete story", "error", err, "story_id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete story")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StoriesHandler) handleAdvance(w http.ResponseWriter, r *http.Request, req *queue.Request) {
	if h.queue != nil {
		h.handleEnqueue(w, r, req)
		return
	}

	out, err := h.processor.Advance(r.Context(), req.StoryID, req.StepCount())
	switch {
	case errors.Is(err, worker.ErrStoryNotFound):
		writeError(w, h.logger, http.StatusNotFound, "Story not found")
		return
	case errors.Is(err, story.ErrStoryEnded):
		writeError(w, h.logger, http.StatusConflict, "Story has ended")
		return
	case err != nil:
		h.logger.Error("Failed to advance story", "error", err, "story_id", req.StoryID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to advance story")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, StepResponse{
		Results:    out.Results,
		Year:       out.Story.Year(),
		Ended:      out.Story.Ended(),
		Transcript: story.Render(out.Story),
	})
}

func (h *StoriesHandler) handleEnqueue(w http.ResponseWriter, r *http.Request, req *queue.Request) {
	ctx := r.Context()
	st, err := h.processor.Load(ctx, req.StoryID)
	if err != nil {
		h.logger.Error("Failed to load story", "error", err, "story_id", req.StoryID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load story")
		return
	}
	if st == nil {
		writeError(w, h.logger, http.StatusNotFound, "Story not found")
		return
	}
	if st.Ended() {
		writeError(w, h.logger, http.StatusConflict, "Story has ended")
		return
	}

	if err := h.queue.EnqueueRequest(ctx, req); err != nil {
		h.logger.Error("Failed to enqueue request", "error", err, "story_id", req.StoryID.String())
		writeError(w, h.logger, http.StatusServiceUnavailable, "Failed to queue request")
		return
	}
	if h.publisher != nil {
		if err := h.publisher.PublishRequestQueued(ctx, req.StoryID, req.RequestID, string(req.Type)); err != nil {
			h.logger.Warn("Failed to publish queued event", "error", err)
		}
	}
	writeJSON(w, h.logger, http.StatusAccepted, QueuedResponse{RequestID: req.RequestID, Status: "queued"})
}

func newStoryResponse(st *story.Story) StoryResponse {
	return StoryResponse{
		Story:      st,
		Year:       st.Year(),
		Ended:      st.Ended(),
		Totals:     st.Totals(),
		Transcript: story.Render(st),
	}
}
