package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/plotweaver/internal/worker"
	"github.com/jwebster45206/plotweaver/pkg/action"
	"github.com/jwebster45206/plotweaver/pkg/atom"
	"github.com/jwebster45206/plotweaver/pkg/character"
	"github.com/jwebster45206/plotweaver/pkg/condition"
	"github.com/jwebster45206/plotweaver/pkg/engine"
	"github.com/jwebster45206/plotweaver/pkg/graph"
	"github.com/jwebster45206/plotweaver/pkg/queue"
	"github.com/jwebster45206/plotweaver/pkg/storage"
	"github.com/jwebster45206/plotweaver/pkg/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
	Level: slog.LevelError, // Reduce noise in tests
}))

const rivalsJSON = `{
	"name": "rivals",
	"default_position": "city",
	"seeds": {
		"enemy": {
			"position": "texcoco_lake",
			"facts": [{"kind": "emotion", "emotion": 1, "intensity": -2, "a": "a", "b": "b", "from": "enemy", "to": "warrior"}]
		},
		"warrior": {"position": "texcoco_lake"}
	}
}`

func rivals(t *testing.T) *story.Opening {
	t.Helper()
	var o story.Opening
	require.NoError(t, json.Unmarshal([]byte(rivalsJSON), &o))
	require.NoError(t, o.Validate())
	return &o
}

func testDeps(t *testing.T) engine.Deps {
	t.Helper()
	a, b := condition.SlotA, condition.SlotB
	catalog, err := action.NewCatalog([]action.Definition{{
		Name: "attack", Kind: action.Simple, Characters: 2,
		Postconditions: []condition.Condition{
			condition.NewEmotion(condition.Brotherly, -3, b, a),
			condition.NewTension(condition.HealthAtRisk, b, a),
		},
	}})
	require.NoError(t, err)
	index, err := atom.NewIndex([]*atom.Atom{{
		ID:          "hatred",
		Edges:       []graph.Edge{{Source: "a", Target: "b", Label: "E1(-2)"}},
		NextActions: []atom.NextAction{{Action: "attack", Performer: "a", Receiver: "b"}},
	}}, 50, nil)
	require.NoError(t, err)
	return engine.Deps{Actions: catalog, Atoms: index, Logger: testLogger}
}

type fixture struct {
	handler *StoriesHandler
	storage *storage.MockStorage
	archive *storage.MockArchive
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := storage.NewMockStorage()
	s.AddOpening("rivals.json", rivals(t))
	archive := storage.NewMockArchive()
	p := worker.NewStoryProcessor(s, archive, testDeps(t), engine.DefaultPolicy(), testLogger)
	return &fixture{
		handler: NewStoriesHandler(p, s, testLogger),
		storage: s,
		archive: archive,
	}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) create(t *testing.T) uuid.UUID {
	t.Helper()
	rr := f.do(http.MethodPost, "/v1/stories", `{"opening":"rivals"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp StoryResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp.Story.ID
}

func TestStoriesHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{"stored opening", `{"opening":"rivals.json"}`, http.StatusCreated},
		{"stored opening without extension", `{"opening":"rivals"}`, http.StatusCreated},
		{"inline opening", `{"inline":` + rivalsJSON + `}`, http.StatusCreated},
		{"unknown opening", `{"opening":"nowhere"}`, http.StatusNotFound},
		{"missing opening", `{}`, http.StatusBadRequest},
		{"both", `{"opening":"rivals","inline":` + rivalsJSON + `}`, http.StatusBadRequest},
		{"empty inline", `{"inline":{"name":"empty","default_position":"city","seeds":{}}}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rr := f.do(http.MethodPost, "/v1/stories", tt.body)
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			if tt.expectedStatus == http.StatusCreated {
				assert.Equal(t, 1, f.storage.StoryCount())
			} else {
				assert.Zero(t, f.storage.StoryCount())
			}
		})
	}
}

func TestStoriesHandler_ReadAndDelete(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)

	rr := f.do(http.MethodGet, "/v1/stories/"+id.String(), "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp StoryResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, id, resp.Story.ID)
	assert.Zero(t, resp.Year)
	assert.False(t, resp.Ended)
	assert.Contains(t, resp.Story.Cast, character.Enemy)

	rr = f.do(http.MethodDelete, "/v1/stories/"+id.String(), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Zero(t, f.storage.StoryCount())

	rr = f.do(http.MethodGet, "/v1/stories/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = f.do(http.MethodDelete, "/v1/stories/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStoriesHandler_BadRoutes(t *testing.T) {
	f := newFixture(t)
	id := uuid.New().String()
	tests := []struct {
		method, path   string
		expectedStatus int
	}{
		{http.MethodGet, "/v1/stories", http.StatusMethodNotAllowed},
		{http.MethodGet, "/v1/stories/not-a-uuid", http.StatusBadRequest},
		{http.MethodPatch, "/v1/stories/" + id, http.StatusMethodNotAllowed},
		{http.MethodGet, "/v1/stories/" + id + "/step", http.StatusMethodNotAllowed},
		{http.MethodPost, "/v1/stories/" + id + "/step/again", http.StatusNotFound},
		{http.MethodPost, "/v1/stories/" + id + "/step", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := f.do(tt.method, tt.path, "")
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
		})
	}
}

func TestStoriesHandler_StepSynchronously(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)

	rr := f.do(http.MethodPost, "/v1/stories/"+id.String()+"/step", `{"steps":2}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp StepResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 1, resp.Results[0].Iteration)
	assert.Positive(t, resp.Year)
	assert.Contains(t, strings.ToLower(resp.Transcript), "attack")

	rr = f.do(http.MethodPost, "/v1/stories/"+id.String()+"/step", `{"steps":-1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStoriesHandler_RunUntilEnded(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)

	rr := f.do(http.MethodPost, "/v1/stories/"+id.String()+"/run", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp StepResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Ended)

	row, err := f.archive.GetArchived(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, row)

	rr = f.do(http.MethodPost, "/v1/stories/"+id.String()+"/step", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

type recordingQueue struct {
	requests []*queue.Request
	err      error
}

func (q *recordingQueue) EnqueueRequest(ctx context.Context, req *queue.Request) error {
	if q.err != nil {
		return q.err
	}
	q.requests = append(q.requests, req)
	return nil
}

type recordingPublisher struct {
	types []string
}

func (p *recordingPublisher) PublishRequestQueued(ctx context.Context, storyID uuid.UUID, requestID string, requestType string) error {
	p.types = append(p.types, requestType)
	return nil
}

func TestStoriesHandler_StepQueued(t *testing.T) {
	f := newFixture(t)
	q := &recordingQueue{}
	pub := &recordingPublisher{}
	f.handler.WithQueue(q, pub)
	id := f.create(t)

	rr := f.do(http.MethodPost, "/v1/stories/"+id.String()+"/step", `{"steps":3}`)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	var resp QueuedResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "queued", resp.Status)

	rr = f.do(http.MethodPost, "/v1/stories/"+id.String()+"/run", "")
	require.Equal(t, http.StatusAccepted, rr.Code)

	require.Len(t, q.requests, 2)
	assert.Equal(t, resp.RequestID, q.requests[0].RequestID)
	assert.Equal(t, 3, q.requests[0].StepCount())
	assert.Equal(t, queue.RequestTypeRun, q.requests[1].Type)
	assert.Equal(t, []string{"step", "run"}, pub.types)

	st, err := f.storage.LoadStory(context.Background(), id)
	require.NoError(t, err)
	assert.Zero(t, st.Iteration, "queued steps run on the worker")

	rr = f.do(http.MethodPost, "/v1/stories/"+uuid.New().String()+"/step", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	q.err = errors.New("redis down")
	rr = f.do(http.MethodPost, "/v1/stories/"+id.String()+"/step", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
