package runner

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/plotweaver/internal/handlers"
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

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testProcessor(t *testing.T) (*worker.StoryProcessor, *storage.MockStorage) {
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

	s := storage.NewMockStorage()
	s.AddOpening("rivals.json", &story.Opening{
		Name:            "rivals",
		DefaultPosition: character.City,
		Seeds: map[character.Character]story.Seed{
			character.Enemy: {
				Position: character.TexcocoLake,
				Facts: []condition.Instantiated{{
					Condition: condition.NewEmotion(condition.Brotherly, -2, condition.SlotA, condition.SlotB),
					From:      character.Enemy,
					To:        character.Warrior,
				}},
			},
			character.Warrior: {Position: character.TexcocoLake},
		},
	})
	deps := engine.Deps{Actions: catalog, Atoms: index, Logger: quiet}
	return worker.NewStoryProcessor(s, storage.NewMockArchive(), deps, engine.DefaultPolicy(), quiet), s
}

// backgroundQueue applies queued requests on its own goroutine, the way a
// worker would.
type backgroundQueue struct {
	processor *worker.StoryProcessor
}

func (q *backgroundQueue) EnqueueRequest(_ context.Context, req *queue.Request) error {
	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = q.processor.Advance(context.Background(), req.StoryID, req.StepCount())
	}()
	return nil
}

func newServer(t *testing.T, queued bool) *Runner {
	t.Helper()
	p, s := testProcessor(t)
	h := handlers.NewStoriesHandler(p, s, quiet)
	if queued {
		h = h.WithQueue(&backgroundQueue{processor: p}, nil)
	}
	mux := http.NewServeMux()
	mux.Handle("/v1/stories", h)
	mux.Handle("/v1/stories/", h)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	r := NewRunner(srv.URL + "/")
	r.Client = srv.Client()
	r.Timeout = 5 * time.Second
	return r
}

func ptr[T any](v T) *T { return &v }

func rivalsSuite() TestSuite {
	return TestSuite{
		Name:    "rivals",
		Opening: "rivals.json",
		Steps: []TestStep{
			{
				Name: "first step",
				Expectations: Expectations{
					Iteration:          ptr(1),
					MinActions:         ptr(1),
					TranscriptContains: []string{"enemy attack warrior"},
				},
			},
			{
				Name: "to the end",
				Run:  true,
				Expectations: Expectations{
					Ended:              ptr(true),
					MinCommitted:       ptr(1),
					TranscriptRegex:    `The end\.`,
					TranscriptContains: []string{"attack"},
				},
			},
		},
	}
}

func TestRunner_RunSuite(t *testing.T) {
	r := newServer(t, false)

	result, err := r.RunSuite(context.Background(), rivalsSuite())
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	for _, step := range result.Results {
		assert.True(t, step.Success, step.StepName)
		assert.Empty(t, step.RequestID)
	}
	assert.NotEqual(t, uuid.Nil, result.StoryID)
}

func TestRunner_RunSuiteQueued(t *testing.T) {
	PollInterval = 10 * time.Millisecond
	r := newServer(t, true)

	result, err := r.RunSuite(context.Background(), rivalsSuite())
	require.NoError(t, err)
	for _, step := range result.Results {
		assert.True(t, step.Success, step.StepName)
		assert.NotEmpty(t, step.RequestID)
	}
}

func TestRunner_FailedExpectation(t *testing.T) {
	r := newServer(t, false)
	r.ErrorHandlingMode = ErrorHandlingExit

	suite := TestSuite{
		Name:    "wrong",
		Opening: "rivals.json",
		Steps: []TestStep{
			{Name: "already over", Expectations: Expectations{Ended: ptr(true)}},
			{Name: "never reached"},
		},
	}
	result, err := r.RunSuite(context.Background(), suite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected ended to be true")
	assert.Len(t, result.Results, 1)

	_, err = r.RunSuite(context.Background(), TestSuite{Name: "missing", Opening: "nowhere.json"})
	assert.ErrorContains(t, err, "failed to create story")
}

func TestLoadTestSuiteWithExpansion(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("one.json", `{"name": "one", "opening": "rivals.json", "steps": [{"steps": 2}]}`)
	write("two.json", `{"name": "two", "opening": "rivals.json", "steps": [{"run": true}]}`)
	write("all.json", `{"name": "all", "cases": ["one.json", "two.json"]}`)

	jobs, err := LoadTestSuiteWithExpansion(filepath.Join(dir, "all.json"), dir)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "one", jobs[0].Name)
	assert.Equal(t, 2, jobs[0].Suite.Steps[0].Count())
	assert.Equal(t, 0, jobs[1].Suite.Steps[0].Count())

	write("broken.json", `{"name": "broken", "cases": ["missing.json"]}`)
	_, err = LoadTestSuiteWithExpansion(filepath.Join(dir, "broken.json"), dir)
	assert.Error(t, err)
}
