package worker

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/plotweaver/internal/logger"
	"github.com/jwebster45206/plotweaver/pkg/engine"
	"github.com/jwebster45206/plotweaver/pkg/story"
	"github.com/jwebster45206/plotweaver/pkg/storage"
)

// ErrStoryNotFound is returned when the requested story has no snapshot.
var ErrStoryNotFound = errors.New("story not found")

// Outcome is the result of advancing a story.
type Outcome struct {
	Story   *story.Story        `json:"story"`
	Results []engine.StepResult `json:"results"`
}

// StoryProcessor advances stored stories. It is used by both the HTTP
// handler (synchronously) and the worker (asynchronously).
type StoryProcessor struct {
	storage storage.Storage
	archive storage.Archive
	deps    engine.Deps
	policy  engine.Policy
	logger  *slog.Logger
}

// NewStoryProcessor creates a processor. archive may be nil.
func NewStoryProcessor(s storage.Storage, archive storage.Archive, deps engine.Deps, policy engine.Policy, logger *slog.Logger) *StoryProcessor {
	return &StoryProcessor{
		storage: s,
		archive: archive,
		deps:    deps,
		policy:  policy,
		logger:  logger,
	}
}

// Policy returns the engine policy stories are advanced with.
func (p *StoryProcessor) Policy() engine.Policy {
	return p.policy
}

// Create starts a story from an opening and stores it.
func (p *StoryProcessor) Create(ctx context.Context, o *story.Opening) (*story.Story, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	st := o.Start()
	if err := p.storage.SaveStory(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to save story: %w", err)
	}
	logger.WithStoryID(p.logger, st.ID).Info("Story created", "opening", o.Name, "characters", len(st.Cast))
	return st, nil
}

// Advance loads the story, runs up to steps engagement/reflection steps
// (every remaining step when steps is zero), saves it, and archives it once
// it has ended. The context is checked between steps.
func (p *StoryProcessor) Advance(ctx context.Context, id uuid.UUID, steps int) (*Outcome, error) {
	st, err := p.storage.LoadStory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load story: %w", err)
	}
	if st == nil {
		return nil, fmt.Errorf("%w: %s", ErrStoryNotFound, id)
	}
	if st.Ended() {
		return &Outcome{Story: st}, story.ErrStoryEnded
	}

	log := logger.WithStoryID(p.logger, id)
	eng, err := engine.New(p.deps, p.storyPolicy(st))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out := &Outcome{Story: st}
	for steps <= 0 || len(out.Results) < steps {
		if st.Ended() {
			break
		}
		if err := ctx.Err(); err != nil {
			break
		}
		res, err := eng.Step(st)
		out.Results = append(out.Results, res)
		if err != nil {
			log.Error("Step failed", "error", err, "iteration", res.Iteration)
			return out, fmt.Errorf("step %d: %w", res.Iteration, err)
		}
	}

	// steps already taken are kept even if ctx was cancelled between them
	saveCtx := context.WithoutCancel(ctx)
	if err := p.storage.SaveStory(saveCtx, st); err != nil {
		return out, fmt.Errorf("failed to save story: %w", err)
	}
	log.Info("Story advanced",
		"steps", len(out.Results),
		"actions", st.Year(),
		"ended", st.Ended(),
		"duration_ms", time.Since(start).Milliseconds())

	if st.Ended() && p.archive != nil {
		if err := p.archive.ArchiveStory(saveCtx, st); err != nil {
			log.Error("Failed to archive story", "error", err)
		}
	}
	return out, ctx.Err()
}

// storyPolicy seeds the engine from the story id and iteration so a story
// advanced in separate requests stays reproducible.
func (p *StoryProcessor) storyPolicy(st *story.Story) engine.Policy {
	pol := p.policy
	pol.Seed = p.policy.Seed ^ binary.BigEndian.Uint64(st.ID[:8]) ^ uint64(st.Iteration)
	return pol
}

// Delete removes a story snapshot.
func (p *StoryProcessor) Delete(ctx context.Context, id uuid.UUID) error {
	return p.storage.DeleteStory(ctx, id)
}

// Load returns a stored story, or nil if it does not exist.
func (p *StoryProcessor) Load(ctx context.Context, id uuid.UUID) (*story.Story, error) {
	return p.storage.LoadStory(ctx, id)
}
