// Package engine grows stories by alternating engagement, which retrieves
// analogous atoms and commits the actions that followed them, with
// reflection, which repairs the story and decides when it is over.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/jwebster45206/plotweaver/pkg/action"
	"github.com/jwebster45206/plotweaver/pkg/atom"
	"github.com/jwebster45206/plotweaver/pkg/hierarchy"
	"github.com/jwebster45206/plotweaver/pkg/story"
)

// Deps are the read-only repositories an engine consumes. They may be
// shared by any number of engines.
type Deps struct {
	Actions   action.Repository
	Atoms     atom.Repository
	Hierarchy hierarchy.Repository
	Logger    *slog.Logger
}

// Engine drives stories one step at a time. An Engine holds its own random
// source and is not safe for concurrent use; stories are independent.
type Engine struct {
	actions   action.Repository
	atoms     atom.Repository
	hierarchy hierarchy.Repository
	policy    Policy
	pipeline  *story.Pipeline
	rng       *rand.Rand
	log       *slog.Logger
}

// New validates the policy and wires an engine.
func New(deps Deps, p Policy) (*Engine, error) {
	if deps.Actions == nil {
		return nil, errors.New("action repository is required")
	}
	if deps.Atoms == nil {
		return nil, errors.New("atom repository is required")
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		actions:   deps.Actions,
		atoms:     deps.Atoms,
		hierarchy: deps.Hierarchy,
		policy:    p,
		pipeline:  story.NewPipeline(p.StoryFlow, p.AllowIllogical, deps.Hierarchy),
		rng:       rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15)),
		log:       log,
	}, nil
}

// Policy returns the policy the engine was built with.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Pipeline returns the filter and commit pipeline used by the engine.
func (e *Engine) Pipeline() *story.Pipeline {
	return e.pipeline
}

// StepResult summarizes one engagement/reflection iteration.
type StepResult struct {
	Iteration int  `json:"iteration"`
	Committed int  `json:"committed"`
	Impasse   bool `json:"impasse"`
	Repaired  int  `json:"repaired"`
	Ended     bool `json:"ended"`
}

// Step runs one engagement followed by one reflection.
func (e *Engine) Step(st *story.Story) (StepResult, error) {
	if st.Ended() {
		return StepResult{Iteration: st.Iteration, Ended: true}, story.ErrStoryEnded
	}
	res := StepResult{Iteration: st.BeginIteration()}

	committed, err := e.Engage(st)
	res.Committed = committed
	res.Impasse = committed == 0
	if err != nil {
		return res, err
	}

	repaired, err := e.Reflect(st)
	res.Repaired = repaired
	res.Ended = st.Ended()
	if err != nil {
		return res, err
	}
	return res, nil
}
