package story

import (
	"fmt"

	"github.com/jwebster45206/plotweaver/pkg/action"
	"github.com/jwebster45206/plotweaver/pkg/avatar"
	"github.com/jwebster45206/plotweaver/pkg/character"
	"github.com/jwebster45206/plotweaver/pkg/condition"
)

// Filter decides whether a candidate may be appended to a story. Filters
// never mutate the story.
type Filter interface {
	Name() string
	Check(s *Story, a action.Instantiated) error
}

// FlowMode selects what the story flow filter does with an action that
// adds nothing new.
type FlowMode string

const (
	FlowReject FlowMode = "reject"
	FlowError  FlowMode = "error"
	FlowOff    FlowMode = "off"
)

// StoryFlowFilter rejects actions whose every effect already holds for the
// performer and the receiver. Social actions always pass.
type StoryFlowFilter struct {
	Mode FlowMode
}

func (StoryFlowFilter) Name() string { return "story_flow" }

func (f StoryFlowFilter) Check(s *Story, a action.Instantiated) error {
	if f.Mode == FlowOff || a.Action.IsSocial() {
		return nil
	}
	if Novel(s, a) {
		return nil
	}
	if f.Mode == FlowError {
		return fmt.Errorf("%w: %s", ErrStoryFlow, a)
	}
	return &FilterRejection{
		Filter: f.Name(),
		Action: a.String(),
		Reason: "every postcondition already holds",
	}
}

// Novel reports whether committing a would change anything the performer
// or the receiver knows, or move them.
func Novel(s *Story, a action.Instantiated) bool {
	if to := a.MovesTo(); to != character.Nowhere {
		if av, ok := s.Avatar(a.Performer); !ok || av.Position != to {
			return true
		}
	}
	posts, err := a.Postconditions()
	if err != nil {
		return true
	}
	for _, p := range posts {
		for _, ctx := range involvedContexts(s, a) {
			// A deactivation is news only while the fact still holds.
			if ctx.Contains(p) == p.Deactivates {
				return true
			}
		}
	}
	return false
}

// IllogicalActionFilter rejects an action asserting a strong emotion from
// one character to another that reverses the strongly negative emotion the
// performer already holds in the mirrored direction. Allow lets such
// actions through; replays of authored stories need it.
type IllogicalActionFilter struct {
	Allow bool
}

func (IllogicalActionFilter) Name() string { return "illogical_action" }

func (f IllogicalActionFilter) Check(s *Story, a action.Instantiated) error {
	if f.Allow {
		return nil
	}
	cond, ok := Illogical(s, a)
	if !ok {
		return nil
	}
	return &FilterRejection{
		Filter:    f.Name(),
		Action:    a.String(),
		Condition: cond.String(),
		Reason:    "reverses a strongly negative emotion",
	}
}

// Illogical returns the first postcondition of a that reverses a strongly
// negative emotion held by the performer.
func Illogical(s *Story, a action.Instantiated) (condition.Instantiated, bool) {
	posts, err := a.Postconditions()
	if err != nil {
		return condition.Instantiated{}, false
	}
	ctx := s.Context(a.Performer)
	for _, p := range posts {
		if p.Kind != condition.Emotion || p.Deactivates || p.Intensity < 2 {
			continue
		}
		for _, e := range ctx.Emotions() {
			if e.From == p.To && e.To == p.From && e.Intensity <= -2 {
				return p, true
			}
		}
	}
	return condition.Instantiated{}, false
}

func involvedContexts(s *Story, a action.Instantiated) []*avatar.Context {
	out := []*avatar.Context{s.Context(a.Performer)}
	if a.Receiver != character.None {
		out = append(out, s.Context(a.Receiver))
	}
	return out
}
