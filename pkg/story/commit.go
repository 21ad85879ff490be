package story

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jwebster45206/plotweaver/pkg/action"
	"github.com/jwebster45206/plotweaver/pkg/analyzer"
	"github.com/jwebster45206/plotweaver/pkg/avatar"
	"github.com/jwebster45206/plotweaver/pkg/character"
	"github.com/jwebster45206/plotweaver/pkg/condition"
	"github.com/jwebster45206/plotweaver/pkg/hierarchy"
)

// Pipeline gates candidates through its filters and applies accepted
// actions to a story, settling derived tensions afterwards.
type Pipeline struct {
	Filters   []Filter
	Analyzers *analyzer.Pipeline
	Hierarchy hierarchy.Repository
}

// NewPipeline returns the standard filter order: story flow, then
// illogical actions.
func NewPipeline(flow FlowMode, allowIllogical bool, h hierarchy.Repository) *Pipeline {
	return &Pipeline{
		Filters: []Filter{
			StoryFlowFilter{Mode: flow},
			IllogicalActionFilter{Allow: allowIllogical},
		},
		Analyzers: analyzer.DefaultPipeline(),
		Hierarchy: h,
	}
}

// Check validates bindings and runs the filters without touching the story.
func (p *Pipeline) Check(s *Story, a action.Instantiated) error {
	if s.Ended() {
		return ErrStoryEnded
	}
	if err := CheckBinding(s, a); err != nil {
		return err
	}
	for _, f := range p.Filters {
		if err := f.Check(s, a); err != nil {
			return err
		}
	}
	return nil
}

// Commit checks a and, when it passes, appends it to the story. Rejections
// are counted in the current iteration's diagnostics.
func (p *Pipeline) Commit(s *Story, a action.Instantiated) error {
	if err := p.Check(s, a); err != nil {
		var rej *FilterRejection
		if errors.As(err, &rej) {
			d := s.Current()
			switch rej.Filter {
			case StoryFlowFilter{}.Name():
				d.IrrelevantActions++
			case IllogicalActionFilter{}.Name():
				d.IllogicalActions++
			}
		}
		return err
	}
	breaks, err := a.BreaksNorm(p.Hierarchy)
	if err != nil {
		return &ConfigurationError{What: fmt.Sprintf("norm of %s", a.Action.Name), Err: err}
	}
	if _, ok := Illogical(s, a); ok {
		s.Current().IllogicalActions++
	}
	if err := p.apply(s, a); err != nil {
		return err
	}
	if breaks {
		s.NormBreaks = append(s.NormBreaks, len(s.Actions)-1)
	}
	s.Current().Committed++
	return nil
}

// CheckBinding verifies that a's characters fit its roles and are alive
// where they must be.
func CheckBinding(s *Story, a action.Instantiated) error {
	name := a.Action.Name
	if !a.Performer.Valid() {
		return &BindingError{Action: name, Role: "performer", Character: a.Performer, Err: ErrInvalidBinding}
	}
	if !s.Alive(a.Performer) && !s.Vampire(a.Performer) {
		return &BindingError{Action: name, Role: "performer", Character: a.Performer, Err: ErrDeadBinding}
	}
	switch a.Action.Characters {
	case 1:
		if a.Receiver != character.None {
			return &BindingError{Action: name, Role: "receiver", Character: a.Receiver, Err: ErrInvalidBinding}
		}
	case 2:
		if !a.Receiver.Valid() || a.Receiver == a.Performer {
			return &BindingError{Action: name, Role: "receiver", Character: a.Receiver, Err: ErrInvalidBinding}
		}
		if !s.Alive(a.Receiver) && !a.Action.AllowDeadReceiver {
			return &BindingError{Action: name, Role: "receiver", Character: a.Receiver, Err: ErrDeadBinding}
		}
	}
	return nil
}

// apply records missing preconditions, spreads postconditions to the
// performer, the receiver and living witnesses, moves characters, settles
// the analyzers and finally appends the action. Effects land before the
// append so a death is dated by the killing action's index.
func (p *Pipeline) apply(s *Story, a action.Instantiated) error {
	pre, err := a.Preconditions()
	if err != nil {
		return &BindingError{Action: a.Action.Name, Role: "precondition", Character: a.Performer, Err: fmt.Errorf("%w: %v", ErrInvalidBinding, err)}
	}
	post, err := a.Postconditions()
	if err != nil {
		return &BindingError{Action: a.Action.Name, Role: "postcondition", Character: a.Performer, Err: fmt.Errorf("%w: %v", ErrInvalidBinding, err)}
	}

	performer := s.Ensure(a.Performer)
	var receiver *avatar.Avatar
	if a.Receiver != character.None {
		receiver = s.Ensure(a.Receiver)
	}
	for _, f := range slices.Concat(pre, post) {
		s.Ensure(f.From)
		if f.To != character.None {
			s.Ensure(f.To)
		}
	}

	for _, f := range pre {
		if !performer.Context.Contains(f) {
			s.Missing = append(s.Missing, MissingCondition{ActionIndex: len(s.Actions), Condition: f})
			s.Current().MissingConditions++
		}
	}

	audience := []*avatar.Avatar{performer}
	if receiver != nil {
		audience = append(audience, receiver)
	}
	for _, av := range s.Avatars() {
		if av != performer && av != receiver && av.Alive && av.CoLocated(performer) {
			audience = append(audience, av)
		}
	}

	tensionsChanged := false
	for _, av := range audience {
		for _, f := range post {
			var changed bool
			if f.Deactivates {
				changed = av.Context.Remove(f)
			} else {
				changed = av.Context.Add(f)
			}
			if changed && f.Kind == condition.Tension {
				tensionsChanged = true
			}
		}
	}

	if to := a.MovesTo(); to != character.Nowhere {
		performer.Position = to
		if receiver != nil {
			receiver.Position = to
		}
		tensionsChanged = true
	}

	if p.Analyzers != nil {
		p.Analyzers.Settle(s, tensionsChanged)
	}

	s.Actions = append(s.Actions, a)
	s.TensionHistory = append(s.TensionHistory, s.Tension())
	s.UpdatedAt = time.Now()
	return nil
}

// Replay rebuilds a story from its seeds with the given actions, skipping
// the filters. Guidelines and counters of the original are kept.
func (p *Pipeline) Replay(orig *Story, actions []action.Instantiated) (*Story, error) {
	s := &Story{
		ID:              orig.ID,
		Cast:            make(map[character.Character]*avatar.Avatar),
		DefaultPosition: orig.DefaultPosition,
		CreatedAt:       orig.CreatedAt,
	}
	for _, c := range orig.seeded() {
		s.plant(c, orig.Seeds[c])
	}
	if p.Analyzers != nil {
		p.Analyzers.Settle(s, true)
	}
	for _, a := range actions {
		if err := CheckBinding(s, a); err != nil {
			return nil, fmt.Errorf("replaying %s: %w", a, err)
		}
		breaks, err := a.BreaksNorm(p.Hierarchy)
		if err != nil {
			return nil, &ConfigurationError{What: fmt.Sprintf("norm of %s", a.Action.Name), Err: err}
		}
		if err := p.apply(s, a); err != nil {
			return nil, err
		}
		if breaks {
			s.NormBreaks = append(s.NormBreaks, len(s.Actions)-1)
		}
	}
	s.Guidelines = orig.Guidelines
	s.Iteration = orig.Iteration
	s.Impasses = orig.Impasses
	s.TotalImpasses = orig.TotalImpasses
	s.Reviewed = orig.Reviewed
	s.Iterations = orig.Diagnostics()
	return s, nil
}

// Insert places a before the action at index at and replays the story in
// place. On error the story is left untouched.
func (p *Pipeline) Insert(s *Story, at int, a action.Instantiated) error {
	if at < 0 || at > len(s.Actions) {
		return fmt.Errorf("insert position %d out of range [0,%d]", at, len(s.Actions))
	}
	actions := slices.Insert(slices.Clone(s.Actions), at, a)
	rebuilt, err := p.Replay(s, actions)
	if err != nil {
		return err
	}
	*s = *rebuilt
	return nil
}
