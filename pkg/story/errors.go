package story

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/plotweaver/pkg/character"
)

var (
	// ErrFilterRejected is wrapped by every *FilterRejection.
	ErrFilterRejected = errors.New("action rejected by filter")
	// ErrInvalidBinding means a character does not fit its role in an action.
	ErrInvalidBinding = errors.New("invalid character binding")
	// ErrDeadBinding means a dead character was bound to a role that needs a living one.
	ErrDeadBinding = errors.New("dead character binding")
	// ErrStoryEnded is returned by any attempt to grow a finished story.
	ErrStoryEnded = errors.New("story has ended")
	// ErrConfiguration marks missing or malformed loaded data.
	ErrConfiguration = errors.New("configuration fault")
	// ErrStoryFlow is returned instead of a rejection when the story flow
	// filter runs in error mode.
	ErrStoryFlow = errors.New("action adds no new information")
)

// FilterRejection identifies the filter, action and condition that stopped
// a candidate from being committed.
type FilterRejection struct {
	Filter    string
	Action    string
	Condition string
	Reason    string
}

func (e *FilterRejection) Error() string {
	if e.Condition == "" {
		return fmt.Sprintf("%s rejected %q: %s", e.Filter, e.Action, e.Reason)
	}
	return fmt.Sprintf("%s rejected %q on %s: %s", e.Filter, e.Action, e.Condition, e.Reason)
}

func (e *FilterRejection) Unwrap() error { return ErrFilterRejected }

// BindingError reports a character that cannot take a role in an action.
// Err is ErrInvalidBinding or ErrDeadBinding.
type BindingError struct {
	Action    string
	Role      string
	Character character.Character
	Err       error
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("%s as %s of %q: %v", e.Character, e.Role, e.Action, e.Err)
}

func (e *BindingError) Unwrap() error { return e.Err }

// ConfigurationError wraps a lookup that found no entry in the loaded data.
type ConfigurationError struct {
	What string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("configuration fault: %s", e.What)
	}
	return fmt.Sprintf("configuration fault: %s: %v", e.What, e.Err)
}

func (e *ConfigurationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfiguration}
	}
	return []error{ErrConfiguration, e.Err}
}

// Recoverable reports whether an engagement attempt may absorb err and
// retry with another candidate.
func Recoverable(err error) bool {
	return errors.Is(err, ErrFilterRejected) ||
		errors.Is(err, ErrInvalidBinding) ||
		errors.Is(err, ErrDeadBinding)
}
