package engine

import (
	"fmt"
	"os"

	"github.com/jwebster45206/plotweaver/pkg/story"
	"gopkg.in/yaml.v3"
)

// Policy is the immutable configuration threaded through engagement,
// reflection and the filters.
type Policy struct {
	// MaxEngagementActions caps the actions committed by one engagement.
	MaxEngagementActions int `yaml:"max_engagement_actions" json:"max_engagement_actions"`
	// MaxStoryActions ends the story once reached.
	MaxStoryActions int `yaml:"max_story_actions" json:"max_story_actions"`
	// MaxImpasses is the number of consecutive impasses tolerated.
	MaxImpasses int `yaml:"max_impasses" json:"max_impasses"`
	// MaxReflectionActions caps the repairs of one reflection.
	MaxReflectionActions int `yaml:"max_reflection_actions" json:"max_reflection_actions"`
	// MinSimilarity is the lowest atom similarity considered.
	MinSimilarity int `yaml:"min_similarity" json:"min_similarity"`

	RepresentativeContexts bool    `yaml:"representative_contexts" json:"representative_contexts"`
	RepresentativeRatio    float64 `yaml:"representative_ratio" json:"representative_ratio"`

	// DeadLookback keeps characters engaged for this many years after death.
	DeadLookback int `yaml:"dead_lookback" json:"dead_lookback"`
	// TendencyWindow is the number of recent tension readings reflection inspects.
	TendencyWindow int `yaml:"tendency_window" json:"tendency_window"`
	// TensionPeak is the tension reading that marks the climax.
	TensionPeak int `yaml:"tension_peak" json:"tension_peak"`

	// FullInstantiation lets unbound roles take any living character
	// instead of only those known to the context owner.
	FullInstantiation bool `yaml:"full_instantiation" json:"full_instantiation"`

	StoryFlow      story.FlowMode `yaml:"story_flow" json:"story_flow"`
	AllowIllogical bool           `yaml:"allow_illogical" json:"allow_illogical"`

	// MaxAttempts bounds the candidates tried for one action.
	MaxAttempts int    `yaml:"max_attempts" json:"max_attempts"`
	Seed        uint64 `yaml:"seed" json:"seed"`
}

// DefaultPolicy returns the defaults used by the composition roots.
func DefaultPolicy() Policy {
	return Policy{
		MaxEngagementActions:   3,
		MaxStoryActions:        25,
		MaxImpasses:            3,
		MaxReflectionActions:   2,
		MinSimilarity:          50,
		RepresentativeContexts: true,
		RepresentativeRatio:    0.5,
		DeadLookback:           2,
		TendencyWindow:         3,
		TensionPeak:            4,
		StoryFlow:              story.FlowReject,
		MaxAttempts:            10,
		Seed:                   1,
	}
}

// Validate rejects out-of-range values.
func (p Policy) Validate() error {
	switch {
	case p.MaxEngagementActions < 1:
		return fmt.Errorf("max_engagement_actions must be at least 1")
	case p.MaxStoryActions < 1:
		return fmt.Errorf("max_story_actions must be at least 1")
	case p.MaxImpasses < 0:
		return fmt.Errorf("max_impasses must not be negative")
	case p.MaxReflectionActions < 0:
		return fmt.Errorf("max_reflection_actions must not be negative")
	case p.MinSimilarity < 0 || p.MinSimilarity > 100:
		return fmt.Errorf("min_similarity must be in [0,100]")
	case p.RepresentativeRatio < 0 || p.RepresentativeRatio > 1:
		return fmt.Errorf("representative_ratio must be in [0,1]")
	case p.DeadLookback < 0:
		return fmt.Errorf("dead_lookback must not be negative")
	case p.TendencyWindow < 1:
		return fmt.Errorf("tendency_window must be at least 1")
	case p.TensionPeak < 1:
		return fmt.Errorf("tension_peak must be at least 1")
	case p.MaxAttempts < 1:
		return fmt.Errorf("max_attempts must be at least 1")
	}
	switch p.StoryFlow {
	case story.FlowReject, story.FlowError, story.FlowOff:
	default:
		return fmt.Errorf("unknown story_flow %q", p.StoryFlow)
	}
	return nil
}

// LoadPolicy reads a YAML policy file. Keys missing from the file keep
// their default values.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid policy %s: %w", path, err)
	}
	return p, nil
}
