package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwebster45206/plotweaver/pkg/story"
	"golang.org/x/sync/errgroup"
)

// Run steps st until it ends. The context is checked between steps, never
// in the middle of one.
func (e *Engine) Run(ctx context.Context, st *story.Story) ([]StepResult, error) {
	var results []StepResult
	for !st.Ended() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := e.Step(st)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// StoryFunc builds the starting story of run i.
type StoryFunc func(i int) (*story.Story, error)

// Batch runs n independent stories with up to concurrency at a time. Each
// story gets its own engine, seeded with the policy seed plus its index,
// and shares the read-only repositories in deps. Results are in index
// order; the first error cancels the remaining runs.
func Batch(ctx context.Context, n, concurrency int, deps Deps, p Policy, newStory StoryFunc) ([]*story.Story, error) {
	if n < 0 {
		return nil, errors.New("batch size must not be negative")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	stories := make([]*story.Story, n)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range n {
		g.Go(func() error {
			pi := p
			pi.Seed = p.Seed + uint64(i)
			eng, err := New(deps, pi)
			if err != nil {
				return err
			}
			st, err := newStory(i)
			if err != nil {
				return fmt.Errorf("story %d: %w", i, err)
			}
			if _, err := eng.Run(ctx, st); err != nil {
				return fmt.Errorf("story %d: %w", i, err)
			}
			stories[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stories, nil
}
