package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jwebster45206/plotweaver/internal/services/events"
	"github.com/jwebster45206/plotweaver/internal/services/queue"
	pqueue "github.com/jwebster45206/plotweaver/pkg/queue"
	"github.com/spf13/cobra"
)

func newEnqueueCmd(a *app) *cobra.Command {
	var (
		steps int
		run   bool
	)
	cmd := &cobra.Command{
		Use:   "enqueue [story-id]",
		Short: "Queue a step request for the workers",
		Long: `Pushes a step request for a stored story onto the Redis step queue
(REDIS_URL) and announces it on the story's event channel.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid story id: %w", err)
			}
			if steps < 1 {
				return fmt.Errorf("steps must be at least 1")
			}

			client, err := queue.NewClient(ctx, a.cfg.RedisURL, a.log)
			if err != nil {
				return err
			}
			defer client.Close()

			req := pqueue.NewStepRequest(id, steps)
			if run {
				req = pqueue.NewRunRequest(id)
			}
			q := queue.NewStepQueue(client)
			if err := q.EnqueueRequest(ctx, req); err != nil {
				return err
			}
			if err := events.NewBroadcaster(client.GetRedisClient(), a.log).
				PublishRequestQueued(ctx, id, req.RequestID, string(req.Type)); err != nil {
				a.log.Warn("Failed to publish queued event", "error", err)
			}

			depth, err := q.RequestQueueDepth(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s request %s (queue depth %d)\n", req.Type, req.RequestID, depth)
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "steps to advance")
	cmd.Flags().BoolVar(&run, "run", false, "advance until the story ends")
	return cmd
}
