package relay

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/topicrelay/internal/router"
)

// Handle dispatches one routed event by direction.
func (r *Relay) Handle(ctx context.Context, ev router.Event) error {
	switch ev.Direction {
	case router.FromUser:
		return r.OnUserMessage(ctx, ev.Inbound)
	case router.FromAdmin:
		return r.OnAdminReply(ctx, ev.Inbound)
	default:
		return fmt.Errorf("relay: unknown direction %d", ev.Direction)
	}
}

// Start runs one worker per shard. Workers exit once their shard is closed
// and drained, so the router must be stopped before Stop can return.
func (r *Relay) Start(ctx context.Context, shards []*router.GrowableBuffer[router.Event]) error {
	ctx, r.cancel = context.WithCancel(ctx)
	r.shards = shards

	g, gctx := errgroup.WithContext(ctx)
	for i, shard := range shards {
		g.Go(func() error {
			r.work(gctx, i, shard)
			return nil
		})
	}

	r.done = make(chan struct{})
	go func() {
		_ = g.Wait()
		close(r.done)
	}()

	r.logger.Info("relay started",
		"workers", len(shards),
		"admin_group_id", r.cfg.AdminGroupID,
	)
	return nil
}

// Stop waits for the workers to drain their shards. If ctx expires first,
// in-flight platform calls are canceled and the remaining events dropped.
func (r *Relay) Stop(ctx context.Context) error {
	r.logger.Info("stopping relay")

	if r.done == nil {
		return nil
	}

	select {
	case <-r.done:
		r.cancel()
		r.logger.Info("relay stopped")
		return nil
	case <-ctx.Done():
		dropped := r.drop()
		r.cancel()
		r.logger.Warn("relay stop timed out, dropping queued events",
			"dropped", dropped,
		)
		return ctx.Err()
	}
}

// drop discards whatever is still queued on the shards.
func (r *Relay) drop() int64 {
	var n int64
	for _, shard := range r.shards {
		for {
			if _, ok := shard.TryReceive(); !ok {
				break
			}
			n++
		}
	}
	r.dropped.Add(n)
	return n
}

func (r *Relay) work(ctx context.Context, id int, shard *router.GrowableBuffer[router.Event]) {
	for {
		ev, ok := shard.Receive()
		if !ok {
			return
		}
		if ctx.Err() != nil {
			return
		}

		if err := r.Handle(ctx, ev); err != nil {
			r.logger.Error("relay failed",
				"worker", id,
				"direction", ev.Direction,
				"trace_id", ev.Inbound.TraceID,
				"update_id", ev.Inbound.UpdateID,
				"error", err,
			)
		}
	}
}
