package router

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rickgao/topicrelay/internal/model"
	"github.com/rickgao/topicrelay/internal/telegram"
)

// Router moves updates from the poller into per-shard buffers.
type Router struct {
	cfg    Config
	logger *slog.Logger

	input  <-chan telegram.Update
	shards []*GrowableBuffer[Event]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	received     atomic.Int64
	routed       atomic.Int64
	noMessage    atomic.Int64
	edits        atomic.Int64
	commands     atomic.Int64
	foreignChats atomic.Int64
}

// New creates a router reading from input.
func New(cfg Config, input <-chan telegram.Update, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Shards < 1 {
		cfg.Shards = 1
	}

	shards := make([]*GrowableBuffer[Event], cfg.Shards)
	for i := range shards {
		shards[i] = NewGrowableBuffer[Event](cfg.BufferSize)
	}

	return &Router{
		cfg:    cfg,
		logger: logger,
		input:  input,
		shards: shards,
	}
}

// Start begins routing.
func (r *Router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	r.logger.Info("update router started",
		"shards", len(r.shards),
		"admin_group_id", r.cfg.AdminGroupID,
		"forward_commands", r.cfg.ForwardCommands,
	)

	return nil
}

// Stop ends routing and closes the shard buffers. Events already queued
// stay receivable until drained.
func (r *Router) Stop(ctx context.Context) error {
	r.logger.Info("stopping update router")

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("update router stopped")
	case <-ctx.Done():
		r.logger.Warn("update router stop timed out")
	}

	for _, s := range r.shards {
		s.Close()
	}

	return nil
}

// Shards returns the output buffers, one per relay worker.
func (r *Router) Shards() []*GrowableBuffer[Event] {
	return r.shards
}

// Stats returns current statistics.
func (r *Router) Stats() Stats {
	shards := make([]BufferStats, len(r.shards))
	for i, s := range r.shards {
		shards[i] = s.Stats()
	}

	return Stats{
		Received:     r.received.Load(),
		Routed:       r.routed.Load(),
		NoMessage:    r.noMessage.Load(),
		Edits:        r.edits.Load(),
		Commands:     r.commands.Load(),
		ForeignChats: r.foreignChats.Load(),
		Shards:       shards,
	}
}

func (r *Router) routeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case u, ok := <-r.input:
			if !ok {
				r.logger.Info("update channel closed")
				return
			}
			r.Route(u)
		}
	}
}

// Route classifies one update and queues it. It reports whether the update
// was queued.
func (r *Router) Route(u telegram.Update) bool {
	r.received.Add(1)

	in, ok := telegram.ToInbound(u)
	if !ok {
		if u.EditedMessage != nil {
			r.edits.Add(1)
			r.logger.Debug("skipping edited message", "update_id", u.UpdateID)
		} else {
			r.noMessage.Add(1)
			r.logger.Debug("skipping update without message", "update_id", u.UpdateID)
		}
		return false
	}
	in.TraceID = uuid.New()

	ev, key, ok := r.classify(in)
	if !ok {
		return false
	}

	if !r.shardFor(key).Send(ev) {
		return false
	}
	r.routed.Add(1)
	return true
}

func (r *Router) classify(in model.Inbound) (Event, int64, bool) {
	switch {
	case in.Chat.IsPrivate():
		if in.IsCommand && !r.cfg.ForwardCommands {
			r.commands.Add(1)
			r.logger.Debug("skipping command",
				"update_id", in.UpdateID,
				"user_id", in.SenderID,
			)
			return Event{}, 0, false
		}
		return Event{Direction: FromUser, Inbound: in}, in.SenderID, true

	case in.Chat.ID == r.cfg.AdminGroupID:
		var key int64
		if in.ReplyTo != nil {
			key = int64(in.ReplyTo.ThreadID)
		}
		return Event{Direction: FromAdmin, Inbound: in}, key, true

	default:
		r.foreignChats.Add(1)
		r.logger.Debug("skipping message from foreign chat",
			"update_id", in.UpdateID,
			"chat_id", in.Chat.ID,
			"chat_type", in.Chat.Kind,
		)
		return Event{}, 0, false
	}
}

func (r *Router) shardFor(key int64) *GrowableBuffer[Event] {
	return r.shards[uint64(key)%uint64(len(r.shards))]
}
