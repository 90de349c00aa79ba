package poller

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/topicrelay/internal/telegram"
)

// UpdateSource fetches updates. Implemented by *telegram.Client.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]telegram.Update, error)
}

// Config holds poller configuration.
type Config struct {
	Timeout    time.Duration // Long-poll timeout (default: 30s)
	BaseWait   time.Duration // First retry delay (default: 1s)
	MaxWait    time.Duration // Retry delay cap (default: 60s)
	BufferSize int           // Output channel size (default: 100)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:    30 * time.Second,
		BaseWait:   time.Second,
		MaxWait:    60 * time.Second,
		BufferSize: 100,
	}
}

// Stats contains runtime statistics.
type Stats struct {
	Polls   int64
	Updates int64
	Errors  int64
	Offset  int
}

// Poller feeds updates from the Bot API into a channel.
type Poller struct {
	cfg    Config
	source UpdateSource
	logger *slog.Logger

	out chan telegram.Update

	offset  atomic.Int64
	polls   atomic.Int64
	updates atomic.Int64
	errors  atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, source UpdateSource, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}
	if cfg.BaseWait <= 0 {
		cfg.BaseWait = time.Second
	}
	if cfg.MaxWait < cfg.BaseWait {
		cfg.MaxWait = cfg.BaseWait
	}
	return &Poller{
		cfg:    cfg,
		source: source,
		logger: logger,
		out:    make(chan telegram.Update, cfg.BufferSize),
	}
}

// Updates returns the output channel. It is closed after Stop.
func (p *Poller) Updates() <-chan telegram.Update {
	return p.out
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("update poller started",
		"timeout", p.cfg.Timeout,
		"allowed_updates", telegram.AllowedUpdates,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("update poller stopped", "offset", p.offset.Load())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current statistics.
func (p *Poller) Stats() Stats {
	return Stats{
		Polls:   p.polls.Load(),
		Updates: p.updates.Load(),
		Errors:  p.errors.Load(),
		Offset:  int(p.offset.Load()),
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()
	defer close(p.out)

	wait := p.cfg.BaseWait

	for {
		if p.ctx.Err() != nil {
			return
		}

		updates, err := p.source.GetUpdates(p.ctx, int(p.offset.Load()), p.cfg.Timeout)
		p.polls.Add(1)

		if err != nil {
			if p.ctx.Err() != nil {
				return
			}
			p.errors.Add(1)

			delay := p.retryDelay(wait, err)
			if telegram.IsRetryable(err) {
				p.logger.Warn("getUpdates failed", "error", err, "retry_in", delay)
			} else {
				p.logger.Error("getUpdates rejected", "error", err, "retry_in", delay)
			}

			select {
			case <-p.ctx.Done():
				return
			case <-time.After(delay):
			}

			wait *= 2
			if wait > p.cfg.MaxWait {
				wait = p.cfg.MaxWait
			}
			continue
		}

		wait = p.cfg.BaseWait

		for _, u := range updates {
			if next := int64(u.UpdateID) + 1; next > p.offset.Load() {
				p.offset.Store(next)
			}

			select {
			case p.out <- u:
				p.updates.Add(1)
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// retryDelay returns the wait before the next attempt: wait * (0.5 to 1.5),
// at least the server's retry_after. Rejections that are not retryable
// (revoked token, a second poller on the same token) wait the maximum.
func (p *Poller) retryDelay(wait time.Duration, err error) time.Duration {
	if !telegram.IsRetryable(err) {
		wait = p.cfg.MaxWait
	}
	delay := wait/2 + time.Duration(rand.Int64N(int64(wait)))
	if ra := telegram.RetryAfter(err); ra > delay {
		delay = ra
	}
	return delay
}
