package routes

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Table is the in-memory routing table. Lookups take a read lock; inserts
// take the write lock for the insert and the synchronous save.
type Table struct {
	store  Store
	logger *slog.Logger

	// Collapses concurrent first contacts of one user into one creation.
	creating singleflight.Group

	mu      sync.RWMutex
	byUser  map[int64]int
	byTopic map[int]int64 // first user in table order per topic
	order   []Entry
	dupes   int
	closed  bool

	created         atomic.Int64
	createFailures  atomic.Int64
	persistFailures atomic.Int64
}

// NewTable creates an empty table backed by store.
func NewTable(store Store, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}

	return &Table{
		store:   store,
		logger:  logger,
		byUser:  make(map[int64]int),
		byTopic: make(map[int]int64),
	}
}

// Load replaces the table contents with the stored entries.
// A missing document yields an empty table.
func (t *Table) Load(ctx context.Context) error {
	entries, err := t.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load routes: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.byUser = make(map[int64]int, len(entries))
	t.order = make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, ok := t.byUser[e.UserID]; ok {
			// Repeated key: the later value wins, position is kept.
			for i := range t.order {
				if t.order[i].UserID == e.UserID {
					t.order[i].TopicID = e.TopicID
				}
			}
		} else {
			t.order = append(t.order, e)
		}
		t.byUser[e.UserID] = e.TopicID
	}
	t.rebuildTopicIndexLocked()

	t.logger.Info("routes loaded",
		"entries", len(t.order),
		"duplicate_topics", t.dupes,
	)

	return nil
}

// rebuildTopicIndexLocked rebuilds byTopic from order (caller must hold write lock).
func (t *Table) rebuildTopicIndexLocked() {
	t.byTopic = make(map[int]int64, len(t.order))
	t.dupes = 0
	for _, e := range t.order {
		if first, ok := t.byTopic[e.TopicID]; ok {
			t.dupes++
			t.logger.Warn("topic mapped to more than one user",
				"topic_id", e.TopicID,
				"user_id", first,
				"ignored_user_id", e.UserID,
			)
			continue
		}
		t.byTopic[e.TopicID] = e.UserID
	}
}

// LookupByUser returns the topic for userID.
func (t *Table) LookupByUser(userID int64) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	topicID, ok := t.byUser[userID]
	return topicID, ok
}

// LookupByTopic returns the user for topicID. If several users share the
// topic, the one earliest in table order is returned.
func (t *Table) LookupByTopic(topicID int) (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	userID, ok := t.byTopic[topicID]
	return userID, ok
}

// GetOrCreate returns the topic for userID, creating and persisting one on
// first contact. Concurrent calls for the same user share one creation.
// If the save fails the entry is dropped and the error returned; the topic
// created on the platform is left behind. A caller whose ctx ends returns
// ctx.Err() while the shared creation runs on for the others.
func (t *Table) GetOrCreate(ctx context.Context, userID int64, displayName string, create CreateFunc) (int, error) {
	if topicID, ok := t.LookupByUser(userID); ok {
		return topicID, nil
	}

	// The flight is detached from any one caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	ch := t.creating.DoChan(strconv.FormatInt(userID, 10), func() (any, error) {
		// Another flight may have finished between the lookup and DoChan.
		if topicID, ok := t.LookupByUser(userID); ok {
			return topicID, nil
		}
		if t.isClosed() {
			return 0, ErrClosed
		}

		topicID, err := create(flightCtx, displayName)
		if err != nil {
			t.createFailures.Add(1)
			return 0, fmt.Errorf("create topic for user %d: %w", userID, err)
		}

		if err := t.insert(flightCtx, Entry{UserID: userID, TopicID: topicID}); err != nil {
			return 0, err
		}

		t.created.Add(1)
		t.logger.Info("route created",
			"user_id", userID,
			"topic_id", topicID,
			"name", displayName,
		)

		return topicID, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		if res.Shared {
			t.logger.Debug("joined in-flight topic creation", "user_id", userID)
		}
		return res.Val.(int), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// insert adds e and saves the table, rolling back on save failure.
func (t *Table) insert(ctx context.Context, e Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}

	t.byUser[e.UserID] = e.TopicID
	t.order = append(t.order, e)
	_, topicTaken := t.byTopic[e.TopicID]
	if !topicTaken {
		t.byTopic[e.TopicID] = e.UserID
	}

	if err := t.store.Save(ctx, t.snapshotLocked()); err != nil {
		delete(t.byUser, e.UserID)
		t.order = t.order[:len(t.order)-1]
		if !topicTaken {
			delete(t.byTopic, e.TopicID)
		}
		t.persistFailures.Add(1)
		return fmt.Errorf("persist route for user %d: %w", e.UserID, err)
	}

	if topicTaken {
		t.dupes++
		t.logger.Warn("topic mapped to more than one user",
			"topic_id", e.TopicID,
			"user_id", t.byTopic[e.TopicID],
			"ignored_user_id", e.UserID,
		)
	}

	return nil
}

// Persist writes the whole table to the store.
func (t *Table) Persist(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Save(ctx, t.snapshotLocked()); err != nil {
		t.persistFailures.Add(1)
		return fmt.Errorf("persist routes: %w", err)
	}
	return nil
}

// Entries returns a copy of the table in table order.
func (t *Table) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.snapshotLocked()
}

func (t *Table) snapshotLocked() []Entry {
	out := make([]Entry, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.order)
}

// Ping checks the store if it supports it.
func (t *Table) Ping(ctx context.Context) error {
	if p, ok := t.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close rejects further creations. Lookups keep working.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
}

func (t *Table) isClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.closed
}

// Stats returns current counters.
func (t *Table) Stats() Stats {
	t.mu.RLock()
	entries, dupes := len(t.order), t.dupes
	t.mu.RUnlock()

	return Stats{
		Entries:         entries,
		Created:         t.created.Load(),
		CreateFailures:  t.createFailures.Load(),
		PersistFailures: t.persistFailures.Load(),
		DuplicateTopics: dupes,
	}
}
