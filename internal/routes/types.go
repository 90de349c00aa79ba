package routes

import (
	"context"
	"errors"
)

var (
	// ErrCorrupt is returned by Load when the stored document cannot be parsed.
	// Startup must abort; the document is left untouched.
	ErrCorrupt = errors.New("routes: corrupt route document")

	// ErrClosed is returned by GetOrCreate after Close.
	ErrClosed = errors.New("routes: table closed")
)

// Entry maps one user to their forum topic.
type Entry struct {
	UserID  int64 `json:"user_id"`
	TopicID int   `json:"topic_id"`
}

// Store persists the full table. Entries are in table order.
type Store interface {
	// Load returns the stored entries. A store that has never been written
	// returns no entries and no error.
	Load(ctx context.Context) ([]Entry, error)

	// Save replaces the stored entries.
	Save(ctx context.Context, entries []Entry) error
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CreateFunc creates a topic on the platform and returns its id.
type CreateFunc func(ctx context.Context, displayName string) (int, error)

// Stats holds table counters.
type Stats struct {
	Entries         int   `json:"entries"`
	Created         int64 `json:"created"`
	CreateFailures  int64 `json:"create_failures"`
	PersistFailures int64 `json:"persist_failures"`
	DuplicateTopics int   `json:"duplicate_topics"`
}
