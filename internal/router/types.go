package router

import (
	"github.com/rickgao/topicrelay/internal/model"
)

// Config holds configuration for the router.
type Config struct {
	AdminGroupID    int64
	Shards          int  // Default: 4
	BufferSize      int  // Initial per-shard capacity. Default: 256
	ForwardCommands bool // Forward private messages that start with a bot command
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Shards:     4,
		BufferSize: 256,
	}
}

// Direction is the way an event travels through the relay.
type Direction int

const (
	// FromUser is a private message to be forwarded into the user's topic.
	FromUser Direction = iota + 1
	// FromAdmin is an admin group message to be sent back to a user.
	FromAdmin
)

func (d Direction) String() string {
	switch d {
	case FromUser:
		return "user"
	case FromAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Event is one classified inbound message.
type Event struct {
	Direction Direction
	Inbound   model.Inbound
}

// Stats contains runtime statistics.
type Stats struct {
	Received     int64         `json:"received"`
	Routed       int64         `json:"routed"`
	NoMessage    int64         `json:"no_message"`
	Edits        int64         `json:"edits"`
	Commands     int64         `json:"commands"`
	ForeignChats int64         `json:"foreign_chats"`
	Shards       []BufferStats `json:"shards"`
}
