package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatKind is the type of chat an inbound message arrived in.
type ChatKind string

const (
	ChatPrivate    ChatKind = "private"
	ChatGroup      ChatKind = "group"
	ChatSupergroup ChatKind = "supergroup"
	ChatChannel    ChatKind = "channel"
)

// Chat identifies where an inbound message was posted.
type Chat struct {
	ID   int64
	Kind ChatKind
}

// IsPrivate reports whether the chat is a one-to-one chat with the bot.
func (c Chat) IsPrivate() bool {
	return c.Kind == ChatPrivate
}

// ReplyRef points at the message an inbound message replies to.
// ThreadID is 0 when the replied-to message is not inside a forum topic.
type ReplyRef struct {
	MessageID int
	ThreadID  int
}

// Inbound is one message received from the platform, already classified.
type Inbound struct {
	TraceID    uuid.UUID // Assigned by the router for log correlation
	UpdateID   int
	MessageID  int
	ReceivedAt time.Time

	SenderID   int64
	SenderName string
	Chat       Chat

	// IsCommand is set when the message starts with a bot command.
	IsCommand bool

	Payload Payload
	ReplyTo *ReplyRef
}

// IsReply reports whether the message replies to another message.
func (in Inbound) IsReply() bool {
	return in.ReplyTo != nil
}
