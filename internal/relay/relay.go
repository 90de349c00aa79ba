package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/rickgao/topicrelay/internal/model"
	"github.com/rickgao/topicrelay/internal/router"
	"github.com/rickgao/topicrelay/internal/routes"
)

var (
	// ErrWrongOrigin marks an event from a chat the handler does not serve.
	ErrWrongOrigin = errors.New("relay: wrong origin")
	// ErrNotReply marks an admin group message that replies to nothing.
	ErrNotReply = errors.New("relay: not a reply")
	// ErrNoRoute marks a reply whose topic maps to no user.
	ErrNoRoute = errors.New("relay: user not found")
)

// DefaultUnsupportedNotice is sent in place of content the relay cannot forward.
const DefaultUnsupportedNotice = "Unsupported message received."

// maxTopicName is the platform limit on forum topic names, in characters.
const maxTopicName = 128

// Platform is the messaging platform. Implemented by *telegram.Client.
type Platform interface {
	CreateForumTopic(ctx context.Context, chatID int64, name string) (int, error)
	SendText(ctx context.Context, chatID int64, threadID int, text string) error
	SendMedia(ctx context.Context, chatID int64, threadID int, media model.Media) error
}

// RouteTable resolves users and topics. Implemented by *routes.Table.
type RouteTable interface {
	GetOrCreate(ctx context.Context, userID int64, displayName string, create routes.CreateFunc) (int, error)
	LookupByTopic(topicID int) (int64, bool)
}

// Config holds relay configuration.
type Config struct {
	AdminGroupID      int64
	UnsupportedNotice string
}

// Stats contains runtime statistics.
type Stats struct {
	UserMessages int64 `json:"user_messages"`
	AdminReplies int64 `json:"admin_replies"`
	Forwarded    int64 `json:"forwarded"`
	Fallbacks    int64 `json:"fallbacks"`
	WrongOrigin  int64 `json:"wrong_origin"`
	NotReply     int64 `json:"not_reply"`
	NoRoute      int64 `json:"no_route"`
	Failures     int64 `json:"failures"`
	Dropped      int64 `json:"dropped"`
}

// Relay dispatches inbound messages in both directions.
type Relay struct {
	cfg      Config
	platform Platform
	routes   RouteTable
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	shards []*router.GrowableBuffer[router.Event]

	userMessages atomic.Int64
	adminReplies atomic.Int64
	forwarded    atomic.Int64
	fallbacks    atomic.Int64
	wrongOrigin  atomic.Int64
	notReply     atomic.Int64
	noRoute      atomic.Int64
	failures     atomic.Int64
	dropped      atomic.Int64
}

// New creates a relay.
func New(cfg Config, platform Platform, table RouteTable, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UnsupportedNotice == "" {
		cfg.UnsupportedNotice = DefaultUnsupportedNotice
	}

	return &Relay{
		cfg:      cfg,
		platform: platform,
		routes:   table,
		logger:   logger,
	}
}

// OnUserMessage forwards a private message into the sender's topic,
// creating the topic on first contact.
func (r *Relay) OnUserMessage(ctx context.Context, in model.Inbound) error {
	r.userMessages.Add(1)
	logger := r.logger.With("trace_id", in.TraceID, "user_id", in.SenderID)

	if err := checkUserOrigin(in); err != nil {
		r.wrongOrigin.Add(1)
		logger.Warn("message not from a private chat, ignoring",
			"chat_id", in.Chat.ID,
			"chat_type", in.Chat.Kind,
		)
		return nil
	}

	topicID, err := r.routes.GetOrCreate(ctx, in.SenderID, in.SenderName, r.topicCreator(in.SenderID))
	if err != nil {
		r.failures.Add(1)
		return fmt.Errorf("resolve topic for user %d: %w", in.SenderID, err)
	}

	if err := r.dispatch(ctx, r.cfg.AdminGroupID, topicID, in.Payload); err != nil {
		r.failures.Add(1)
		return fmt.Errorf("forward to topic %d: %w", topicID, err)
	}

	r.forwarded.Add(1)
	logger.Debug("forwarded to admin group",
		"topic_id", topicID,
		"kind", kindOf(in.Payload),
	)
	return nil
}

// OnAdminReply sends a reply made inside a topic back to the topic's user.
func (r *Relay) OnAdminReply(ctx context.Context, in model.Inbound) error {
	r.adminReplies.Add(1)
	logger := r.logger.With("trace_id", in.TraceID, "chat_id", in.Chat.ID)

	topicID, err := r.adminTopic(in)
	switch {
	case errors.Is(err, ErrNotReply):
		r.notReply.Add(1)
		logger.Debug("admin message is not a reply, ignoring")
		return nil
	case errors.Is(err, ErrWrongOrigin):
		r.wrongOrigin.Add(1)
		logger.Warn("reply not from the admin group, ignoring")
		return nil
	case err != nil:
		r.noRoute.Add(1)
		logger.Warn("user not found", "reason", "reply outside a topic")
		return nil
	}

	userID, ok := r.routes.LookupByTopic(topicID)
	if !ok {
		r.noRoute.Add(1)
		logger.Warn("user not found", "topic_id", topicID)
		return nil
	}

	if err := r.dispatch(ctx, userID, 0, in.Payload); err != nil {
		r.failures.Add(1)
		return fmt.Errorf("reply to user %d: %w", userID, err)
	}

	r.forwarded.Add(1)
	logger.Debug("reply sent to user",
		"topic_id", topicID,
		"user_id", userID,
		"kind", kindOf(in.Payload),
	)
	return nil
}

// Stats returns current statistics.
func (r *Relay) Stats() Stats {
	return Stats{
		UserMessages: r.userMessages.Load(),
		AdminReplies: r.adminReplies.Load(),
		Forwarded:    r.forwarded.Load(),
		Fallbacks:    r.fallbacks.Load(),
		WrongOrigin:  r.wrongOrigin.Load(),
		NotReply:     r.notReply.Load(),
		NoRoute:      r.noRoute.Load(),
		Failures:     r.failures.Load(),
		Dropped:      r.dropped.Load(),
	}
}

func checkUserOrigin(in model.Inbound) error {
	if !in.Chat.IsPrivate() || in.SenderID == 0 {
		return ErrWrongOrigin
	}
	return nil
}

// adminTopic returns the topic a reply was made in.
func (r *Relay) adminTopic(in model.Inbound) (int, error) {
	if in.Chat.ID != r.cfg.AdminGroupID {
		return 0, ErrWrongOrigin
	}
	if !in.IsReply() {
		return 0, ErrNotReply
	}
	if in.ReplyTo.ThreadID == 0 {
		return 0, ErrNoRoute
	}
	return in.ReplyTo.ThreadID, nil
}

func (r *Relay) topicCreator(userID int64) routes.CreateFunc {
	return func(ctx context.Context, displayName string) (int, error) {
		return r.platform.CreateForumTopic(ctx, r.cfg.AdminGroupID, topicName(displayName, userID))
	}
}

// dispatch sends exactly one message carrying p. threadID 0 targets the chat.
func (r *Relay) dispatch(ctx context.Context, chatID int64, threadID int, p model.Payload) error {
	switch v := p.(type) {
	case model.Text:
		return r.platform.SendText(ctx, chatID, threadID, v.Body)
	case model.Sticker:
		return r.platform.SendMedia(ctx, chatID, threadID, model.Media{Kind: model.KindSticker, FileID: v.FileID})
	case model.Photo:
		return r.platform.SendMedia(ctx, chatID, threadID, model.Media{Kind: model.KindPhoto, FileID: v.FileID, Caption: v.Caption})
	case model.Voice:
		return r.platform.SendMedia(ctx, chatID, threadID, model.Media{Kind: model.KindVoice, FileID: v.FileID, Caption: v.Caption})
	case model.Video:
		return r.platform.SendMedia(ctx, chatID, threadID, model.Media{Kind: model.KindVideo, FileID: v.FileID, Caption: v.Caption})
	case model.Document:
		return r.platform.SendMedia(ctx, chatID, threadID, model.Media{Kind: model.KindDocument, FileID: v.FileID, Caption: v.Caption})
	case model.Unsupported, nil:
		r.fallbacks.Add(1)
		return r.platform.SendText(ctx, chatID, threadID, r.cfg.UnsupportedNotice)
	default:
		panic(fmt.Sprintf("relay: unhandled payload %T", p))
	}
}

func kindOf(p model.Payload) model.Kind {
	if p == nil {
		return model.KindUnsupported
	}
	return p.Kind()
}

// topicName trims name to the platform limit. Empty names fall back to the user id.
func topicName(name string, userID int64) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "user " + strconv.FormatInt(userID, 10)
	}
	if utf8.RuneCountInString(name) > maxTopicName {
		name = string([]rune(name)[:maxTopicName])
	}
	return name
}
