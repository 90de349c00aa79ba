package router

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/topicrelay/internal/model"
	"github.com/rickgao/topicrelay/internal/telegram"
)

const adminGroup int64 = -1001234567890

func testRouter(t *testing.T, mutate func(*Config)) *Router {
	t.Helper()
	cfg := DefaultConfig()
	cfg.AdminGroupID = adminGroup
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func privateText(updateID int, userID int64, text string) telegram.Update {
	return telegram.Update{
		UpdateID: updateID,
		Message: &telegram.Message{
			MessageID: updateID,
			Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
			From:      &tgbotapi.User{ID: userID, FirstName: "Ann"},
			Text:      text,
		},
	}
}

func adminReply(updateID int, threadID int, text string) telegram.Update {
	return telegram.Update{
		UpdateID: updateID,
		Message: &telegram.Message{
			MessageID:       updateID,
			MessageThreadID: threadID,
			Chat:            &tgbotapi.Chat{ID: adminGroup, Type: "supergroup"},
			From:            &tgbotapi.User{ID: 555, FirstName: "Admin"},
			Text:            text,
			ReplyToMessage: &telegram.Message{
				MessageID:       1,
				MessageThreadID: threadID,
				Chat:            &tgbotapi.Chat{ID: adminGroup, Type: "supergroup"},
			},
		},
	}
}

func drain(r *Router) []Event {
	var out []Event
	for _, s := range r.Shards() {
		for {
			ev, ok := s.TryReceive()
			if !ok {
				break
			}
			out = append(out, ev)
		}
	}
	return out
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 4, cfg.Shards)
	assert.Equal(t, 256, cfg.BufferSize)
	assert.False(t, cfg.ForwardCommands)
}

func TestRouter_UserMessage(t *testing.T) {
	r := testRouter(t, nil)

	require.True(t, r.Route(privateText(1, 111111, "hello")))

	events := drain(r)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, FromUser, ev.Direction)
	assert.Equal(t, int64(111111), ev.Inbound.SenderID)
	assert.Equal(t, model.Text{Body: "hello"}, ev.Inbound.Payload)
	assert.NotEqual(t, uuid.Nil, ev.Inbound.TraceID)
}

func TestRouter_AdminMessage(t *testing.T) {
	r := testRouter(t, nil)

	require.True(t, r.Route(adminReply(2, 99, "hi")))

	events := drain(r)
	require.Len(t, events, 1)
	assert.Equal(t, FromAdmin, events[0].Direction)
	require.NotNil(t, events[0].Inbound.ReplyTo)
	assert.Equal(t, 99, events[0].Inbound.ReplyTo.ThreadID)
}

func TestRouter_AdminNonReplyStillQueued(t *testing.T) {
	r := testRouter(t, nil)

	u := adminReply(3, 99, "note to self")
	u.Message.ReplyToMessage = nil
	require.True(t, r.Route(u))

	events := drain(r)
	require.Len(t, events, 1)
	assert.Equal(t, FromAdmin, events[0].Direction)
	assert.Nil(t, events[0].Inbound.ReplyTo)
}

func TestRouter_Drops(t *testing.T) {
	r := testRouter(t, nil)

	edit := privateText(10, 111111, "edited")
	edit.EditedMessage, edit.Message = edit.Message, nil
	assert.False(t, r.Route(edit))

	assert.False(t, r.Route(telegram.Update{UpdateID: 11}))

	foreign := privateText(12, 111111, "hi")
	foreign.Message.Chat = &tgbotapi.Chat{ID: -100999, Type: "supergroup"}
	assert.False(t, r.Route(foreign))

	cmd := privateText(13, 111111, "/start")
	cmd.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}
	assert.False(t, r.Route(cmd))

	assert.Empty(t, drain(r))

	stats := r.Stats()
	assert.Equal(t, int64(4), stats.Received)
	assert.Equal(t, int64(0), stats.Routed)
	assert.Equal(t, int64(1), stats.Edits)
	assert.Equal(t, int64(1), stats.NoMessage)
	assert.Equal(t, int64(1), stats.ForeignChats)
	assert.Equal(t, int64(1), stats.Commands)
}

func TestRouter_ForwardCommands(t *testing.T) {
	r := testRouter(t, func(c *Config) { c.ForwardCommands = true })

	cmd := privateText(1, 111111, "/start")
	cmd.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}
	assert.True(t, r.Route(cmd))

	events := drain(r)
	require.Len(t, events, 1)
	assert.True(t, events[0].Inbound.IsCommand)
}

func TestRouter_SameUserSameShard(t *testing.T) {
	r := testRouter(t, func(c *Config) { c.Shards = 8 })

	for i := 1; i <= 20; i++ {
		r.Route(privateText(i, 424242, "m"))
	}

	nonEmpty := 0
	for _, s := range r.Shards() {
		if s.Len() == 0 {
			continue
		}
		nonEmpty++
		prev := 0
		for {
			ev, ok := s.TryReceive()
			if !ok {
				break
			}
			assert.Greater(t, ev.Inbound.UpdateID, prev)
			prev = ev.Inbound.UpdateID
		}
	}
	assert.Equal(t, 1, nonEmpty)
}

func TestRouter_StartStop(t *testing.T) {
	input := make(chan telegram.Update, 4)
	cfg := DefaultConfig()
	cfg.AdminGroupID = adminGroup
	r := New(cfg, input, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, r.Start(context.Background()))

	input <- privateText(1, 111111, "a")
	input <- adminReply(2, 7, "b")
	close(input)

	require.Eventually(t, func() bool { return r.Stats().Routed == 2 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))

	for _, s := range r.Shards() {
		assert.False(t, s.Send(Event{}), "shards must be closed after Stop")
	}
	assert.Len(t, drain(r), 2)
}

func TestDirection_String(t *testing.T) {
	assert.Equal(t, "user", FromUser.String())
	assert.Equal(t, "admin", FromAdmin.String())
	assert.Equal(t, "unknown", Direction(0).String())
}

func TestNew_MinShards(t *testing.T) {
	r := New(Config{}, nil, nil)
	assert.Len(t, r.Shards(), 1)
}
