package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rickgao/topicrelay/internal/model"
)

// AllowedUpdates is the update filter sent with every getUpdates call.
var AllowedUpdates = []string{"message"}

// GetUpdates long-polls for updates with id >= offset.
func (c *Client) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]Update, error) {
	params := tgbotapi.Params{}
	params.AddNonZero("offset", offset)
	params.AddNonZero("timeout", int(timeout/time.Second))

	allowed, err := json.Marshal(AllowedUpdates)
	if err != nil {
		return nil, fmt.Errorf("encode allowed_updates: %w", err)
	}
	params["allowed_updates"] = string(allowed)

	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// CreateForumTopic creates a topic in a forum supergroup and returns its thread id.
func (c *Client) CreateForumTopic(ctx context.Context, chatID int64, name string) (int, error) {
	params := tgbotapi.Params{}
	params["chat_id"] = strconv.FormatInt(chatID, 10)
	params.AddNonEmpty("name", name)

	var topic ForumTopic
	if err := c.call(ctx, "createForumTopic", params, &topic); err != nil {
		return 0, err
	}
	if topic.MessageThreadID == 0 {
		return 0, fmt.Errorf("createForumTopic: %w", ErrEmptyResult)
	}

	c.logger.Debug("forum topic created",
		"chat_id", chatID,
		"topic_id", topic.MessageThreadID,
		"name", topic.Name,
	)

	return topic.MessageThreadID, nil
}

// SendText sends a text message. threadID 0 targets the chat itself.
func (c *Client) SendText(ctx context.Context, chatID int64, threadID int, text string) error {
	params := tgbotapi.Params{}
	params["chat_id"] = strconv.FormatInt(chatID, 10)
	params.AddNonZero("message_thread_id", threadID)
	params.AddNonEmpty("text", text)

	return c.call(ctx, "sendMessage", params, nil)
}

type mediaMethod struct {
	method  string
	field   string
	caption bool
}

var mediaMethods = map[model.Kind]mediaMethod{
	model.KindSticker:  {method: "sendSticker", field: "sticker"},
	model.KindPhoto:    {method: "sendPhoto", field: "photo", caption: true},
	model.KindVoice:    {method: "sendVoice", field: "voice", caption: true},
	model.KindVideo:    {method: "sendVideo", field: "video", caption: true},
	model.KindDocument: {method: "sendDocument", field: "document", caption: true},
}

// SendMedia re-sends a file the platform already stores, by file id.
func (c *Client) SendMedia(ctx context.Context, chatID int64, threadID int, media model.Media) error {
	if !media.Kind.IsMedia() {
		return fmt.Errorf("send media: unsupported kind %s", media.Kind)
	}
	m := mediaMethods[media.Kind]

	params := tgbotapi.Params{}
	params["chat_id"] = strconv.FormatInt(chatID, 10)
	params.AddNonZero("message_thread_id", threadID)
	params[m.field] = media.FileID
	if m.caption {
		params.AddNonEmpty("caption", media.Caption)
	}

	return c.call(ctx, m.method, params, nil)
}
