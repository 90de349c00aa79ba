package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Update is one entry of a getUpdates result.
type Update struct {
	UpdateID      int      `json:"update_id"`
	Message       *Message `json:"message,omitempty"`
	EditedMessage *Message `json:"edited_message,omitempty"`
}

// Message is the subset of the Bot API message object the relay reads,
// including the forum topic fields missing from tgbotapi.Message.
type Message struct {
	MessageID       int            `json:"message_id"`
	MessageThreadID int            `json:"message_thread_id,omitempty"`
	IsTopicMessage  bool           `json:"is_topic_message,omitempty"`
	From            *tgbotapi.User `json:"from,omitempty"`
	Chat            *tgbotapi.Chat `json:"chat"`
	Date            int            `json:"date"`
	ReplyToMessage  *Message       `json:"reply_to_message,omitempty"`

	Text     string                   `json:"text,omitempty"`
	Entities []tgbotapi.MessageEntity `json:"entities,omitempty"`
	Caption  string                   `json:"caption,omitempty"`

	Sticker  *tgbotapi.Sticker    `json:"sticker,omitempty"`
	Photo    []tgbotapi.PhotoSize `json:"photo,omitempty"`
	Voice    *tgbotapi.Voice      `json:"voice,omitempty"`
	Video    *tgbotapi.Video      `json:"video,omitempty"`
	Document *tgbotapi.Document   `json:"document,omitempty"`
}

// IsCommand reports whether the message starts with a bot command.
func (m *Message) IsCommand() bool {
	if len(m.Entities) == 0 {
		return false
	}
	e := m.Entities[0]
	return e.Offset == 0 && e.Type == "bot_command" && strings.HasPrefix(m.Text, "/")
}

// ForumTopic is the result of createForumTopic.
type ForumTopic struct {
	MessageThreadID int    `json:"message_thread_id"`
	Name            string `json:"name"`
	IconColor       int    `json:"icon_color"`
}
