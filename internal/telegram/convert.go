package telegram

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rickgao/topicrelay/internal/model"
)

// ToInbound converts a new-message update. It returns false for updates
// that carry no new message (edits and other update kinds).
func ToInbound(u Update) (model.Inbound, bool) {
	msg := u.Message
	if msg == nil || msg.Chat == nil {
		return model.Inbound{}, false
	}

	in := model.Inbound{
		UpdateID:   u.UpdateID,
		MessageID:  msg.MessageID,
		ReceivedAt: time.Unix(int64(msg.Date), 0).UTC(),
		Chat: model.Chat{
			ID:   msg.Chat.ID,
			Kind: model.ChatKind(msg.Chat.Type),
		},
		IsCommand: msg.IsCommand(),
		Payload:   PayloadOf(msg),
	}

	if msg.From != nil {
		in.SenderID = msg.From.ID
		in.SenderName = DisplayName(msg.From)
	}

	if msg.ReplyToMessage != nil {
		in.ReplyTo = &model.ReplyRef{
			MessageID: msg.ReplyToMessage.MessageID,
			ThreadID:  msg.ReplyToMessage.MessageThreadID,
		}
	}

	return in, true
}

// PayloadOf picks the message content in fixed precedence:
// text, sticker, photo, voice, video, document, otherwise Unsupported.
func PayloadOf(msg *Message) model.Payload {
	switch {
	case msg.Text != "":
		return model.Text{Body: msg.Text}
	case msg.Sticker != nil:
		return model.Sticker{FileID: msg.Sticker.FileID}
	case len(msg.Photo) > 0:
		// Sizes are ordered smallest first.
		return model.Photo{FileID: msg.Photo[len(msg.Photo)-1].FileID, Caption: msg.Caption}
	case msg.Voice != nil:
		return model.Voice{FileID: msg.Voice.FileID, Caption: msg.Caption}
	case msg.Video != nil:
		return model.Video{FileID: msg.Video.FileID, Caption: msg.Caption}
	case msg.Document != nil:
		return model.Document{FileID: msg.Document.FileID, Caption: msg.Caption}
	default:
		return model.Unsupported{}
	}
}

// DisplayName returns the username, falling back to the first name.
func DisplayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return u.UserName
	}
	return u.FirstName
}
