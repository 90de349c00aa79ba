// Package telegram is a thin Bot API client for the calls the relay needs:
// getUpdates, createForumTopic and the send* family.
//
// Transport, authentication and error decoding come from
// github.com/go-telegram-bot-api/telegram-bot-api/v5. That library predates
// forum topics, so this package declares its own Update and Message wire types
// carrying message_thread_id and issues every call through BotAPI.MakeRequest.
//
// Every API failure is a *tgbotapi.Error wrapped with the method name.
// IsRetryable and RetryAfter inspect it for the poll loop.
package telegram
