// Package router classifies incoming updates and hands them to relay workers.
//
// The router:
//   - Converts updates into model.Inbound and stamps a trace id
//   - Sends private chats to the user direction, keyed by user id
//   - Sends admin group messages to the admin direction, keyed by topic id
//   - Drops edits, non-message updates, foreign chats and (optionally) commands
//   - Shards by key so each conversation is processed in arrival order
package router
