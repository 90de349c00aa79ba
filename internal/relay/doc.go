// Package relay forwards messages between end users and the admin group.
//
// A private message is sent into the sender's forum topic, which is created
// on first contact. A reply inside a topic is sent back to the user the topic
// belongs to. Each payload is re-sent once with the same content; content
// the relay does not handle is replaced by a fixed notice.
//
// Events that do not apply (wrong chat, not a reply, unknown topic) are
// logged, counted and skipped. Platform failures are returned to the caller.
package relay
