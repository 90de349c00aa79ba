// Package routes owns the user-to-topic routing table.
//
// The table is loaded once at startup from a Store, answers lookups in both
// directions from memory, and grows only when a user writes for the first
// time. Each new entry is persisted before GetOrCreate returns it, so no
// outbound message is ever addressed through an entry that is not on disk.
//
// Entries are never updated or deleted. Topic creation on the platform and
// the local write are not atomic: a crash between the two leaves an orphaned
// topic and the user gets a fresh one on their next message.
//
// Two stores are provided:
//   - FileStore: a JSON object {"<user id>": <topic id>} written through afero
//   - PostgresStore: the user_topics table (see internal/database)
package routes
