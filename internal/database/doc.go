// Package database provides the PostgreSQL connection pool used by the
// postgres routes backend.
//
// The relay only stores one small table (user_topics), so a single pool with
// a handful of connections is enough; see EnsureSchema for the layout.
package database
