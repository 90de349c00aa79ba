// Package model defines the platform-neutral types shared by the router,
// the relay dispatcher and the routes table.
//
// Conventions:
//   - User ids: int64 (Telegram user ids exceed 32 bits)
//   - Topic ids: int (forum message_thread_id)
//   - Payloads: a closed set of variants built once at the platform boundary
package model
