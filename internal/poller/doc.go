// Package poller implements the update poller.
//
// The poller:
//   - Long-polls getUpdates and confirms each batch through the offset
//   - Publishes updates in order on a single channel for the router
//   - Backs off exponentially with jitter on failure, honoring retry_after
//   - Closes its output channel when stopped
package poller
