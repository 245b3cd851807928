// Package status keeps a typed view of the appliance's operating state
// and fans it out to subscribers.
//
// The Syncer polls the appliance at a fixed interval (and on demand via
// Refresh, which the facade calls after every successful mutating
// command). Each poll produces an immutable Snapshot; the previous
// snapshot is replaced, never mutated. Subscribers are notified only
// when the state actually changed, except after a refresh that follows
// a failed one: that resync always publishes, so subscribers holding a
// stale view recover after reconnects.
//
// Delivery is fire-and-forget per subscriber: each registered callback
// runs on its own goroutine fed by a buffered channel, so one slow
// subscriber can delay or drop only its own updates, never another
// subscriber's and never the poll loop.
package status
