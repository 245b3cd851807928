// Package connection manages the UDP transport to a single appliance.
//
// A Connection owns one socket and tracks its lifecycle:
//
//	Disconnected -> Connecting -> Connected -> Disconnected
//
// with a Reconnecting detour when a transient transport failure is being
// recovered. Close is idempotent and safe from any state; closing
// unblocks an in-flight Receive immediately so a waiting dispatcher sees
// a connection error instead of running out its timeout.
//
// A Connection is exclusively owned by one command dispatcher. It does
// no request/response matching or retrying itself; it only moves bytes
// and state.
package connection
