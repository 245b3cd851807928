// Package dispatch serializes command/response exchanges with one
// appliance and applies the retry and timeout policy.
//
// The appliance supports a single outstanding request per connection, so
// every Send first takes the dispatch slot: a one-permit semaphore whose
// waiters are served in FIFO order. Concurrent callers are queued and
// their frames reach the wire in submission order, never interleaved.
//
// Within one Send:
//
//   - Out-of-range values fail with protocol.ErrInvalidCommand before
//     anything touches the network.
//   - Each attempt waits up to the per-command timeout; on timeout the
//     identical frame is re-sent, up to the attempt limit, after which
//     ErrCommandTimeout is returned. A timeout alone never tears down
//     the connection.
//   - A malformed reply is unusable data and counts like a timeout.
//   - A well-formed reply with an unexpected ID is a stray (the wire
//     protocol has no correlation IDs; matching is by arrival order)
//     and is discarded without restarting the attempt deadline.
//   - A Rejected reply surfaces as ErrCommandRejected and is never
//     retried; the appliance already said no.
//   - A transport-level I/O error triggers one reconnect followed by one
//     re-send; if the reconnect fails the command is abandoned with the
//     connection error, avoiding tight reconnect loops.
package dispatch
