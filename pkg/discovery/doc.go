// Package discovery locates fireplace appliances on the local network.
//
// Discovery is a single broadcast probe followed by a listening window:
// a SearchForFires frame is sent to the broadcast address on UDP port
// 3300, and every appliance answers with a unicast IAmAFire frame
// carrying its serial number and PIN. The scanner collects replies until
// the timeout elapses; duplicate replies from the same serial are
// ignored (first reply wins).
//
// Scan streams appliances as their replies arrive and closes the channel
// at the timeout; Discover is a convenience wrapper that collects the
// stream into a slice. Finding no appliances is not an error.
//
// The broadcast address is configurable so tests (and installations with
// directed-broadcast subnets) can probe a specific address instead of
// 255.255.255.255.
package discovery
