package discovery

import (
	"fmt"
	"net"
	"time"
)

// Appliance identifies a discovered fireplace on the network. It is an
// immutable value: the scanner creates it from a discovery reply and it
// stays valid for as long as the appliance keeps that address.
type Appliance struct {
	// IP is the appliance's IPv4 address
	IP net.IP

	// Port is the UDP control port (always 3300 on current firmware)
	Port int

	// Serial is the unit serial number, used as the unique identifier
	Serial uint32

	// PIN is the pairing PIN reported in the discovery reply
	PIN uint16

	// DiscoveredAt is when the reply arrived
	DiscoveredAt time.Time
}

// UID returns the appliance identifier as a string token.
func (a Appliance) UID() string {
	return fmt.Sprintf("%d", a.Serial)
}

// Addr returns the appliance's UDP address in host:port form.
func (a Appliance) Addr() string {
	return net.JoinHostPort(a.IP.String(), fmt.Sprintf("%d", a.Port))
}

// UDPAddr returns the appliance's control address for dialing.
func (a Appliance) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: a.IP, Port: a.Port}
}

// String returns a human-readable description of the appliance
func (a Appliance) String() string {
	return fmt.Sprintf("Fireplace %s at %s", a.UID(), a.Addr())
}
