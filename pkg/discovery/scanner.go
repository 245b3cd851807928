package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/hearthlink/hearthlink/pkg/protocol"
)

const (
	// DefaultScanTimeout is the default listening window for replies
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the appliance's UDP control and discovery port
	DefaultPort = protocol.UDPPort
)

// DefaultBroadcastAddr is the probe destination when none is configured.
var DefaultBroadcastAddr = net.IPv4bcast

// Scanner performs broadcast discovery of fireplace appliances.
// The zero value is not usable; create one with NewScanner.
type Scanner struct {
	// Timeout is the listening window after the probe is sent
	Timeout time.Duration

	// Port is the UDP port the probe is sent to
	Port int

	// BroadcastAddr is the probe destination. Set to a unicast address
	// to probe a single appliance directly.
	BroadcastAddr net.IP

	// Logger receives scan diagnostics; nil means no logging
	Logger *zap.Logger
}

// NewScanner creates a scanner with default settings.
func NewScanner() *Scanner {
	return &Scanner{
		Timeout:       DefaultScanTimeout,
		Port:          DefaultPort,
		BroadcastAddr: DefaultBroadcastAddr,
	}
}

// Scan sends one broadcast probe and streams appliances as their replies
// arrive. The channel is closed when the timeout elapses or the context
// is cancelled, whichever comes first. Each serial number is yielded at
// most once; later replies from the same appliance are ignored.
//
// The returned sequence is finite and non-restartable: call Scan again
// for a fresh probe.
func (s *Scanner) Scan(ctx context.Context) (<-chan Appliance, error) {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}

	probe, err := protocol.EncodeCommand(protocol.Command{ID: protocol.CmdSearchForFires})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search probe: %w", err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("failed to open discovery socket: %w", err)
	}

	dest := &net.UDPAddr{IP: s.BroadcastAddr, Port: s.Port}
	log.Debug("sending discovery probe",
		zap.String("dest", dest.String()),
		zap.Duration("timeout", s.Timeout))

	if _, err := conn.WriteToUDP(probe, dest); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send discovery probe: %w", err)
	}

	deadline := time.Now().Add(s.Timeout)
	_ = conn.SetReadDeadline(deadline)

	out := make(chan Appliance)

	// Close the socket on context cancellation so the read loop
	// unblocks before the deadline.
	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stopped:
		}
	}()

	go func() {
		defer close(out)
		defer close(stopped)
		defer conn.Close()

		seen := make(map[uint32]bool)
		buf := make([]byte, 64)

		for {
			n, remote, err := conn.ReadFromUDP(buf)
			if err != nil {
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					log.Debug("discovery window closed", zap.Int("found", len(seen)))
				} else if ctx.Err() == nil {
					log.Warn("discovery read failed", zap.Error(err))
				}
				return
			}

			resp, err := protocol.ParseResponse(buf[:n])
			if err != nil {
				// Stray or corrupt datagram on the shared port
				log.Debug("ignoring invalid discovery reply",
					zap.String("remote", remote.String()), zap.Error(err))
				continue
			}
			if resp.ID != protocol.RespIAmAFire || resp.Identity == nil {
				log.Debug("ignoring unexpected reply",
					zap.String("id", resp.ID.String()),
					zap.String("remote", remote.String()))
				continue
			}
			if seen[resp.Identity.Serial] {
				continue
			}
			seen[resp.Identity.Serial] = true

			appliance := Appliance{
				IP:           remote.IP,
				Port:         s.Port,
				Serial:       resp.Identity.Serial,
				PIN:          resp.Identity.PIN,
				DiscoveredAt: time.Now(),
			}
			log.Info("appliance discovered",
				zap.String("uid", appliance.UID()),
				zap.String("addr", appliance.Addr()))

			select {
			case out <- appliance:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Discover runs a scan and collects all replies into a slice, in reply
// arrival order. An empty slice with a nil error means no appliance
// answered within the timeout.
func (s *Scanner) Discover(ctx context.Context) ([]Appliance, error) {
	stream, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}

	appliances := make([]Appliance, 0)
	for appliance := range stream {
		appliances = append(appliances, appliance)
	}
	return appliances, ctx.Err()
}

// Discover is a convenience function to scan with a custom timeout and
// otherwise default settings.
func Discover(ctx context.Context, timeout time.Duration) ([]Appliance, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.Discover(ctx)
}
