// Package firetest provides a scripted fireplace appliance simulator on
// loopback UDP for package tests. It answers the vendor protocol like a
// real unit and can be instructed to drop, corrupt or reject requests to
// exercise retry and error paths.
package firetest

import (
	"net"
	"sync"
	"testing"

	"github.com/hearthlink/hearthlink/pkg/protocol"
)

// Appliance is a fake fireplace listening on a loopback UDP port.
type Appliance struct {
	conn *net.UDPConn

	mu       sync.Mutex
	state    protocol.StatusData
	serial   uint32
	pin      uint16
	received []protocol.Command

	dropNext     int
	corruptNext  int
	rejectNext   int
	rejectReason byte

	done chan struct{}
}

// New starts a fake appliance with the given serial number. It is
// stopped automatically when the test finishes.
func New(t *testing.T, serial uint32) *Appliance {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("firetest: failed to listen: %v", err)
	}

	a := &Appliance{
		conn:   conn,
		serial: serial,
		pin:    9999,
		state: protocol.StatusData{
			TargetTemp:  20,
			RoomTemp:    18,
			FlameHeight: protocol.MinFlameHeight,
		},
		done: make(chan struct{}),
	}
	go a.serve()
	t.Cleanup(a.Close)
	return a
}

// Addr returns the appliance's UDP address.
func (a *Appliance) Addr() *net.UDPAddr {
	return a.conn.LocalAddr().(*net.UDPAddr)
}

// Close stops the appliance. Safe to call more than once.
func (a *Appliance) Close() {
	select {
	case <-a.done:
	default:
		close(a.done)
		a.conn.Close()
	}
}

// Received returns the valid commands seen so far, in arrival order.
func (a *Appliance) Received() []protocol.Command {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]protocol.Command, len(a.received))
	copy(out, a.received)
	return out
}

// State returns the appliance's current operating state.
func (a *Appliance) State() protocol.StatusData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// SetState replaces the appliance's operating state.
func (a *Appliance) SetState(s protocol.StatusData) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}

// DropRequests makes the appliance silently ignore the next n requests.
func (a *Appliance) DropRequests(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dropNext = n
}

// CorruptReplies makes the next n replies carry a bad checksum.
func (a *Appliance) CorruptReplies(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.corruptNext = n
}

// RejectRequests makes the appliance answer the next n requests with a
// Rejected frame carrying the given reason.
func (a *Appliance) RejectRequests(n int, reason byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejectNext = n
	a.rejectReason = reason
}

func (a *Appliance) serve() {
	buf := make([]byte, 64)
	for {
		n, remote, err := a.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		cmd, err := protocol.ParseCommand(buf[:n])
		if err != nil {
			continue
		}

		reply, ok := a.handle(cmd)
		if !ok {
			continue
		}
		_, _ = a.conn.WriteToUDP(reply, remote)
	}
}

// handle applies the command to the state machine and builds the reply.
// The second return is false when the request is being dropped.
func (a *Appliance) handle(cmd protocol.Command) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.received = append(a.received, cmd)

	if a.dropNext > 0 {
		a.dropNext--
		return nil, false
	}
	if a.rejectNext > 0 {
		a.rejectNext--
		frame, _ := protocol.EncodeResponse(protocol.Response{
			ID:           protocol.RespRejected,
			RejectReason: a.rejectReason,
		})
		return frame, true
	}

	resp := protocol.Response{}
	switch cmd.ID {
	case protocol.CmdSearchForFires:
		resp.ID = protocol.RespIAmAFire
		resp.Identity = &protocol.Identity{Serial: a.serial, PIN: a.pin}
	case protocol.CmdStatusPlease:
		state := a.state
		resp.ID = protocol.RespStatus
		resp.Status = &state
	case protocol.CmdPowerOn:
		a.state.FireOn = true
		resp.ID = protocol.RespPowerOnAck
	case protocol.CmdPowerOff:
		a.state.FireOn = false
		resp.ID = protocol.RespPowerOffAck
	case protocol.CmdSetFlameHeight:
		a.state.FlameHeight = cmd.Value
		resp.ID = protocol.RespSetFlameHeightAck
	case protocol.CmdSetFanSpeed:
		a.state.FanSpeed = cmd.Value
		resp.ID = protocol.RespSetFanSpeedAck
	case protocol.CmdNewSetTemp:
		a.state.TargetTemp = cmd.Value
		resp.ID = protocol.RespNewSetTempAck
	case protocol.CmdFanBoostOn:
		a.state.FanBoostOn = true
		resp.ID = protocol.RespFanBoostOnAck
	case protocol.CmdFanBoostOff:
		a.state.FanBoostOn = false
		resp.ID = protocol.RespFanBoostOffAck
	case protocol.CmdFlameEffectOn:
		a.state.FlameEffectOn = true
		resp.ID = protocol.RespFlameEffectOnAck
	case protocol.CmdFlameEffectOff:
		a.state.FlameEffectOn = false
		resp.ID = protocol.RespFlameEffectOffAck
	default:
		return nil, false
	}

	frame, err := protocol.EncodeResponse(resp)
	if err != nil {
		return nil, false
	}

	if a.corruptNext > 0 {
		a.corruptNext--
		frame[13] ^= 0xFF
	}
	return frame, true
}
