package protocol

import (
	"encoding/binary"
	"fmt"
)

// ResponseID identifies an incoming response frame.
type ResponseID byte

// Response identifiers, per the Escea LAN comms specification.
const (
	RespFlameEffectOffAck ResponseID = 0x60
	RespFlameEffectOnAck  ResponseID = 0x61
	RespNewSetTempAck     ResponseID = 0x66
	RespSetFlameHeightAck ResponseID = 0x68
	RespSetFanSpeedAck    ResponseID = 0x69
	RespStatus            ResponseID = 0x80
	RespFanBoostOnAck     ResponseID = 0x8A
	RespFanBoostOffAck    ResponseID = 0x8B
	RespPowerOnAck        ResponseID = 0x8D
	RespPowerOffAck       ResponseID = 0x8F
	RespRejected          ResponseID = 0x97
	RespIAmAFire          ResponseID = 0x99
)

// Data section layout for RespStatus (9 bytes).
const (
	statusDataLength      = 9
	dataOffsetTimers      = 0
	dataOffsetFireOn      = 1
	dataOffsetBoostOn     = 2
	dataOffsetEffectOn    = 3
	dataOffsetTargetTemp  = 4
	dataOffsetRoomTemp    = 5
	dataOffsetFlameHeight = 6
	dataOffsetFanSpeed    = 7
	dataOffsetFaultFlags  = 8
)

// Data section layout for RespIAmAFire (6 bytes):
// serial uint32 big-endian followed by PIN uint16 big-endian.
const (
	identityDataLength = 6
	dataOffsetSerial   = 0
	dataOffsetPIN      = 4
)

const rejectedDataLength = 1

// StatusData is the decoded payload of a RespStatus frame.
type StatusData struct {
	HasNewTimers  bool
	FireOn        bool
	FanBoostOn    bool
	FlameEffectOn bool
	TargetTemp    int
	RoomTemp      int
	FlameHeight   int
	FanSpeed      int
	FaultFlags    byte
}

// Identity is the decoded payload of a RespIAmAFire discovery reply.
type Identity struct {
	Serial uint32
	PIN    uint16
}

// Response is a fully validated incoming frame. Exactly one of Status
// and Identity is non-nil for the response IDs that carry data;
// acknowledgement frames carry neither.
type Response struct {
	ID           ResponseID
	Status       *StatusData
	Identity     *Identity
	RejectReason byte // only meaningful when ID == RespRejected
}

// responseDataLengths gives the required data length per response ID.
var responseDataLengths = map[ResponseID]byte{
	RespFlameEffectOffAck: 0,
	RespFlameEffectOnAck:  0,
	RespNewSetTempAck:     0,
	RespSetFlameHeightAck: 0,
	RespSetFanSpeedAck:    0,
	RespStatus:            statusDataLength,
	RespFanBoostOnAck:     0,
	RespFanBoostOffAck:    0,
	RespPowerOnAck:        0,
	RespPowerOffAck:       0,
	RespRejected:          rejectedDataLength,
	RespIAmAFire:          identityDataLength,
}

// ParseResponse validates and decodes an incoming frame. Any failure
// wraps ErrMalformedFrame; a partially decoded response is never
// returned.
func ParseResponse(frame []byte) (*Response, error) {
	if err := validateEnvelope(frame); err != nil {
		return nil, err
	}

	id := ResponseID(frame[offID])
	wantLen, ok := responseDataLengths[id]
	if !ok {
		return nil, newFrameError(frame, "unknown response ID 0x%02x", byte(id))
	}
	if frame[offDataLength] != wantLen {
		return nil, newFrameError(frame, "%s has invalid data length: %d (expected %d)",
			id, frame[offDataLength], wantLen)
	}

	resp := &Response{ID: id}
	data := frame[offDataStart : offDataEnd+1]

	switch id {
	case RespStatus:
		resp.Status = &StatusData{
			HasNewTimers:  data[dataOffsetTimers] != 0,
			FireOn:        data[dataOffsetFireOn] != 0,
			FanBoostOn:    data[dataOffsetBoostOn] != 0,
			FlameEffectOn: data[dataOffsetEffectOn] != 0,
			TargetTemp:    int(data[dataOffsetTargetTemp]),
			RoomTemp:      int(data[dataOffsetRoomTemp]),
			FlameHeight:   int(data[dataOffsetFlameHeight]),
			FanSpeed:      int(data[dataOffsetFanSpeed]),
			FaultFlags:    data[dataOffsetFaultFlags],
		}
	case RespIAmAFire:
		resp.Identity = &Identity{
			Serial: binary.BigEndian.Uint32(data[dataOffsetSerial : dataOffsetSerial+4]),
			PIN:    binary.BigEndian.Uint16(data[dataOffsetPIN : dataOffsetPIN+2]),
		}
	case RespRejected:
		resp.RejectReason = data[0]
	}

	return resp, nil
}

// EncodeResponse builds the wire frame for a response. The appliance
// side of the protocol; used by tests and appliance simulators.
func EncodeResponse(resp Response) ([]byte, error) {
	wantLen, ok := responseDataLengths[resp.ID]
	if !ok {
		return nil, newCommandError("unknown response ID 0x%02x", byte(resp.ID))
	}

	frame := make([]byte, FrameLength)
	frame[offStart] = StartByte
	frame[offEnd] = EndByte
	frame[offID] = byte(resp.ID)
	frame[offDataLength] = wantLen
	data := frame[offDataStart : offDataEnd+1]

	switch resp.ID {
	case RespStatus:
		if resp.Status == nil {
			return nil, newCommandError("status response requires StatusData")
		}
		s := resp.Status
		data[dataOffsetTimers] = boolByte(s.HasNewTimers)
		data[dataOffsetFireOn] = boolByte(s.FireOn)
		data[dataOffsetBoostOn] = boolByte(s.FanBoostOn)
		data[dataOffsetEffectOn] = boolByte(s.FlameEffectOn)
		data[dataOffsetTargetTemp] = byte(s.TargetTemp)
		data[dataOffsetRoomTemp] = byte(s.RoomTemp)
		data[dataOffsetFlameHeight] = byte(s.FlameHeight)
		data[dataOffsetFanSpeed] = byte(s.FanSpeed)
		data[dataOffsetFaultFlags] = s.FaultFlags
	case RespIAmAFire:
		if resp.Identity == nil {
			return nil, newCommandError("identity response requires Identity")
		}
		binary.BigEndian.PutUint32(data[dataOffsetSerial:dataOffsetSerial+4], resp.Identity.Serial)
		binary.BigEndian.PutUint16(data[dataOffsetPIN:dataOffsetPIN+2], resp.Identity.PIN)
	case RespRejected:
		data[0] = resp.RejectReason
	}

	frame[offChecksum] = FrameChecksum(frame)
	return frame, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// ParseCommand decodes a command frame. Used by tests and appliance
// simulators to check what a dispatcher actually put on the wire.
func ParseCommand(frame []byte) (Command, error) {
	if err := validateEnvelope(frame); err != nil {
		return Command{}, err
	}

	id := CommandID(frame[offID])
	spec, ok := commandSpecs[id]
	if !ok {
		return Command{}, newFrameError(frame, "unknown command ID 0x%02x", byte(id))
	}

	cmd := Command{ID: id}
	if spec.hasValue {
		if frame[offDataLength] != 1 {
			return Command{}, newFrameError(frame, "%s has invalid data length: %d (expected 1)",
				id, frame[offDataLength])
		}
		cmd.Value = int(frame[offDataStart])
	} else if frame[offDataLength] != 0 {
		return Command{}, newFrameError(frame, "%s has invalid data length: %d (expected 0)",
			id, frame[offDataLength])
	}

	return cmd, nil
}

// String returns a human-readable response name
func (id ResponseID) String() string {
	switch id {
	case RespFlameEffectOffAck:
		return "FlameEffectOffAck"
	case RespFlameEffectOnAck:
		return "FlameEffectOnAck"
	case RespNewSetTempAck:
		return "NewSetTempAck"
	case RespSetFlameHeightAck:
		return "SetFlameHeightAck"
	case RespSetFanSpeedAck:
		return "SetFanSpeedAck"
	case RespStatus:
		return "Status"
	case RespFanBoostOnAck:
		return "FanBoostOnAck"
	case RespFanBoostOffAck:
		return "FanBoostOffAck"
	case RespPowerOnAck:
		return "PowerOnAck"
	case RespPowerOffAck:
		return "PowerOffAck"
	case RespRejected:
		return "Rejected"
	case RespIAmAFire:
		return "IAmAFire"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", byte(id))
	}
}
