package protocol

import "fmt"

// CommandID identifies an outgoing command frame.
type CommandID byte

// Command identifiers, per the Escea LAN comms specification.
const (
	CmdStatusPlease   CommandID = 0x31
	CmdFanBoostOn     CommandID = 0x37
	CmdFanBoostOff    CommandID = 0x38
	CmdPowerOn        CommandID = 0x39
	CmdPowerOff       CommandID = 0x3A
	CmdSearchForFires CommandID = 0x50
	CmdFlameEffectOff CommandID = 0x55
	CmdFlameEffectOn  CommandID = 0x56
	CmdNewSetTemp     CommandID = 0x57
	CmdSetFlameHeight CommandID = 0x58
	CmdSetFanSpeed    CommandID = 0x59
)

// Value bounds for commands that carry a setting byte.
const (
	// MinSetTemp and MaxSetTemp bound CmdNewSetTemp (degrees Celsius)
	MinSetTemp = 4
	MaxSetTemp = 30

	// MinFlameHeight and MaxFlameHeight bound CmdSetFlameHeight
	MinFlameHeight = 1
	MaxFlameHeight = 5

	// MinFanSpeed and MaxFanSpeed bound CmdSetFanSpeed (0 = auto)
	MinFanSpeed = 0
	MaxFanSpeed = 3
)

// Command is an outgoing message before encoding. Value is only
// meaningful for the commands that carry a setting byte (CmdNewSetTemp,
// CmdSetFlameHeight, CmdSetFanSpeed) and is ignored otherwise.
type Command struct {
	ID    CommandID
	Value int
}

// commandSpec describes the data section and value bounds per command.
type commandSpec struct {
	hasValue bool
	min, max int
}

var commandSpecs = map[CommandID]commandSpec{
	CmdStatusPlease:   {},
	CmdFanBoostOn:     {},
	CmdFanBoostOff:    {},
	CmdPowerOn:        {},
	CmdPowerOff:       {},
	CmdSearchForFires: {},
	CmdFlameEffectOff: {},
	CmdFlameEffectOn:  {},
	CmdNewSetTemp:     {hasValue: true, min: MinSetTemp, max: MaxSetTemp},
	CmdSetFlameHeight: {hasValue: true, min: MinFlameHeight, max: MaxFlameHeight},
	CmdSetFanSpeed:    {hasValue: true, min: MinFanSpeed, max: MaxFanSpeed},
}

// expectedResponses pairs each command with the response ID the
// appliance answers it with.
var expectedResponses = map[CommandID]ResponseID{
	CmdStatusPlease:   RespStatus,
	CmdFanBoostOn:     RespFanBoostOnAck,
	CmdFanBoostOff:    RespFanBoostOffAck,
	CmdPowerOn:        RespPowerOnAck,
	CmdPowerOff:       RespPowerOffAck,
	CmdSearchForFires: RespIAmAFire,
	CmdFlameEffectOff: RespFlameEffectOffAck,
	CmdFlameEffectOn:  RespFlameEffectOnAck,
	CmdNewSetTemp:     RespNewSetTempAck,
	CmdSetFlameHeight: RespSetFlameHeightAck,
	CmdSetFanSpeed:    RespSetFanSpeedAck,
}

// EncodeCommand builds the wire frame for a command. Value bounds are
// enforced here, before any network I/O happens.
func EncodeCommand(cmd Command) ([]byte, error) {
	spec, ok := commandSpecs[cmd.ID]
	if !ok {
		return nil, newCommandError("unknown command ID 0x%02x", byte(cmd.ID))
	}

	frame := make([]byte, FrameLength)
	frame[offStart] = StartByte
	frame[offEnd] = EndByte
	frame[offID] = byte(cmd.ID)

	if spec.hasValue {
		if cmd.Value < spec.min || cmd.Value > spec.max {
			return nil, newCommandError("%s value %d out of range %d..%d",
				cmd.ID, cmd.Value, spec.min, spec.max)
		}
		frame[offDataLength] = 1
		frame[offDataStart] = byte(cmd.Value)
	}

	frame[offChecksum] = FrameChecksum(frame)
	return frame, nil
}

// ExpectedResponse returns the response ID that acknowledges the given
// command. The second return is false for unknown command IDs.
func ExpectedResponse(id CommandID) (ResponseID, bool) {
	resp, ok := expectedResponses[id]
	return resp, ok
}

// String returns a human-readable command name
func (id CommandID) String() string {
	switch id {
	case CmdStatusPlease:
		return "StatusPlease"
	case CmdFanBoostOn:
		return "FanBoostOn"
	case CmdFanBoostOff:
		return "FanBoostOff"
	case CmdPowerOn:
		return "PowerOn"
	case CmdPowerOff:
		return "PowerOff"
	case CmdSearchForFires:
		return "SearchForFires"
	case CmdFlameEffectOff:
		return "FlameEffectOff"
	case CmdFlameEffectOn:
		return "FlameEffectOn"
	case CmdNewSetTemp:
		return "NewSetTemp"
	case CmdSetFlameHeight:
		return "SetFlameHeight"
	case CmdSetFanSpeed:
		return "SetFanSpeed"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", byte(id))
	}
}
