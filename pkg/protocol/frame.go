package protocol

import "errors"

// UDPPort is the fixed UDP port the appliance uses for both broadcast
// discovery and unicast command/response exchange.
const UDPPort = 3300

// Frame layout constants. Offsets are into the fixed 15-byte frame.
const (
	// FrameLength is the size of every command and response frame
	FrameLength = 15

	// StartByte marks the beginning of a frame ('G')
	StartByte = 0x47

	// EndByte marks the end of a frame ('F')
	EndByte = 0x46

	// MaxDataLength is the capacity of the data section (bytes 3..12)
	MaxDataLength = 10

	offStart      = 0
	offID         = 1
	offDataLength = 2
	offDataStart  = 3
	offDataEnd    = 12
	offChecksum   = 13
	offEnd        = 14
)

var (
	// ErrInvalidCommand is returned when a command value is outside the
	// range the appliance supports. Nothing is written to the network.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrMalformedFrame is returned when an incoming frame fails length,
	// envelope or checksum validation. The frame must be discarded.
	ErrMalformedFrame = errors.New("malformed frame")
)

// FrameChecksum computes the checksum for a complete frame: the sum of
// bytes 1..12 (ID, data length and data section), modulo 255.
func FrameChecksum(frame []byte) byte {
	var sum int
	for i := offID; i <= offDataEnd; i++ {
		sum += int(frame[i])
	}
	return byte(sum % 255)
}

// validateEnvelope checks length, start/end bytes and checksum.
// It does not interpret the ID or data section.
func validateEnvelope(frame []byte) error {
	if len(frame) != FrameLength {
		return newFrameError(frame, "incorrect frame length: %d (expected %d)", len(frame), FrameLength)
	}
	if frame[offStart] != StartByte {
		return newFrameError(frame, "invalid start byte: 0x%02x (expected 0x%02x)", frame[offStart], StartByte)
	}
	if frame[offEnd] != EndByte {
		return newFrameError(frame, "invalid end byte: 0x%02x (expected 0x%02x)", frame[offEnd], EndByte)
	}
	if frame[offDataLength] > MaxDataLength {
		return newFrameError(frame, "invalid data length: %d (maximum %d)", frame[offDataLength], MaxDataLength)
	}
	if got, want := frame[offChecksum], FrameChecksum(frame); got != want {
		return newFrameError(frame, "checksum mismatch: 0x%02x (expected 0x%02x)", got, want)
	}
	return nil
}
