package protocol

import (
	"encoding/hex"
	"fmt"
)

// newFrameError builds a decode error carrying the offending frame as hex.
// All decode errors wrap ErrMalformedFrame so callers can match with
// errors.Is and apply their retry policy.
func newFrameError(frame []byte, format string, args ...interface{}) error {
	detail := fmt.Sprintf(format, args...)
	return fmt.Errorf("%w: %s (frame %s)", ErrMalformedFrame, detail, hex.EncodeToString(frame))
}

// newCommandError builds an encode-side validation error wrapping
// ErrInvalidCommand.
func newCommandError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidCommand, fmt.Sprintf(format, args...))
}
