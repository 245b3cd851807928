package status

import (
	"fmt"
	"time"

	"github.com/hearthlink/hearthlink/pkg/protocol"
)

// FanMode describes which of the mutually exclusive fan programs the
// appliance is running.
type FanMode int

const (
	// FanAuto lets the appliance drive the fan from the thermostat.
	FanAuto FanMode = iota
	// FanBoost runs the fan at full speed regardless of temperature.
	FanBoost
	// FlameEffect idles the fan so the flame display dominates.
	FlameEffect
)

// String returns a human-readable name for the fan mode.
func (m FanMode) String() string {
	switch m {
	case FanAuto:
		return "auto"
	case FanBoost:
		return "boost"
	case FlameEffect:
		return "flame effect"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// Snapshot is an immutable view of the appliance state at one point in
// time. A new Snapshot replaces the previous one wholesale; callers can
// hold on to a Snapshot without synchronization.
type Snapshot struct {
	// On reports whether the fire is burning.
	On bool
	// FanBoostOn and FlameEffectOn mirror the raw mode flags; Mode is
	// the derived single-valued view most callers want.
	FanBoostOn    bool
	FlameEffectOn bool
	Mode          FanMode
	// TargetTemp and RoomTemp are in whole degrees Celsius.
	TargetTemp int
	RoomTemp   int
	// FlameHeight is 1 (lowest) through 5 (highest).
	FlameHeight int
	// FanSpeed is 0 (auto) through 3 (highest fixed speed).
	FanSpeed int
	// HasNewTimers reports that the appliance has timer programs the
	// controller has not fetched.
	HasNewTimers bool
	// FaultFlags is the raw fault bitmask; zero means no fault.
	FaultFlags byte
	// UpdatedAt is when this snapshot was read from the appliance.
	UpdatedAt time.Time
}

// newSnapshot builds a Snapshot from decoded status data, deriving the
// single-valued fan mode from the boost and effect flags. Boost wins if
// the appliance ever reports both set.
func newSnapshot(d protocol.StatusData, at time.Time) Snapshot {
	mode := FanAuto
	switch {
	case d.FanBoostOn:
		mode = FanBoost
	case d.FlameEffectOn:
		mode = FlameEffect
	}
	return Snapshot{
		On:            d.FireOn,
		FanBoostOn:    d.FanBoostOn,
		FlameEffectOn: d.FlameEffectOn,
		Mode:          mode,
		TargetTemp:    d.TargetTemp,
		RoomTemp:      d.RoomTemp,
		FlameHeight:   d.FlameHeight,
		FanSpeed:      d.FanSpeed,
		HasNewTimers:  d.HasNewTimers,
		FaultFlags:    d.FaultFlags,
		UpdatedAt:     at,
	}
}

// Equal reports whether two snapshots describe the same appliance
// state. The read timestamp is ignored: two polls that observe the
// same state are equal.
func (s Snapshot) Equal(other Snapshot) bool {
	s.UpdatedAt = time.Time{}
	other.UpdatedAt = time.Time{}
	return s == other
}

// HasFault reports whether the appliance is flagging any fault.
func (s Snapshot) HasFault() bool {
	return s.FaultFlags != 0
}

// String returns a compact one-line summary of the snapshot.
func (s Snapshot) String() string {
	power := "off"
	if s.On {
		power = "on"
	}
	return fmt.Sprintf("%s, flame %d, fan %s, target %d°C, room %d°C",
		power, s.FlameHeight, s.Mode, s.TargetTemp, s.RoomTemp)
}
