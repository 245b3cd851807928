package config

import "time"

// Registry represents the entire user configuration file.
// This stores user-defined metadata for fireplaces and application preferences.
type Registry struct {
	Version     int                   `yaml:"version"`
	Fireplaces  map[string]*Fireplace `yaml:"fireplaces,omitempty"` // Keyed by appliance serial number
	Preferences *Preferences          `yaml:"preferences,omitempty"`
}

// Fireplace represents user-defined metadata for a single appliance.
// This is keyed by the appliance's serial number in the Registry.
type Fireplace struct {
	Nickname  string     `yaml:"nickname,omitempty"`  // User-friendly name (e.g., "Living Room")
	LastIP    string     `yaml:"last_ip,omitempty"`   // Last known IP address
	LastSeen  time.Time  `yaml:"last_seen,omitempty"` // Last discovery/connection time
	Favorites *Favorites `yaml:"favorites,omitempty"` // Preferred settings for quick restore
}

// Favorites holds the user's preferred settings for an appliance.
// This is purely client-side information for quick restore; the
// appliance itself keeps its own last-used state.
type Favorites struct {
	FlameHeight int `yaml:"flame_height"` // Preferred flame height (1-5)
	TargetTemp  int `yaml:"target_temp"`  // Preferred thermostat target in °C
	FanSpeed    int `yaml:"fan_speed"`    // Preferred fan speed (0 = auto)
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	AutoDiscover    bool   `yaml:"auto_discover"`            // Discover on startup when no address is given
	DiscoverTimeout int    `yaml:"discover_timeout"`         // Discovery timeout in seconds
	DefaultSerial   string `yaml:"default_serial,omitempty"` // Appliance used when none is specified
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:    1,
		Fireplaces: make(map[string]*Fireplace),
		Preferences: &Preferences{
			AutoDiscover:    true,
			DiscoverTimeout: 5,
		},
	}
}

// Get retrieves appliance metadata by serial number.
// Returns nil if the appliance doesn't exist in the registry.
func (r *Registry) Get(serial string) *Fireplace {
	return r.Fireplaces[serial]
}

// Ensure ensures an appliance entry exists in the registry.
// Returns the entry (existing or newly created).
func (r *Registry) Ensure(serial string) *Fireplace {
	if r.Fireplaces == nil {
		r.Fireplaces = make(map[string]*Fireplace)
	}

	if fp, exists := r.Fireplaces[serial]; exists {
		return fp
	}

	fp := &Fireplace{}
	r.Fireplaces[serial] = fp
	return fp
}

// UpdateLastSeen updates the last seen timestamp and IP for an appliance.
func (r *Registry) UpdateLastSeen(serial, ip string) {
	fp := r.Ensure(serial)
	fp.LastSeen = time.Now()
	fp.LastIP = ip
}

// SetNickname sets a user-friendly nickname for an appliance.
func (r *Registry) SetNickname(serial, nickname string) {
	fp := r.Ensure(serial)
	fp.Nickname = nickname
}

// SetFavorites records the preferred settings for an appliance.
func (r *Registry) SetFavorites(serial string, flameHeight, targetTemp, fanSpeed int) {
	fp := r.Ensure(serial)
	fp.Favorites = &Favorites{
		FlameHeight: flameHeight,
		TargetTemp:  targetTemp,
		FanSpeed:    fanSpeed,
	}
}

// DisplayName returns the nickname if set, otherwise the serial.
func (r *Registry) DisplayName(serial string) string {
	if fp := r.Get(serial); fp != nil && fp.Nickname != "" {
		return fp.Nickname
	}
	return serial
}
