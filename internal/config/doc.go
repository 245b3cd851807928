// Package config provides user configuration management for hearthlink.
//
// This package manages a YAML-based configuration file that stores
// user-defined metadata for fireplaces seen on the network, including
// nicknames, last known addresses, favorite settings, and application
// preferences. The configuration follows OS-specific conventions for
// storage location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/hearthlink/config.yaml or $HOME/.config/hearthlink/config.yaml
//   - macOS: $HOME/.config/hearthlink/config.yaml
//   - Windows: %LOCALAPPDATA%\hearthlink\config.yaml
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.SetNickname("123456", "Living Room")
//	registry.UpdateLastSeen("123456", "192.168.1.5")
//
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across
// goroutines. File operations are protected by a mutex and writes are
// atomic (temp file plus rename) to prevent corruption on crash.
package config
