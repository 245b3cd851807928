package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hearthlink/hearthlink/internal/config"
	"github.com/hearthlink/hearthlink/internal/logging"
	"github.com/hearthlink/hearthlink/pkg/discovery"
	"github.com/hearthlink/hearthlink/pkg/fireplace"
	"github.com/hearthlink/hearthlink/pkg/protocol"
	"github.com/hearthlink/hearthlink/pkg/status"
)

// Command flags
var (
	applianceIP   string
	appliancePort int
	scanTimeout   int
)

func init() {
	// Common flags for appliance commands (persistent on root)
	rootCmd.PersistentFlags().StringVar(&applianceIP, "appliance", "", "Appliance IP address (skips discovery)")
	rootCmd.PersistentFlags().IntVar(&appliancePort, "port", protocol.UDPPort, "Appliance UDP port")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(flameCmd)
	rootCmd.AddCommand(fanCmd)
	rootCmd.AddCommand(tempCmd)
	rootCmd.AddCommand(boostCmd)
	rootCmd.AddCommand(effectCmd)
	rootCmd.AddCommand(nicknameCmd)
	rootCmd.AddCommand(watchCmd)
}

// scanCmd discovers appliances on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for fireplaces on the network",
	Long: `Scan for fireplaces using UDP broadcast discovery.

This command broadcasts a search probe and displays every appliance
that replies, with its serial number, IP address, and access PIN.
Discovered appliances are remembered in the local configuration file.`,
	Example: `  # Scan for 5 seconds (default)
  hearthctl scan

  # Longer scan for slower networks
  hearthctl scan --timeout 15`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for fireplaces (timeout: %ds)...\n\n", scanTimeout)

	appliances, err := fireplace.Discover(context.Background(),
		time.Duration(scanTimeout)*time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(appliances) == 0 {
		fmt.Println("No fireplaces found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the fireplace is powered on and connected to WiFi")
		fmt.Println("  - Check that your computer is on the same network segment")
		fmt.Println("  - Some networks block UDP broadcast; try --appliance with the IP")
		fmt.Println("  - Try increasing --timeout for slower networks")
		return nil
	}

	registry, regErr := config.LoadRegistry()

	fmt.Printf("Found %d fireplace(s):\n\n", len(appliances))
	for i, appliance := range appliances {
		serial := strconv.FormatUint(uint64(appliance.Serial), 10)
		name := serial
		if regErr == nil {
			name = registry.DisplayName(serial)
			registry.UpdateLastSeen(serial, appliance.IP.String())
		}
		fmt.Printf("%d. %s\n", i+1, name)
		fmt.Printf("   Serial: %s\n", serial)
		fmt.Printf("   IP:     %s:%d\n", appliance.IP, appliance.Port)
		fmt.Printf("   PIN:    %04d\n", appliance.PIN)
		fmt.Println()
	}

	if regErr == nil {
		if err := registry.Save(); err != nil {
			fmt.Printf("Warning: could not update config: %v\n", err)
		}
	}

	fmt.Println("Use 'hearthctl status --appliance <ip>' to query an appliance")
	fmt.Println("Use 'hearthctl nickname <serial> <name>' to name one")

	return nil
}

// statusCmd queries and displays the appliance state
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show fireplace status",
	Long: `Query a fireplace and display its current state: power, flame
height, fan mode and speed, thermostat target, and room temperature.`,
	Example: `  # Status with auto-discovery
  hearthctl status

  # Status of a specific appliance
  hearthctl status --appliance 192.168.1.5`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	fp, err := connectAppliance()
	if err != nil {
		return err
	}
	defer fp.Close()

	snap, ok := fp.Status()
	if !ok {
		return fmt.Errorf("no status available")
	}
	printStatus(fp.Appliance(), snap)
	return nil
}

var onCmd = &cobra.Command{
	Use:   "on",
	Short: "Turn the fire on",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimple(func(ctx context.Context, fp *fireplace.Fireplace) error {
			return fp.TurnOn(ctx)
		}, "Fire is on.")
	},
}

var offCmd = &cobra.Command{
	Use:   "off",
	Short: "Turn the fire off",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimple(func(ctx context.Context, fp *fireplace.Fireplace) error {
			return fp.TurnOff(ctx)
		}, "Fire is off.")
	},
}

var flameCmd = &cobra.Command{
	Use:   "flame <height>",
	Short: "Set flame height (1-5)",
	Example: `  # Maximum flame
  hearthctl flame 5

  # Lowest flame
  hearthctl flame 1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		height, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid flame height: %w", err)
		}
		return runSimple(func(ctx context.Context, fp *fireplace.Fireplace) error {
			return fp.SetFlameHeight(ctx, height)
		}, fmt.Sprintf("Flame height set to %d.", height))
	},
}

var fanCmd = &cobra.Command{
	Use:   "fan <speed>",
	Short: "Set fan speed (0 = auto, 1-3 fixed)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		speed, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid fan speed: %w", err)
		}
		return runSimple(func(ctx context.Context, fp *fireplace.Fireplace) error {
			return fp.SetFanSpeed(ctx, speed)
		}, fmt.Sprintf("Fan speed set to %d.", speed))
	},
}

var tempCmd = &cobra.Command{
	Use:   "temp <degrees>",
	Short: "Set thermostat target in °C (4-30)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		degrees, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid temperature: %w", err)
		}
		return runSimple(func(ctx context.Context, fp *fireplace.Fireplace) error {
			return fp.SetTargetTemp(ctx, degrees)
		}, fmt.Sprintf("Target temperature set to %d°C.", degrees))
	},
}

var boostCmd = &cobra.Command{
	Use:   "boost <on|off>",
	Short: "Switch fan boost on or off",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseOnOff(args[0])
		if err != nil {
			return fmt.Errorf("invalid boost value: %w", err)
		}
		return runSimple(func(ctx context.Context, fp *fireplace.Fireplace) error {
			return fp.SetFanBoost(ctx, on)
		}, fmt.Sprintf("Fan boost %s.", onOff(on)))
	},
}

var effectCmd = &cobra.Command{
	Use:   "effect <on|off>",
	Short: "Switch flame effect on or off",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseOnOff(args[0])
		if err != nil {
			return fmt.Errorf("invalid effect value: %w", err)
		}
		return runSimple(func(ctx context.Context, fp *fireplace.Fireplace) error {
			return fp.SetFlameEffect(ctx, on)
		}, fmt.Sprintf("Flame effect %s.", onOff(on)))
	},
}

// nicknameCmd names an appliance in the local config
var nicknameCmd = &cobra.Command{
	Use:   "nickname <serial> <name>",
	Short: "Give an appliance a friendly name",
	Example: `  hearthctl nickname 123456 "Living Room"`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		registry.SetNickname(args[0], args[1])
		if err := registry.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Printf("Appliance %s is now %q.\n", args[0], args[1])
		return nil
	},
}

// watchCmd streams status changes until interrupted
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream status changes as they happen",
	Long: `Connect to a fireplace and print its status every time it changes.
Runs until interrupted with Ctrl-C.`,
	Example: `  hearthctl watch --appliance 192.168.1.5`,
	RunE:    runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	fp, err := connectAppliance()
	if err != nil {
		return err
	}
	defer fp.Close()

	if snap, ok := fp.Status(); ok {
		fmt.Printf("%s  %s\n", snap.UpdatedAt.Format("15:04:05"), snap)
	}

	fp.Subscribe(func(snap status.Snapshot) {
		fmt.Printf("%s  %s\n", snap.UpdatedAt.Format("15:04:05"), snap)
	})

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	fmt.Println("\nStopped.")
	return nil
}

// runSimple connects, runs one command, and prints a confirmation.
func runSimple(fn func(context.Context, *fireplace.Fireplace) error, done string) error {
	fp, err := connectAppliance()
	if err != nil {
		return err
	}
	defer fp.Close()

	if err := fn(context.Background(), fp); err != nil {
		return err
	}
	fmt.Println(done)
	return nil
}

// connectAppliance resolves the target appliance (flag, or discovery)
// and returns a connected handle.
func connectAppliance() (*fireplace.Fireplace, error) {
	appliance, err := getAppliance()
	if err != nil {
		return nil, err
	}

	fp, err := fireplace.Connect(context.Background(), appliance, fireplace.Config{
		Logger: logging.GetLogger(),
	})
	if err != nil {
		return nil, err
	}
	return fp, nil
}

// getAppliance picks the target appliance. An explicit --appliance flag
// wins; otherwise the network is scanned and the configured default (or
// the only result) is used.
func getAppliance() (discovery.Appliance, error) {
	if applianceIP != "" {
		ip := net.ParseIP(applianceIP)
		if ip == nil {
			return discovery.Appliance{}, fmt.Errorf("invalid appliance IP: %q", applianceIP)
		}
		return discovery.Appliance{IP: ip, Port: appliancePort}, nil
	}

	timeout := 5 * time.Second
	defaultSerial := ""
	registry, regErr := config.LoadRegistry()
	if regErr == nil && registry.Preferences != nil {
		if !registry.Preferences.AutoDiscover {
			return discovery.Appliance{}, fmt.Errorf(
				"auto-discovery is disabled in config. Use --appliance to specify an IP")
		}
		if registry.Preferences.DiscoverTimeout > 0 {
			timeout = time.Duration(registry.Preferences.DiscoverTimeout) * time.Second
		}
		defaultSerial = registry.Preferences.DefaultSerial
	}

	fmt.Println("No appliance specified, attempting auto-discovery...")
	appliances, err := fireplace.Discover(context.Background(), timeout)
	if err != nil {
		return discovery.Appliance{}, fmt.Errorf("discovery failed: %w", err)
	}
	if len(appliances) == 0 {
		return discovery.Appliance{}, fmt.Errorf(
			"no fireplaces found. Use --appliance to specify an IP manually")
	}

	if len(appliances) > 1 {
		for _, appliance := range appliances {
			if strconv.FormatUint(uint64(appliance.Serial), 10) == defaultSerial {
				return appliance, nil
			}
		}
		fmt.Printf("Found %d fireplaces, using the first. ", len(appliances))
		fmt.Println("Set preferences.default_serial in the config to choose another.")
	}
	return appliances[0], nil
}

func printStatus(appliance discovery.Appliance, snap status.Snapshot) {
	name := strconv.FormatUint(uint64(appliance.Serial), 10)
	if registry, err := config.LoadRegistry(); err == nil && appliance.Serial != 0 {
		name = registry.DisplayName(name)
	}

	fmt.Printf("Fireplace %s (%s)\n\n", name, appliance.Addr())
	fmt.Printf("  Power:        %s\n", onOff(snap.On))
	fmt.Printf("  Flame height: %d\n", snap.FlameHeight)
	fmt.Printf("  Fan mode:     %s\n", snap.Mode)
	fmt.Printf("  Fan speed:    %d\n", snap.FanSpeed)
	fmt.Printf("  Target temp:  %d°C\n", snap.TargetTemp)
	fmt.Printf("  Room temp:    %d°C\n", snap.RoomTemp)
	if snap.HasFault() {
		fmt.Printf("  Fault flags:  0x%02X\n", snap.FaultFlags)
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// parseOnOff accepts "on"/"off" as well as the usual boolean spellings.
func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	on, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%q is not on/off", s)
	}
	return on, nil
}
