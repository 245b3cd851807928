package fireplace

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hearthlink/hearthlink/pkg/connection"
	"github.com/hearthlink/hearthlink/pkg/discovery"
	"github.com/hearthlink/hearthlink/pkg/dispatch"
	"github.com/hearthlink/hearthlink/pkg/protocol"
	"github.com/hearthlink/hearthlink/pkg/status"
)

// Config collects the tunable parameters for a Fireplace. The zero
// value selects sensible defaults throughout.
type Config struct {
	// ConnectTimeout bounds the initial dial. Defaults to
	// connection.DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// CommandTimeout bounds each command attempt. Defaults to
	// dispatch.DefaultCommandTimeout.
	CommandTimeout time.Duration

	// MaxAttempts is how many times a command is tried before giving
	// up. Defaults to dispatch.DefaultMaxAttempts.
	MaxAttempts int

	// PollInterval is the background status poll period. Defaults to
	// status.DefaultPollInterval.
	PollInterval time.Duration

	// Logger receives diagnostics from all layers. Defaults to a
	// no-op logger.
	Logger *zap.Logger
}

// Fireplace is a connected appliance. All methods are safe for
// concurrent use; commands from concurrent callers are serialized on
// the wire in arrival order.
type Fireplace struct {
	appliance discovery.Appliance
	disp      *dispatch.Dispatcher
	syncer    *status.Syncer
	log       *zap.Logger
}

// Discover scans the local network for appliances, collecting replies
// until the timeout elapses. An empty result is not an error.
func Discover(ctx context.Context, timeout time.Duration) ([]discovery.Appliance, error) {
	return discovery.Discover(ctx, timeout)
}

// Connect dials the appliance, verifies it responds to a status query,
// and starts background status polling. The returned Fireplace must be
// closed when no longer needed.
func Connect(ctx context.Context, appliance discovery.Appliance, cfg Config) (*Fireplace, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	log := cfg.Logger.With(zap.Uint32("serial", appliance.Serial))

	conn := connection.New(appliance.UDPAddr(), connection.Config{
		ConnectTimeout: cfg.ConnectTimeout,
		Logger:         log,
	})
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", appliance, err)
	}

	disp := dispatch.New(conn, dispatch.Config{
		CommandTimeout: cfg.CommandTimeout,
		MaxAttempts:    cfg.MaxAttempts,
		Logger:         log,
	})
	syncer := status.New(disp, status.Config{
		PollInterval: cfg.PollInterval,
		Logger:       log,
	})

	// An appliance that was discovered moments ago can still have
	// dropped off the network; the initial poll proves it is live
	// before we hand out a handle.
	if _, err := syncer.Refresh(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initial status query for %s: %w", appliance, err)
	}
	syncer.Start()

	log.Info("connected to fireplace", zap.String("addr", appliance.Addr()))
	return &Fireplace{
		appliance: appliance,
		disp:      disp,
		syncer:    syncer,
		log:       log,
	}, nil
}

// Appliance returns the discovery record this Fireplace was built
// from.
func (f *Fireplace) Appliance() discovery.Appliance {
	return f.appliance
}

// Status returns the most recently observed snapshot. The boolean is
// false only before the first successful poll, which Connect performs,
// so it is true for the lifetime of a connected Fireplace.
func (f *Fireplace) Status() (status.Snapshot, bool) {
	return f.syncer.Current()
}

// Refresh polls the appliance immediately and returns the fresh
// snapshot.
func (f *Fireplace) Refresh(ctx context.Context) (status.Snapshot, error) {
	return f.syncer.Refresh(ctx)
}

// Subscribe registers a callback invoked whenever the appliance state
// changes. The returned token is passed to Unsubscribe.
func (f *Fireplace) Subscribe(fn status.Subscriber) uuid.UUID {
	return f.syncer.Subscribe(fn)
}

// Unsubscribe cancels a subscription created with Subscribe.
func (f *Fireplace) Unsubscribe(id uuid.UUID) {
	f.syncer.Unsubscribe(id)
}

// TurnOn starts the fire.
func (f *Fireplace) TurnOn(ctx context.Context) error {
	return f.command(ctx, protocol.Command{ID: protocol.CmdPowerOn})
}

// TurnOff shuts the fire down.
func (f *Fireplace) TurnOff(ctx context.Context) error {
	return f.command(ctx, protocol.Command{ID: protocol.CmdPowerOff})
}

// SetFlameHeight sets the flame height, 1 (lowest) through 5.
func (f *Fireplace) SetFlameHeight(ctx context.Context, height int) error {
	return f.command(ctx, protocol.Command{ID: protocol.CmdSetFlameHeight, Value: height})
}

// SetFanSpeed sets the fan speed, 0 (auto) through 3.
func (f *Fireplace) SetFanSpeed(ctx context.Context, speed int) error {
	return f.command(ctx, protocol.Command{ID: protocol.CmdSetFanSpeed, Value: speed})
}

// SetTargetTemp sets the thermostat target in whole degrees Celsius,
// 4 through 30.
func (f *Fireplace) SetTargetTemp(ctx context.Context, degrees int) error {
	return f.command(ctx, protocol.Command{ID: protocol.CmdNewSetTemp, Value: degrees})
}

// SetFanBoost switches the fan boost program on or off.
func (f *Fireplace) SetFanBoost(ctx context.Context, on bool) error {
	id := protocol.CmdFanBoostOff
	if on {
		id = protocol.CmdFanBoostOn
	}
	return f.command(ctx, protocol.Command{ID: id})
}

// SetFlameEffect switches the flame effect program on or off.
func (f *Fireplace) SetFlameEffect(ctx context.Context, on bool) error {
	id := protocol.CmdFlameEffectOff
	if on {
		id = protocol.CmdFlameEffectOn
	}
	return f.command(ctx, protocol.Command{ID: id})
}

// command sends a mutating command and then refreshes the status so
// subscribers see the effect immediately. A refresh failure after a
// successful command is logged but not surfaced; the background poll
// will catch the state up.
func (f *Fireplace) command(ctx context.Context, cmd protocol.Command) error {
	if _, err := f.disp.Send(ctx, cmd); err != nil {
		return err
	}
	if _, err := f.syncer.Refresh(ctx); err != nil {
		f.log.Warn("status refresh after command failed",
			zap.String("command", cmd.ID.String()), zap.Error(err))
	}
	return nil
}

// Close stops background polling, tears down all subscriptions, and
// releases the connection. Close is idempotent; all methods fail after
// it returns.
func (f *Fireplace) Close() error {
	f.syncer.Stop()
	return f.disp.Connection().Close()
}
