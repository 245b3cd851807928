// Package fireplace is the high-level entry point for controlling a
// networked fireplace.
//
// Typical usage discovers appliances on the local network, connects to
// one, and then drives it through the Fireplace handle:
//
//	appliances, err := fireplace.Discover(ctx, 5*time.Second)
//	if err != nil || len(appliances) == 0 {
//		// nothing found
//	}
//	fp, err := fireplace.Connect(ctx, appliances[0], fireplace.Config{})
//	if err != nil {
//		// appliance unreachable
//	}
//	defer fp.Close()
//
//	fp.Subscribe(func(s status.Snapshot) { log.Println(s) })
//	fp.TurnOn(ctx)
//	fp.SetFlameHeight(ctx, 3)
//
// A Fireplace owns its connection, command dispatcher, and status
// synchronizer; Close releases all of them. Every mutating call
// refreshes the status afterwards, so subscribers observe the effect
// of their own commands without waiting for the next background poll.
package fireplace
