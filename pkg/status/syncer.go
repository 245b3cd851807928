package status

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hearthlink/hearthlink/pkg/dispatch"
	"github.com/hearthlink/hearthlink/pkg/protocol"
)

// DefaultPollInterval is how often the Syncer polls the appliance when
// no explicit refreshes are requested.
const DefaultPollInterval = 30 * time.Second

// subscriberBuffer bounds how many undelivered snapshots a slow
// subscriber may queue before updates are dropped for it.
const subscriberBuffer = 8

// Subscriber is a callback invoked with each published snapshot. It
// runs on a goroutine owned by the Syncer, one per subscription, so
// implementations may block without affecting other subscribers.
type Subscriber func(Snapshot)

// Config holds the tunable parameters for a Syncer.
type Config struct {
	// PollInterval is the period between background polls. Defaults to
	// DefaultPollInterval when zero.
	PollInterval time.Duration

	// Logger receives poll and delivery diagnostics. Defaults to a
	// no-op logger when nil.
	Logger *zap.Logger
}

type subscription struct {
	fn   Subscriber
	ch   chan Snapshot
	done chan struct{}
}

// Syncer maintains the current Snapshot for one appliance and notifies
// subscribers when it changes.
type Syncer struct {
	disp     *dispatch.Dispatcher
	interval time.Duration
	log      *zap.Logger

	mu        sync.Mutex
	current   *Snapshot
	subs      map[uuid.UUID]*subscription
	lastErred bool

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Syncer polling through the given dispatcher. Call
// Start to begin background polling; Refresh works either way.
func New(disp *dispatch.Dispatcher, cfg Config) *Syncer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Syncer{
		disp:     disp,
		interval: cfg.PollInterval,
		log:      cfg.Logger,
		subs:     make(map[uuid.UUID]*subscription),
		stop:     make(chan struct{}),
	}
}

// Start launches the background poll loop. It returns immediately.
func (s *Syncer) Start() {
	go s.pollLoop()
}

// Stop halts background polling and tears down all subscriptions.
// In-flight callback invocations are allowed to finish. Stop is
// idempotent.
func (s *Syncer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)

		s.mu.Lock()
		for id, sub := range s.subs {
			delete(s.subs, id)
			close(sub.ch)
		}
		s.mu.Unlock()
	})
}

func (s *Syncer) pollLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if _, err := s.Refresh(context.Background()); err != nil {
				s.log.Debug("background poll failed", zap.Error(err))
			}
		}
	}
}

// Refresh queries the appliance for its current state, updates the
// held snapshot, and publishes to subscribers if the state changed.
// The first successful refresh after a failed one always publishes,
// so subscribers resync after connection trouble even when the state
// is unchanged.
func (s *Syncer) Refresh(ctx context.Context) (Snapshot, error) {
	resp, err := s.disp.Send(ctx, protocol.Command{ID: protocol.CmdStatusPlease})
	if err != nil {
		s.mu.Lock()
		s.lastErred = true
		s.mu.Unlock()
		return Snapshot{}, err
	}

	snap := newSnapshot(*resp.Status, time.Now())

	s.mu.Lock()
	force := s.lastErred
	s.lastErred = false
	changed := s.current == nil || !s.current.Equal(snap)
	s.current = &snap
	if changed || force {
		for _, sub := range s.subs {
			select {
			case sub.ch <- snap:
			default:
				s.log.Warn("subscriber lagging, dropping status update")
			}
		}
	}
	s.mu.Unlock()

	if changed {
		s.log.Debug("status changed", zap.String("status", snap.String()))
	}
	return snap, nil
}

// Current returns the most recent snapshot, if any poll has succeeded
// yet.
func (s *Syncer) Current() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Snapshot{}, false
	}
	return *s.current, true
}

// Subscribe registers a callback for published snapshots and returns a
// token for Unsubscribe. Each subscriber is serviced by its own
// goroutine: snapshots are delivered in publication order, and a
// subscriber that cannot keep up loses updates rather than stalling
// the poll loop or other subscribers.
func (s *Syncer) Subscribe(fn Subscriber) uuid.UUID {
	sub := &subscription{
		fn:   fn,
		ch:   make(chan Snapshot, subscriberBuffer),
		done: make(chan struct{}),
	}
	id := uuid.New()

	s.mu.Lock()
	s.subs[id] = sub
	s.mu.Unlock()

	go func() {
		defer close(sub.done)
		for snap := range sub.ch {
			sub.fn(snap)
		}
	}()
	return id
}

// Unsubscribe removes a subscription. It waits for any in-flight
// callback to return before doing so; the callback is never invoked
// again afterwards. Unknown tokens are ignored.
func (s *Syncer) Unsubscribe(id uuid.UUID) {
	s.mu.Lock()
	sub, ok := s.subs[id]
	if ok {
		delete(s.subs, id)
		close(sub.ch)
	}
	s.mu.Unlock()

	if ok {
		<-sub.done
	}
}
