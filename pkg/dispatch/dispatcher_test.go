package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/hearthlink/hearthlink/internal/firetest"
	"github.com/hearthlink/hearthlink/pkg/connection"
	"github.com/hearthlink/hearthlink/pkg/protocol"
)

func newDispatcher(t *testing.T, fake *firetest.Appliance, cfg Config) *Dispatcher {
	t.Helper()
	conn := connection.New(fake.Addr(), connection.Config{})
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return New(conn, cfg)
}

func TestSend_StatusRoundTrip(t *testing.T) {
	fake := firetest.New(t, 1234)
	d := newDispatcher(t, fake, Config{})

	resp, err := d.Send(context.Background(), protocol.Command{ID: protocol.CmdStatusPlease})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.ID != protocol.RespStatus {
		t.Errorf("response ID = %s, want Status", resp.ID)
	}
	if resp.Status == nil {
		t.Fatal("Status payload is nil")
	}
}

func TestSend_InvalidCommandNoNetworkWrites(t *testing.T) {
	fake := firetest.New(t, 1234)
	d := newDispatcher(t, fake, Config{})

	for _, value := range []int{0, 6, -1, 100} {
		_, err := d.Send(context.Background(),
			protocol.Command{ID: protocol.CmdSetFlameHeight, Value: value})
		if !errors.Is(err, protocol.ErrInvalidCommand) {
			t.Errorf("Send(height=%d) error = %v, want ErrInvalidCommand", value, err)
		}
	}

	// Give any stray datagram time to land, then check nothing was sent
	time.Sleep(100 * time.Millisecond)
	if got := fake.Received(); len(got) != 0 {
		t.Errorf("appliance received %d frames, want 0", len(got))
	}
}

func TestSend_TimeoutAfterMaxAttempts(t *testing.T) {
	fake := firetest.New(t, 1234)
	fake.DropRequests(99)

	d := newDispatcher(t, fake, Config{
		CommandTimeout: 100 * time.Millisecond,
		MaxAttempts:    3,
	})

	_, err := d.Send(context.Background(), protocol.Command{ID: protocol.CmdPowerOn})
	if !errors.Is(err, ErrCommandTimeout) {
		t.Fatalf("Send() error = %v, want ErrCommandTimeout", err)
	}

	if got := len(fake.Received()); got != 3 {
		t.Errorf("appliance received %d frames, want 3 (one per attempt)", got)
	}

	// A timeout alone must not tear down the connection
	if got := d.Connection().State(); got != connection.StateConnected {
		t.Errorf("connection state = %s, want connected", got)
	}
}

func TestSend_MalformedRepliesRetried(t *testing.T) {
	fake := firetest.New(t, 1234)
	fake.CorruptReplies(2)

	d := newDispatcher(t, fake, Config{
		CommandTimeout: 200 * time.Millisecond,
		MaxAttempts:    3,
	})

	resp, err := d.Send(context.Background(), protocol.Command{ID: protocol.CmdStatusPlease})
	if err != nil {
		t.Fatalf("Send() error = %v (two corrupt replies should be absorbed)", err)
	}
	if resp.ID != protocol.RespStatus {
		t.Errorf("response ID = %s, want Status", resp.ID)
	}
	if got := len(fake.Received()); got != 3 {
		t.Errorf("appliance received %d frames, want 3", got)
	}
}

func TestSend_MalformedRepliesExhaustAttempts(t *testing.T) {
	fake := firetest.New(t, 1234)
	fake.CorruptReplies(99)

	d := newDispatcher(t, fake, Config{
		CommandTimeout: 200 * time.Millisecond,
		MaxAttempts:    2,
	})

	_, err := d.Send(context.Background(), protocol.Command{ID: protocol.CmdStatusPlease})
	if !errors.Is(err, ErrCommandTimeout) {
		t.Errorf("Send() error = %v, want ErrCommandTimeout", err)
	}
}

func TestSend_RejectedNotRetried(t *testing.T) {
	fake := firetest.New(t, 1234)
	fake.RejectRequests(1, 0x02)

	d := newDispatcher(t, fake, Config{CommandTimeout: 200 * time.Millisecond})

	_, err := d.Send(context.Background(), protocol.Command{ID: protocol.CmdPowerOn})
	if !errors.Is(err, ErrCommandRejected) {
		t.Fatalf("Send() error = %v, want ErrCommandRejected", err)
	}
	if got := len(fake.Received()); got != 1 {
		t.Errorf("appliance received %d frames, want 1 (rejections are final)", got)
	}
}

func TestSend_RecoversAfterTransientFailure(t *testing.T) {
	fake := firetest.New(t, 1234)
	d := newDispatcher(t, fake, Config{})

	// Simulate a transient transport failure between commands
	d.Connection().MarkFailed(errors.New("simulated failure"))

	resp, err := d.Send(context.Background(), protocol.Command{ID: protocol.CmdPowerOn})
	if err != nil {
		t.Fatalf("Send() after transient failure error = %v", err)
	}
	if resp.ID != protocol.RespPowerOnAck {
		t.Errorf("response ID = %s, want PowerOnAck", resp.ID)
	}
	if got := d.Connection().State(); got != connection.StateConnected {
		t.Errorf("connection state = %s, want connected", got)
	}
}

func TestSend_AfterCloseFails(t *testing.T) {
	fake := firetest.New(t, 1234)
	d := newDispatcher(t, fake, Config{})

	d.Connection().Close()

	_, err := d.Send(context.Background(), protocol.Command{ID: protocol.CmdPowerOn})
	if !errors.Is(err, connection.ErrClosed) {
		t.Errorf("Send() error = %v, want ErrClosed", err)
	}
}

func TestSend_CloseCancelsInFlightWait(t *testing.T) {
	fake := firetest.New(t, 1234)
	fake.DropRequests(99)

	d := newDispatcher(t, fake, Config{
		CommandTimeout: 10 * time.Second, // would block for ages without cancellation
		MaxAttempts:    3,
	})

	done := make(chan error, 1)
	go func() {
		_, err := d.Send(context.Background(), protocol.Command{ID: protocol.CmdPowerOn})
		done <- err
	}()

	time.Sleep(100 * time.Millisecond)
	d.Connection().Close()

	select {
	case err := <-done:
		if !errors.Is(err, connection.ErrClosed) {
			t.Errorf("Send() error = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Send() did not unblock on Close")
	}
}

func TestSend_QueuedCallerHonorsContext(t *testing.T) {
	fake := firetest.New(t, 1234)
	fake.DropRequests(99)

	d := newDispatcher(t, fake, Config{
		CommandTimeout: 2 * time.Second,
		MaxAttempts:    1,
	})

	// Occupy the slot with a command that will sit in its timeout
	go func() {
		_, _ = d.Send(context.Background(), protocol.Command{ID: protocol.CmdPowerOn})
	}()
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := d.Send(ctx, protocol.Command{ID: protocol.CmdPowerOff})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("queued Send() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestSend_SerializesConcurrentCallers(t *testing.T) {
	fake := firetest.New(t, 1234)
	d := newDispatcher(t, fake, Config{CommandTimeout: time.Second})

	// Stagger the submissions so the FIFO queue order is deterministic
	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = d.Send(context.Background(),
				protocol.Command{ID: protocol.CmdSetFlameHeight, Value: i%protocol.MaxFlameHeight + 1})
		}(i)
		time.Sleep(50 * time.Millisecond)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Send(%d) error = %v", i, err)
		}
	}

	received := fake.Received()
	if len(received) != n {
		t.Fatalf("appliance received %d frames, want %d", len(received), n)
	}
	for i, cmd := range received {
		want := i%protocol.MaxFlameHeight + 1
		if cmd.ID != protocol.CmdSetFlameHeight || cmd.Value != want {
			t.Errorf("frame %d = %s(%d), want SetFlameHeight(%d)", i, cmd.ID, cmd.Value, want)
		}
	}
}

// strayResponder answers a status request with an unrelated frame first,
// then the real status, exercising stray discard within one attempt.
func TestSend_DiscardsStrayResponses(t *testing.T) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer conn.Close()

	go func() {
		buf := make([]byte, 64)
		for {
			_, remote, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			stray, _ := protocol.EncodeResponse(protocol.Response{
				ID:       protocol.RespIAmAFire,
				Identity: &protocol.Identity{Serial: 42, PIN: 1},
			})
			status, _ := protocol.EncodeResponse(protocol.Response{
				ID:     protocol.RespStatus,
				Status: &protocol.StatusData{FireOn: true, FlameHeight: 2},
			})
			_, _ = conn.WriteToUDP(stray, remote)
			_, _ = conn.WriteToUDP(status, remote)
		}
	}()

	c := connection.New(conn.LocalAddr().(*net.UDPAddr), connection.Config{})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	d := New(c, Config{CommandTimeout: time.Second, MaxAttempts: 1})
	resp, err := d.Send(context.Background(), protocol.Command{ID: protocol.CmdStatusPlease})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.ID != protocol.RespStatus {
		t.Errorf("response ID = %s, want Status (stray should be discarded)", resp.ID)
	}
	if !resp.Status.FireOn || resp.Status.FlameHeight != 2 {
		t.Errorf("Status = %+v, want FireOn=true FlameHeight=2", resp.Status)
	}
}

func ExampleDispatcher_Send() {
	// Error handling elided for brevity
	addr, _ := net.ResolveUDPAddr("udp4", "192.168.1.50:3300")
	conn := connection.New(addr, connection.Config{})
	_ = conn.Connect(context.Background())
	defer conn.Close()

	d := New(conn, Config{})
	resp, err := d.Send(context.Background(), protocol.Command{ID: protocol.CmdStatusPlease})
	if err == nil {
		fmt.Println(resp.Status.FireOn)
	}
}
