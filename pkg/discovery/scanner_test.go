package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hearthlink/hearthlink/internal/firetest"
	"github.com/hearthlink/hearthlink/pkg/protocol"
)

// loopbackScanner points a scanner at a fake appliance's port instead of
// the real broadcast address.
func loopbackScanner(port int, timeout time.Duration) *Scanner {
	s := NewScanner()
	s.BroadcastAddr = net.IPv4(127, 0, 0, 1)
	s.Port = port
	s.Timeout = timeout
	return s
}

func TestDiscover_FindsAppliance(t *testing.T) {
	fake := firetest.New(t, 1111)

	s := loopbackScanner(fake.Addr().Port, 500*time.Millisecond)
	appliances, err := s.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if len(appliances) != 1 {
		t.Fatalf("found %d appliances, want 1", len(appliances))
	}
	got := appliances[0]
	if got.Serial != 1111 {
		t.Errorf("Serial = %d, want 1111", got.Serial)
	}
	if got.UID() != "1111" {
		t.Errorf("UID() = %q, want %q", got.UID(), "1111")
	}
	if got.PIN != 9999 {
		t.Errorf("PIN = %d, want 9999", got.PIN)
	}
	if !got.IP.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Errorf("IP = %v, want 127.0.0.1", got.IP)
	}
}

func TestDiscover_NoAppliances(t *testing.T) {
	// Probe a port nobody listens on; no replies is not an error
	s := loopbackScanner(40000, 200*time.Millisecond)

	start := time.Now()
	appliances, err := s.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(appliances) != 0 {
		t.Errorf("found %d appliances, want 0", len(appliances))
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("scan returned after %v, want full %v window", elapsed, 200*time.Millisecond)
	}
}

func TestScan_StreamClosesAtTimeout(t *testing.T) {
	fake := firetest.New(t, 2222)

	s := loopbackScanner(fake.Addr().Port, 300*time.Millisecond)
	stream, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	var got []uint32
	deadline := time.After(2 * time.Second)
	for {
		select {
		case appliance, ok := <-stream:
			if !ok {
				if len(got) != 1 || got[0] != 2222 {
					t.Errorf("stream yielded %v, want [2222]", got)
				}
				return
			}
			got = append(got, appliance.Serial)
		case <-deadline:
			t.Fatal("stream did not close at timeout")
		}
	}
}

func TestScan_ContextCancellation(t *testing.T) {
	s := loopbackScanner(40001, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := s.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	cancel()

	select {
	case _, ok := <-stream:
		if ok {
			t.Error("received appliance after cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("stream did not close after cancellation")
	}
}

// rawResponder answers a single probe with a fixed sequence of frames,
// so reply ordering and duplicate handling can be exercised.
func rawResponder(t *testing.T, frames [][]byte) *net.UDPAddr {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 64)
		_, remote, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		for _, frame := range frames {
			_, _ = conn.WriteToUDP(frame, remote)
			time.Sleep(10 * time.Millisecond)
		}
	}()
	return conn.LocalAddr().(*net.UDPAddr)
}

func TestDiscover_DeduplicatesAndPreservesOrder(t *testing.T) {
	frameA := identityFrame(t, 1000)
	frameB := identityFrame(t, 2000)

	// A replies twice; the second reply must be ignored, order kept
	addr := rawResponder(t, [][]byte{frameA, frameA, frameB})

	s := loopbackScanner(addr.Port, 500*time.Millisecond)
	appliances, err := s.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if len(appliances) != 2 {
		t.Fatalf("found %d appliances, want 2", len(appliances))
	}
	if appliances[0].Serial != 1000 || appliances[1].Serial != 2000 {
		t.Errorf("order = [%d, %d], want [1000, 2000]",
			appliances[0].Serial, appliances[1].Serial)
	}
}

func TestDiscover_IgnoresCorruptReplies(t *testing.T) {
	good := identityFrame(t, 3000)
	bad := identityFrame(t, 4000)
	bad[13] ^= 0xFF // checksum corruption

	addr := rawResponder(t, [][]byte{bad, good})

	s := loopbackScanner(addr.Port, 500*time.Millisecond)
	appliances, err := s.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if len(appliances) != 1 || appliances[0].Serial != 3000 {
		t.Errorf("appliances = %v, want only serial 3000", appliances)
	}
}

func identityFrame(t *testing.T, serial uint32) []byte {
	t.Helper()
	frame, err := protocol.EncodeResponse(protocol.Response{
		ID:       protocol.RespIAmAFire,
		Identity: &protocol.Identity{Serial: serial, PIN: 1234},
	})
	if err != nil {
		t.Fatalf("EncodeResponse() error = %v", err)
	}
	return frame
}

func TestAppliance_Addr(t *testing.T) {
	a := Appliance{IP: net.IPv4(192, 168, 1, 5), Port: 3300, Serial: 123456}
	if got, want := a.Addr(), "192.168.1.5:3300"; got != want {
		t.Errorf("Addr() = %q, want %q", got, want)
	}
	if got, want := a.String(), "Fireplace 123456 at 192.168.1.5:3300"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
