package protocol

import (
	"errors"
	"testing"
)

func validStatusFrame(t *testing.T, data StatusData) []byte {
	t.Helper()
	frame, err := EncodeResponse(Response{ID: RespStatus, Status: &data})
	if err != nil {
		t.Fatalf("EncodeResponse() error = %v", err)
	}
	return frame
}

func TestParseResponse_Status(t *testing.T) {
	want := StatusData{
		FireOn:      true,
		TargetTemp:  22,
		RoomTemp:    19,
		FlameHeight: 3,
		FanSpeed:    2,
	}
	frame := validStatusFrame(t, want)

	resp, err := ParseResponse(frame)
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if resp.ID != RespStatus {
		t.Errorf("ID = %s, want Status", resp.ID)
	}
	if resp.Status == nil {
		t.Fatal("Status payload is nil")
	}
	if *resp.Status != want {
		t.Errorf("Status = %+v, want %+v", *resp.Status, want)
	}
}

func TestParseResponse_Identity(t *testing.T) {
	frame, err := EncodeResponse(Response{
		ID:       RespIAmAFire,
		Identity: &Identity{Serial: 0x00BC614E, PIN: 9999},
	})
	if err != nil {
		t.Fatalf("EncodeResponse() error = %v", err)
	}

	resp, err := ParseResponse(frame)
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if resp.Identity == nil {
		t.Fatal("Identity payload is nil")
	}
	if resp.Identity.Serial != 0x00BC614E {
		t.Errorf("Serial = %d, want %d", resp.Identity.Serial, 0x00BC614E)
	}
	if resp.Identity.PIN != 9999 {
		t.Errorf("PIN = %d, want 9999", resp.Identity.PIN)
	}
}

func TestParseResponse_Rejected(t *testing.T) {
	frame, err := EncodeResponse(Response{ID: RespRejected, RejectReason: 0x02})
	if err != nil {
		t.Fatalf("EncodeResponse() error = %v", err)
	}

	resp, err := ParseResponse(frame)
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if resp.ID != RespRejected {
		t.Errorf("ID = %s, want Rejected", resp.ID)
	}
	if resp.RejectReason != 0x02 {
		t.Errorf("RejectReason = 0x%02x, want 0x02", resp.RejectReason)
	}
}

func TestParseResponse_Malformed(t *testing.T) {
	good := validStatusFrame(t, StatusData{FireOn: true, FlameHeight: 3})

	corrupt := func(mutate func(f []byte)) []byte {
		f := make([]byte, len(good))
		copy(f, good)
		mutate(f)
		return f
	}

	tests := []struct {
		name  string
		frame []byte
	}{
		{"short frame", good[:10]},
		{"empty frame", nil},
		{"long frame", append(append([]byte{}, good...), 0x00)},
		{"bad start byte", corrupt(func(f []byte) { f[0] = 0x00 })},
		{"bad end byte", corrupt(func(f []byte) { f[14] = 0x00 })},
		{"corrupted checksum", corrupt(func(f []byte) { f[13] ^= 0xFF })},
		{"corrupted data byte", corrupt(func(f []byte) { f[5] ^= 0x01 })},
		{"unknown response ID", corrupt(func(f []byte) {
			f[1] = 0x11
			f[13] = FrameChecksum(f)
		})},
		{"wrong data length for status", corrupt(func(f []byte) {
			f[2] = 6
			f[13] = FrameChecksum(f)
		})},
		{"data length beyond capacity", corrupt(func(f []byte) {
			f[2] = 11
			f[13] = FrameChecksum(f)
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse(tt.frame)
			if err == nil {
				t.Fatalf("ParseResponse() = %+v, want error", resp)
			}
			if !errors.Is(err, ErrMalformedFrame) {
				t.Errorf("error = %v, want ErrMalformedFrame", err)
			}
			if resp != nil {
				t.Error("response not nil alongside error")
			}
		})
	}
}

func TestFrameChecksum(t *testing.T) {
	// Checksum covers bytes 1..12 only; envelope bytes are excluded
	frame := make([]byte, FrameLength)
	frame[0] = StartByte
	frame[14] = EndByte
	frame[1] = 0x31
	frame[2] = 0x01
	frame[3] = 0x05

	if got, want := FrameChecksum(frame), byte(0x37); got != want {
		t.Errorf("FrameChecksum() = 0x%02x, want 0x%02x", got, want)
	}

	// Changing envelope bytes must not affect the checksum
	frame[0] = 0x00
	frame[13] = 0xAA
	frame[14] = 0x00
	if got := FrameChecksum(frame); got != 0x37 {
		t.Errorf("FrameChecksum() after envelope change = 0x%02x, want 0x37", got)
	}

	// The sum overflows on 255, not 256
	frame2 := make([]byte, FrameLength)
	for i := 1; i <= 12; i++ {
		frame2[i] = 0xFF
	}
	// 12*255 = 3060, 3060 % 255 = 0
	if got := FrameChecksum(frame2); got != 0 {
		t.Errorf("FrameChecksum() = 0x%02x, want 0x00", got)
	}
}
