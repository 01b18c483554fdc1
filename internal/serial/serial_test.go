package serial

import (
	"bytes"
	"testing"

	"github.com/dmg-core/dmgcore/internal/pic"
)

func TestSerial_TransferWritesToSinkAndRequestsInterrupt(t *testing.T) {
	p := pic.New()
	p.IE().Write(0, 0xFF)
	s := New(p)
	var buf bytes.Buffer
	s.SetSink(&buf)

	s.Write(0, 'A')
	s.Write(1, 0x81) // start, internal clock

	if buf.String() != "A" {
		t.Fatalf("sink got %q want %q", buf.String(), "A")
	}
	if src, ok := p.Pending(); !ok || src != pic.Serial {
		t.Fatalf("expected serial interrupt pending, got %v ok=%v", src, ok)
	}
	if got := s.Read(1); got&0x80 != 0 {
		t.Fatalf("SC start bit should clear once transfer completes, got %#02x", got)
	}
}

func TestSerial_NoSinkDoesNotPanic(t *testing.T) {
	s := New(pic.New())
	s.Write(0, 'X')
	s.Write(1, 0x81)
}

func TestSerial_ReadSCMasksReservedBits(t *testing.T) {
	s := New(pic.New())
	s.Write(1, 0x01)
	if got := s.Read(1); got != 0x7F {
		t.Fatalf("SC read got %#02x want 0x7F", got)
	}
}
