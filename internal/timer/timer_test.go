package timer

import (
	"testing"

	"github.com/dmg-core/dmgcore/internal/pic"
)

func ticks(t *Timer, n int) {
	for i := 0; i < n; i++ {
		t.Tick()
	}
}

func TestTimer_TAC00_IncrementsEvery1024Cycles(t *testing.T) {
	p := pic.New()
	tm := New(p)
	tm.Write(3, 0x04) // enabled, /1024 (bit 9)
	ticks(tm, 1023)
	if got := tm.Read(1); got != 0 {
		t.Fatalf("TIMA got %d want 0 before falling edge", got)
	}
	ticks(tm, 1)
	if got := tm.Read(1); got != 1 {
		t.Fatalf("TIMA got %d want 1 after falling edge", got)
	}
}

func TestTimer_DisabledDoesNotIncrementTIMA(t *testing.T) {
	p := pic.New()
	tm := New(p)
	tm.Write(3, 0x00) // disabled
	ticks(tm, 5000)
	if got := tm.Read(1); got != 0 {
		t.Fatalf("TIMA got %d want 0 while disabled", got)
	}
}

func TestTimer_OverflowDelaysReloadAndRequestsInterrupt(t *testing.T) {
	p := pic.New()
	p.IE().Write(0, 0xFF)
	tm := New(p)
	tm.Write(2, 0x7F) // TMA
	tm.Write(1, 0xFF) // TIMA about to overflow
	tm.Write(3, 0x05) // enabled, /16 (bit 3)

	// drive enough falling edges to overflow TIMA once
	ticks(tm, 16)
	if got := tm.Read(1); got != 0x00 {
		t.Fatalf("TIMA got %#02x want 0x00 immediately after overflow (reload pending)", got)
	}
	if _, ok := p.Pending(); ok {
		t.Fatalf("interrupt should not fire before the 4-cycle reload delay elapses")
	}
	ticks(tm, 4)
	if got := tm.Read(1); got != 0x7F {
		t.Fatalf("TIMA got %#02x want 0x7F (TMA) after reload delay", got)
	}
	src, ok := p.Pending()
	if !ok || src != pic.Timer {
		t.Fatalf("expected Timer interrupt pending, got %v ok=%v", src, ok)
	}
}

func TestTimer_DIVResetOnAnyWrite(t *testing.T) {
	tm := New(pic.New())
	ticks(tm, 300)
	before := tm.Read(0)
	if before == 0 {
		t.Fatalf("DIV should have advanced")
	}
	tm.Write(0, 0xAB) // value is ignored; any write resets
	if got := tm.Read(0); got != 0 {
		t.Fatalf("DIV got %d want 0 after write", got)
	}
}

func TestTimer_TACReadMasksUpperBits(t *testing.T) {
	tm := New(pic.New())
	tm.Write(3, 0x07)
	if got := tm.Read(3); got != 0xFF {
		t.Fatalf("TAC read got %#02x want 0xFF", got)
	}
}
