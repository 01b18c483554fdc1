package ppu

import (
	"testing"

	"github.com/dmg-core/dmgcore/internal/pic"
)

func TestPPU_ModeSchedulingWithinLine(t *testing.T) {
	p := New(pic.New())
	regs := p.Registers()
	regs.Write(0x0, 0x80) // LCD on

	if got := regs.Read(0x1) & 0x03; got != 2 {
		t.Fatalf("mode at line start got %d want 2 (OAM)", got)
	}
	p.Tick(80)
	if got := regs.Read(0x1) & 0x03; got != 3 {
		t.Fatalf("mode after 80 dots got %d want 3 (Transfer)", got)
	}
	p.Tick(172)
	if got := regs.Read(0x1) & 0x03; got != 0 {
		t.Fatalf("mode after 252 dots got %d want 0 (HBlank)", got)
	}
}

func TestPPU_VBlankRaisesInterruptAtLine144(t *testing.T) {
	p := New(pic.New())
	regs := p.Registers()
	regs.Write(0x0, 0x80)
	p.Tick(456 * 144)
	if _, ok := p.pic.Pending(); ok {
		t.Fatalf("VBlank is not an enabled interrupt yet, should not be pending")
	}
	if p.pic.IF().Read(0)&0x01 == 0 {
		t.Fatalf("VBlank IF bit should be set at line 144")
	}
	if got := regs.Read(0x1) & 0x03; got != 1 {
		t.Fatalf("mode at line 144 got %d want 1 (VBlank)", got)
	}
}

func TestPPU_LYWrapsAt154(t *testing.T) {
	p := New(pic.New())
	regs := p.Registers()
	regs.Write(0x0, 0x80)
	p.Tick(456 * 154)
	if got := regs.Read(0x4); got != 0 {
		t.Fatalf("LY got %d want 0 after full frame", got)
	}
}

func TestPPU_VRAMLockedDuringMode3(t *testing.T) {
	p := New(pic.New())
	regs, vram := p.Registers(), p.VRAM()
	regs.Write(0x0, 0x80)
	vram.Write(0x0, 0xAB) // mode 2, writable
	p.Tick(80)            // enters mode 3
	vram.Write(0x0, 0xCD) // should be dropped
	if got := vram.Read(0x0); got == 0xCD {
		t.Fatalf("VRAM write during mode 3 should have been ignored")
	}
}

func TestPPU_LYCMatchSetsCoincidenceFlag(t *testing.T) {
	p := New(pic.New())
	regs := p.Registers()
	regs.Write(0x5, 0) // LYC = 0
	regs.Write(0x0, 0x80)
	if got := regs.Read(0x1) & 0x04; got == 0 {
		t.Fatalf("coincidence flag should be set when LY==LYC at line start")
	}
}
