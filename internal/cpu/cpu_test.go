package cpu

import (
	"testing"

	"github.com/dmg-core/dmgcore/internal/bus"
	"github.com/dmg-core/dmgcore/internal/device"
	"github.com/dmg-core/dmgcore/internal/pic"
)

func newCPUWithROM(code []byte) (*CPU, *pic.PIC) {
	b := bus.New()
	rom := device.NewRAM(0x8000) // mutable so tests can poke opcodes directly
	copy(rom.Bytes(), code)
	b.Map(0x0000, rom)
	b.Map(0xC000, device.NewRAM(0x2000))
	b.Map(0xFF80, device.NewRAM(0x7F)) // HRAM: holds the stack below SP=0xFFFE
	p := pic.New()
	b.Map(0xFF0F, p.IF())
	b.Map(0xFFFF, p.IE())
	return New(b, p), p
}

func TestCPU_NopAndPC(t *testing.T) {
	c, _ := newCPUWithROM([]byte{0x00})
	if cycles := c.Step(); cycles != 4 {
		t.Fatalf("NOP cycles got %d want 4", cycles)
	}
	if c.PC != 1 {
		t.Fatalf("PC after NOP got %#04x want 0x0001", c.PC)
	}
}

func TestCPU_LD_A_d8_And_XOR_A(t *testing.T) {
	c, _ := newCPUWithROM([]byte{0x3E, 0x12, 0xAF})
	c.Step()
	if c.A != 0x12 {
		t.Fatalf("A after LD got %02x want 12", c.A)
	}
	c.Step()
	if c.A != 0x00 {
		t.Fatalf("A after XOR got %02x want 00", c.A)
	}
	if c.F&flagZ == 0 {
		t.Fatalf("Z flag not set after XOR A")
	}
	if c.F&0x0F != 0 {
		t.Fatalf("low nibble of F must always be zero, got %#02x", c.F)
	}
}

func TestCPU_LD_a16_A_and_LD_A_a16(t *testing.T) {
	prog := []byte{0x3E, 0x77, 0xEA, 0x00, 0xC0, 0x3E, 0x00, 0xFA, 0x00, 0xC0}
	c, _ := newCPUWithROM(prog)
	c.Step()
	c.Step()
	if a := c.bus.Read(0xC000); a != 0x77 {
		t.Fatalf("WRAM at C000 got %02x want 77", a)
	}
	c.Step()
	c.Step()
	if c.A != 0x77 {
		t.Fatalf("A after LD A,(C000) got %02x want 77", c.A)
	}
}

func TestCPU_PushPopRoundTrip(t *testing.T) {
	c, _ := newCPUWithROM([]byte{
		0x3E, 0x12, // LD A,0x12
		0x06, 0x34, // LD B,0x34
		0xC5, // PUSH BC
		0xF5, // PUSH AF
		0xF1, // POP AF
		0xC1, // POP BC
	})
	for i := 0; i < 6; i++ {
		c.Step()
	}
	if c.B != 0x34 {
		t.Fatalf("B after round trip got %#02x want 34", c.B)
	}
}

func TestCPU_InterruptDispatchPushesPCAndJumpsToVector(t *testing.T) {
	c, p := newCPUWithROM([]byte{0x00, 0x00, 0x00, 0x00})
	c.ime = imeEnabled
	p.IE().Write(0, 0xFF)
	p.Request(pic.VBlank)

	c.PC = 0x0002
	sp := c.SP
	cyc := c.Step()
	if cyc != 20 {
		t.Fatalf("interrupt dispatch cycles got %d want 20", cyc)
	}
	if c.PC != pic.VBlank.Vector() {
		t.Fatalf("PC after dispatch got %#04x want %#04x", c.PC, pic.VBlank.Vector())
	}
	if c.ime == imeEnabled {
		t.Fatalf("IME should be cleared during interrupt service")
	}
	if pushed := uint16(c.bus.Read(c.SP)) | uint16(c.bus.Read(c.SP+1))<<8; pushed != 0x0002 {
		t.Fatalf("pushed return address got %#04x want 0x0002", pushed)
	}
	if c.SP != sp-2 {
		t.Fatalf("SP not decremented by 2")
	}
	if _, ok := p.Pending(); ok {
		t.Fatalf("interrupt should be acknowledged after dispatch")
	}
}

func TestCPU_EIDelaysOneInstruction(t *testing.T) {
	c, p := newCPUWithROM([]byte{0xFB, 0x00, 0x00}) // EI; NOP
	p.IE().Write(0, 0xFF)
	p.Request(pic.VBlank)

	c.Step() // EI: IME not yet enabled
	if c.IME() {
		t.Fatalf("IME should not take effect until after the following instruction")
	}
	c.Step() // NOP: the interrupt must not have been serviced mid-delay
	if c.PC != 2 {
		t.Fatalf("PC got %#04x want 2 (NOP executed, interrupt deferred)", c.PC)
	}
	if !c.IME() {
		t.Fatalf("IME should be enabled after the instruction following EI")
	}
}

func TestCPU_HaltBugRereadsNextByteWithoutAdvancingPC(t *testing.T) {
	c, p := newCPUWithROM([]byte{0x76, 0x3E, 0x99}) // HALT; LD A,0x99
	p.IE().Write(0, 0xFF)
	p.Request(pic.VBlank) // pending with IME disabled triggers the bug

	c.Step() // HALT sets haltBug instead of actually halting
	if c.halted {
		t.Fatalf("CPU should not halt when the halt bug fires")
	}
	c.Step() // re-reads opcode at PC (0x3E) without having advanced past HALT
	if c.PC != 2 {
		t.Fatalf("PC got %d want 2 after the duplicated fetch", c.PC)
	}
}

func TestCPU_DAAInverseOfAddition(t *testing.T) {
	c, _ := newCPUWithROM([]byte{
		0x3E, 0x15, // LD A, 0x15 (BCD 15)
		0xC6, 0x27, // ADD A, 0x27 (BCD 27)
		0x27, // DAA
	})
	c.Step()
	c.Step()
	c.Step()
	if c.A != 0x42 {
		t.Fatalf("DAA(0x15+0x27) got %#02x want 0x42 (BCD 15+27=42)", c.A)
	}
}
