package cart

import "testing"

func TestNoMBC_ROMReadsFlat(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0x100] = 0x42
	c := NewNoMBC(rom, &Header{})
	if got := c.ROM().Read(0x100); got != 0x42 {
		t.Fatalf("got %02X want 42", got)
	}
}

func TestNoMBC_ROMWritesMutateBackingBytes(t *testing.T) {
	rom := make([]byte, 0x8000)
	c := NewNoMBC(rom, &Header{})
	c.ROM().Write(0x10, 0x55)
	if got := c.ROM().Read(0x10); got != 0x55 {
		t.Fatalf("got %02X want 55", got)
	}
}

func TestNoMBC_NoRAMReadsFF(t *testing.T) {
	c := NewNoMBC(make([]byte, 0x8000), &Header{})
	if got := c.RAM().Read(0x00); got != 0xFF {
		t.Fatalf("got %02X want FF", got)
	}
}

func TestNoMBC_WithRAMReadsBack(t *testing.T) {
	c := NewNoMBC(make([]byte, 0x8000), &Header{RAMSizeBytes: 0x2000})
	c.RAM().Write(0x05, 0x9A)
	if got := c.RAM().Read(0x05); got != 0x9A {
		t.Fatalf("got %02X want 9A", got)
	}
}
