package cart

import "testing"

func TestMBC3_ROMBanking_ZeroRemapsToOne(t *testing.T) {
	rom := make([]byte, 2 * 1024 * 1024)
	for bank := 0; bank < 128; bank++ {
		rom[bank*0x4000] = byte(bank)
	}
	m := NewMBC3(rom, &Header{})
	romDev := m.ROM()

	romDev.Write(0x2000, 0x45)
	if got := romDev.Read(0x4000); got != 0x45 {
		t.Fatalf("bank select got %02X want 45", got)
	}

	romDev.Write(0x2000, 0x00)
	if got := romDev.Read(0x4000); got != 0x01 {
		t.Fatalf("bank0 remap failed: got %02X want 01", got)
	}
}

func TestMBC3_RAMBankSelectIgnoresRTCRange(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC3(rom, &Header{RAMSizeBytes: 0x2000 * 4})
	romDev, ramDev := m.ROM(), m.RAM()

	romDev.Write(0x0000, 0x0A) // RAM enable
	romDev.Write(0x4000, 0x02) // RAM bank 2
	ramDev.Write(0x0000, 0x42)

	romDev.Write(0x4000, 0x08) // RTC select, unsupported -> aliases bank 0
	ramDev.Write(0x0000, 0x99)

	romDev.Write(0x4000, 0x02) // back to bank 2
	if got := ramDev.Read(0x0000); got != 0x42 {
		t.Fatalf("bank2 contents clobbered: got %02X want 42", got)
	}
}

func TestMBC3_SaveLoadRAMRoundTrips(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC3(rom, &Header{RAMSizeBytes: 0x2000})
	romDev, ramDev := m.ROM(), m.RAM()
	romDev.Write(0x0000, 0x0A)
	ramDev.Write(0x10, 0xAB)

	saved := m.SaveRAM()
	n := NewMBC3(rom, &Header{RAMSizeBytes: 0x2000})
	n.LoadRAM(saved)
	n.ROM().Write(0x0000, 0x0A)
	if got := n.RAM().Read(0x10); got != 0xAB {
		t.Fatalf("loaded RAM got %02X want AB", got)
	}
}
