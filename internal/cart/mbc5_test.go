package cart

import "testing"

func TestMBC5_BankZeroIsLegal(t *testing.T) {
	rom := make([]byte, 1024 * 1024)
	rom[0x4000*0] = 0xAA // bank 0 marker at switchable-window offset 0
	m := NewMBC5(rom, &Header{})
	romDev := m.ROM()

	romDev.Write(0x2000, 0x00) // explicit bank 0, no remap on MBC5
	if got := romDev.Read(0x4000); got != 0xAA {
		t.Fatalf("bank0 read got %02X want AA (MBC5 allows bank 0)", got)
	}
}

func TestMBC5_NineBitBankSpansHighByte(t *testing.T) {
	rom := make([]byte, 9 * 1024 * 1024 / 9 * 9) // plenty of banks worth
	bank := 0x144
	rom[bank*0x4000] = 0x5A
	m := NewMBC5(make([]byte, len(rom)), &Header{})
	m.rom = rom
	romDev := m.ROM()

	romDev.Write(0x2000, byte(bank&0xFF))
	romDev.Write(0x3000, byte((bank>>8)&0x01))
	if got := romDev.Read(0x4000); got != 0x5A {
		t.Fatalf("9-bit bank read got %02X want 5A", got)
	}
}

func TestMBC5_RAMBanking(t *testing.T) {
	m := NewMBC5(make([]byte, 0x8000), &Header{RAMSizeBytes: 0x2000 * 4})
	romDev, ramDev := m.ROM(), m.RAM()
	romDev.Write(0x0000, 0x0A)
	romDev.Write(0x4000, 0x03)
	ramDev.Write(0x100, 0x7E)
	if got := ramDev.Read(0x100); got != 0x7E {
		t.Fatalf("RAM bank3 RW failed: got %02X", got)
	}
}
