package cart

import "github.com/dmg-core/dmgcore/internal/device"

// MBC3 banks up to 2MiB of ROM and 32KiB of RAM with a 7-bit ROM bank
// register (0 remapped to 1, no banks silently skipped) and a 2-bit RAM
// bank register. The real chip also multiplexes RTC registers onto the
// RAM-bank-select write at 0x4000-0x5FFF; this supplement does not model
// the RTC, so a select value above 3 aliases to RAM bank 0.
type MBC3 struct {
	rom []byte
	ram []byte

	header *Header

	ramEnabled bool
	romBank    byte
	ramBank    byte
}

// NewMBC3 returns an MBC3 cartridge with RAM sized from h.RAMSizeBytes.
func NewMBC3(rom []byte, h *Header) *MBC3 {
	m := &MBC3{rom: rom, header: h, romBank: 1}
	if h.RAMSizeBytes > 0 {
		m.ram = make([]byte, h.RAMSizeBytes)
	}
	return m
}

func (m *MBC3) Header() *Header { return m.header }

func (m *MBC3) ROM() device.Device {
	return deviceView{read: m.romRead, write: m.romWrite, length: 0x8000}
}
func (m *MBC3) RAM() device.Device {
	return deviceView{read: m.ramRead, write: m.ramWrite, length: 0x2000}
}

func (m *MBC3) romRead(i int) byte {
	if i < 0x4000 {
		if i < len(m.rom) {
			return m.rom[i]
		}
		return 0xFF
	}
	bank := int(m.romBank & 0x7F)
	if bank == 0 {
		bank = 1
	}
	off := bank*0x4000 + (i - 0x4000)
	if off >= 0 && off < len(m.rom) {
		return m.rom[off]
	}
	return 0xFF
}

func (m *MBC3) romWrite(i int, v byte) {
	switch {
	case i < 0x2000:
		m.ramEnabled = v&0x0F == 0x0A
	case i < 0x4000:
		bank := v & 0x7F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case i < 0x6000:
		if v <= 0x03 {
			m.ramBank = v & 0x03
		} else {
			m.ramBank = 0
		}
	default:
		// clock latch: no RTC to latch against
	}
}

func (m *MBC3) ramRead(i int) byte {
	if !m.ramEnabled || len(m.ram) == 0 {
		return 0xFF
	}
	off := int(m.ramBank&0x03)*0x2000 + i
	if off >= 0 && off < len(m.ram) {
		return m.ram[off]
	}
	return 0xFF
}

func (m *MBC3) ramWrite(i int, v byte) {
	if !m.ramEnabled || len(m.ram) == 0 {
		return
	}
	off := int(m.ramBank&0x03)*0x2000 + i
	if off >= 0 && off < len(m.ram) {
		m.ram[off] = v
	}
}

func (m *MBC3) SaveRAM() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC3) LoadRAM(data []byte) {
	if len(m.ram) == 0 || len(data) == 0 {
		return
	}
	copy(m.ram, data)
}
