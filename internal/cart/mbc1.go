package cart

import "github.com/dmg-core/dmgcore/internal/device"

// MBC1 banks up to 2MiB of ROM and 32KiB of RAM. The mode-select register
// picks between two behaviors for the 0x0000-0x3FFF region and the RAM
// bank: in mode 0 it is always ROM bank 0 / RAM bank 0; in mode 1 the two
// upper bank-register bits also select a ROM bank at 0x0000-0x3FFF and a
// RAM bank, letting the full 2MiB ROM and 32KiB RAM be reached without a
// bank-0 write.
type MBC1 struct {
	rom []byte
	ram []byte

	header *Header

	romBankLow5       byte // lower 5 bits of ROM bank number (0 remapped to 1)
	ramBankOrRomHigh2 byte // ROM bank bits 5-6 at 0x4000 (both modes); in mode 1 also the RAM bank and the 0x0000 bank
	ramEnabled        bool
	modeSelect        byte // 0: ROM banking mode, 1: RAM banking mode
}

// NewMBC1 returns an MBC1 cartridge with RAM sized from h.RAMSizeBytes.
func NewMBC1(rom []byte, h *Header) *MBC1 {
	m := &MBC1{rom: rom, header: h, romBankLow5: 1}
	if h.RAMSizeBytes > 0 {
		m.ram = make([]byte, h.RAMSizeBytes)
	}
	return m
}

func (m *MBC1) Header() *Header { return m.header }

func (m *MBC1) ROM() device.Device {
	return deviceView{read: m.romRead, write: m.romWrite, length: 0x8000}
}
func (m *MBC1) RAM() device.Device {
	return deviceView{read: m.ramRead, write: m.ramWrite, length: 0x2000}
}

func (m *MBC1) romRead(i int) byte {
	if i < 0x4000 {
		if m.modeSelect == 0 {
			if i < len(m.rom) {
				return m.rom[i]
			}
			return 0xFF
		}
		bank := int(m.ramBankOrRomHigh2&0x03) << 5
		off := bank*0x4000 + i
		if off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	}
	bank := int(m.effectiveROMBank())
	off := bank*0x4000 + (i - 0x4000)
	if off < len(m.rom) {
		return m.rom[off]
	}
	return 0xFF
}

func (m *MBC1) romWrite(i int, v byte) {
	switch {
	case i < 0x2000:
		m.ramEnabled = v&0x0F == 0x0A
	case i < 0x4000:
		m.romBankLow5 = v & 0x1F
		if m.romBankLow5 == 0 {
			m.romBankLow5 = 1
		}
	case i < 0x6000:
		m.ramBankOrRomHigh2 = v & 0x03
	default:
		m.modeSelect = v & 0x01
	}
}

func (m *MBC1) ramBank() int {
	if m.modeSelect == 1 {
		return int(m.ramBankOrRomHigh2 & 0x03)
	}
	return 0
}

func (m *MBC1) ramRead(i int) byte {
	if !m.ramEnabled || len(m.ram) == 0 {
		return 0xFF
	}
	off := m.ramBank()*0x2000 + i
	if off >= 0 && off < len(m.ram) {
		return m.ram[off]
	}
	return 0xFF
}

func (m *MBC1) ramWrite(i int, v byte) {
	if !m.ramEnabled || len(m.ram) == 0 {
		return
	}
	off := m.ramBank()*0x2000 + i
	if off >= 0 && off < len(m.ram) {
		m.ram[off] = v
	}
}

func (m *MBC1) effectiveROMBank() byte {
	high := m.ramBankOrRomHigh2 & 0x03
	return m.romBankLow5 | (high << 5)
}

func (m *MBC1) SaveRAM() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC1) LoadRAM(data []byte) {
	if len(m.ram) == 0 || len(data) == 0 {
		return
	}
	copy(m.ram, data)
}
