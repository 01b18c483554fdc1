// Package cart implements cartridge loading and memory bank controllers.
// A Cartridge presents two bus-mappable devices — ROM() covering
// 0x0000-0x7FFF and RAM() covering 0xA000-0xBFFF — rather than a single
// Read/Write pair, so the bus sees the cartridge the same way it sees
// any other device.
package cart

import "github.com/dmg-core/dmgcore/internal/device"

// Cartridge is satisfied by every bank-controller implementation.
type Cartridge interface {
	ROM() device.Device
	RAM() device.Device
	Header() *Header
}

// BatteryBacked is implemented by cartridges whose external RAM should
// survive a power cycle.
type BatteryBacked interface {
	SaveRAM() []byte
	LoadRAM(data []byte)
}

// New parses the ROM header and picks the bank-controller implementation
// its cartridge type byte names. Unknown or unparsable ROMs fall back to
// NoMBC so homebrew and test ROMs without a valid header still load.
func New(rom []byte) Cartridge {
	h, err := ParseHeader(rom)
	if err != nil {
		return NewNoMBC(rom, &Header{})
	}
	switch h.CartType {
	case 0x00:
		return NewNoMBC(rom, h)
	case 0x01, 0x02, 0x03:
		return NewMBC1(rom, h)
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return NewMBC3(rom, h)
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return NewMBC5(rom, h)
	default:
		return NewNoMBC(rom, h)
	}
}
