package ppu

// RGBA is one output pixel, 8 bits per channel, alpha always opaque.
type RGBA struct{ R, G, B, A byte }

// dmgShades is the classic four-shade DMG palette, lightest first,
// indexed by the value a BGP/OBPn entry decodes to.
var dmgShades = [4]RGBA{
	{0xE0, 0xF8, 0xD0, 0xFF},
	{0x88, 0xC0, 0x70, 0xFF},
	{0x34, 0x68, 0x56, 0xFF},
	{0x08, 0x18, 0x20, 0xFF},
}

// paletteLookup decodes a 2-bit color index through an 8-bit BGP/OBPn
// register (four 2-bit fields, one per index) to a shade.
func paletteLookup(reg byte, ci byte) RGBA {
	shade := (reg >> (ci * 2)) & 0x03
	return dmgShades[shade]
}
