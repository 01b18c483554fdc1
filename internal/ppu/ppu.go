// Package ppu implements the picture processing unit: VRAM/OAM storage,
// the LCDC/STAT/LY/LYC register set and mode scheduling, and a
// background/window/sprite scanline compositor built on an explicit
// tile-fetch state machine.
package ppu

import "github.com/dmg-core/dmgcore/internal/pic"

const (
	ScreenW = 160
	ScreenH = 144
)

// PPU models VRAM/OAM, LCDC/STAT/LY/LYC/palette/scroll registers, and the
// dot-based mode scheduler that drives HBlank/VBlank/OAM/Transfer and
// their STAT interrupts.
type PPU struct {
	vram [0x2000]byte // 0x8000-0x9FFF
	oam  [0xA0]byte   // 0xFE00-0xFE9F

	lcdc byte
	stat byte
	scy  byte
	scx  byte
	ly   byte
	lyc  byte
	bgp  byte
	obp0 byte
	obp1 byte
	wy   byte
	wx   byte

	dot int
	wLine int // internal window line counter, only advances on rendered rows

	pic *pic.PIC

	frame [ScreenH][ScreenW]RGBA

	// Background pixel supply for the current scanline, driven one dot
	// at a time from Tick during mode 3 through the tile fetcher's FIFO
	// (see stepBackgroundFetch). The window layer is still composited in
	// one shot at the mode-3/HBlank boundary (renderWindow) — see
	// DESIGN.md for why that stays out of the per-dot path.
	bgFifo    fifo
	bgFetcher *tileFetcher
	bgRow     [ScreenW]byte
	lineX     int
	discardX  int

	bgMapBase      uint16
	bgTileData8000 bool
	bgTileX, bgMapY uint16
	bgFineY        byte
}

// New returns a PPU with the display off and all registers zeroed.
func New(p *pic.PIC) *PPU {
	ppu := &PPU{pic: p}
	ppu.bgFetcher = newTileFetcher(ppu, &ppu.bgFifo)
	return ppu
}

// Frame returns the most recently composited frame. The returned pointer
// aliases internal state: each row is overwritten as its scanline is
// composited.
func (p *PPU) Frame() *[ScreenH][ScreenW]RGBA { return &p.frame }

func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }
func (p *PPU) LY() byte   { return p.ly }

// VRAM returns the bus-mappable device covering 0x8000-0x9FFF.
func (p *PPU) VRAM() vramDevice { return vramDevice{p} }

// OAM returns the bus-mappable device covering 0xFE00-0xFE9F.
func (p *PPU) OAM() oamDevice { return oamDevice{p} }

// Registers returns the bus-mappable device covering 0xFF40-0xFF4B.
func (p *PPU) Registers() regsDevice { return regsDevice{p} }

type vramDevice struct{ p *PPU }

func (v vramDevice) Len() int            { return len(v.p.vram) }
func (v vramDevice) Contains(i int) bool { return i >= 0 && i < len(v.p.vram) }
func (v vramDevice) Reset()              { v.p.vram = [0x2000]byte{} }
func (v vramDevice) Read(i int) byte {
	if v.p.stat&0x03 == 3 {
		return 0xFF
	}
	return v.p.vram[i]
}
func (v vramDevice) Write(i int, val byte) {
	if v.p.stat&0x03 == 3 {
		return
	}
	v.p.vram[i] = val
}

type oamDevice struct{ p *PPU }

func (o oamDevice) Len() int            { return len(o.p.oam) }
func (o oamDevice) Contains(i int) bool { return i >= 0 && i < len(o.p.oam) }
func (o oamDevice) Reset()              { o.p.oam = [0xA0]byte{} }
func (o oamDevice) Read(i int) byte {
	m := o.p.stat & 0x03
	if m == 2 || m == 3 {
		return 0xFF
	}
	return o.p.oam[i]
}
func (o oamDevice) Write(i int, val byte) {
	m := o.p.stat & 0x03
	if m == 2 || m == 3 {
		return
	}
	o.p.oam[i] = val
}

// regsDevice covers the 12-byte window 0xFF40-0xFF4B. FF44 (LY) is
// read-only; a CPU write to it resets the scanline per documented
// hardware behavior.
type regsDevice struct{ p *PPU }

func (r regsDevice) Len() int            { return 12 }
func (r regsDevice) Contains(i int) bool { return i >= 0 && i < 12 }
func (r regsDevice) Reset() {
	*r.p = PPU{pic: r.p.pic, vram: r.p.vram, oam: r.p.oam}
	r.p.bgFetcher = newTileFetcher(r.p, &r.p.bgFifo)
}

func (r regsDevice) Read(i int) byte {
	p := r.p
	switch i {
	case 0x0:
		return p.lcdc
	case 0x1:
		return 0x80 | (p.stat & 0x7F)
	case 0x2:
		return p.scy
	case 0x3:
		return p.scx
	case 0x4:
		return p.ly
	case 0x5:
		return p.lyc
	case 0x7:
		return p.bgp
	case 0x8:
		return p.obp0
	case 0x9:
		return p.obp1
	case 0xA:
		return p.wy
	case 0xB:
		return p.wx
	default:
		return 0xFF
	}
}

func (r regsDevice) Write(i int, val byte) {
	p := r.p
	switch i {
	case 0x0:
		prev := p.lcdc
		p.lcdc = val
		if prev&0x80 != 0 && val&0x80 == 0 {
			p.ly, p.dot = 0, 0
			p.setMode(0)
			p.updateLYC()
		} else if prev&0x80 == 0 && val&0x80 != 0 {
			p.ly, p.dot = 0, 0
			p.setMode(2)
			p.updateLYC()
		}
	case 0x1:
		p.stat = (p.stat & 0x07) | (val & 0x78)
	case 0x2:
		p.scy = val
	case 0x3:
		p.scx = val
	case 0x4:
		p.ly, p.dot = 0, 0
		p.updateLYC()
		if p.lcdc&0x80 != 0 {
			p.setMode(2)
		}
	case 0x5:
		p.lyc = val
		p.updateLYC()
	case 0x7:
		p.bgp = val
	case 0x8:
		p.obp0 = val
	case 0x9:
		p.obp1 = val
	case 0xA:
		p.wy = val
	case 0xB:
		p.wx = val
	}
}

// Tick advances the PPU by dots dot-clocks (4 per M-cycle), scheduling
// mode transitions and compositing a scanline at the HBlank boundary.
func (p *PPU) Tick(dots int) {
	for i := 0; i < dots; i++ {
		if p.lcdc&0x80 == 0 {
			continue
		}
		p.dot++

		var mode byte
		switch {
		case p.ly >= 144:
			mode = 1
		case p.dot < 80:
			mode = 2
		case p.dot < 80+172:
			mode = 3
		default:
			mode = 0
		}
		if mode == 3 {
			if p.stat&0x03 != 3 {
				p.beginScanlineFetch()
			}
			p.stepBackgroundFetch()
		}
		if mode == 0 && p.stat&0x03 == 3 {
			p.renderScanline()
		}
		p.setMode(mode)

		if p.dot >= 456 {
			p.dot = 0
			p.ly++
			if p.ly == 144 {
				p.pic.Request(pic.VBlank)
				if p.stat&(1<<4) != 0 {
					p.pic.Request(pic.LCDStat)
				}
				p.wLine = 0
			} else if p.ly > 153 {
				p.ly = 0
				p.wLine = 0
			}
			p.updateLYC()
			if p.ly >= 144 {
				p.setMode(1)
			} else {
				p.setMode(2)
			}
		}
	}
}

func (p *PPU) setMode(mode byte) {
	prev := p.stat & 0x03
	if prev == mode {
		return
	}
	p.stat = (p.stat &^ 0x03) | (mode & 0x03)
	switch mode {
	case 0:
		if p.stat&(1<<3) != 0 {
			p.pic.Request(pic.LCDStat)
		}
	case 2:
		if p.stat&(1<<5) != 0 {
			p.pic.Request(pic.LCDStat)
		}
	}
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
		if p.stat&(1<<6) != 0 {
			p.pic.Request(pic.LCDStat)
		}
	} else {
		p.stat &^= 1 << 2
	}
}
