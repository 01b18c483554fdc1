package ppu

// vramByte implements vramReader directly against PPU's own VRAM array,
// bypassing the CPU-facing mode-3 lockout the bus device enforces —
// the PPU's own fetcher is exactly what mode 3 is busy serving.
func (p *PPU) vramByte(addr uint16) byte {
	if addr >= 0x8000 && addr <= 0x9FFF {
		return p.vram[addr-0x8000]
	}
	return 0xFF
}

type spriteAttr struct {
	y, x, tile, flags byte
}

// visibleSprites returns up to 10 OAM entries overlapping scanline ly,
// in OAM order. blendSprites draws them in this order, so where two
// sprites overlap the later OAM entry's pixel is the one shown.
func (p *PPU) visibleSprites(ly byte) []spriteAttr {
	height := byte(8)
	if p.lcdc&0x04 != 0 {
		height = 16
	}
	var out []spriteAttr
	for i := 0; i < 40 && len(out) < 10; i++ {
		base := i * 4
		sy := p.oam[base]
		top := int(sy) - 16
		if int(ly) < top || int(ly) >= top+int(height) {
			continue
		}
		out = append(out, spriteAttr{
			y:     sy,
			x:     p.oam[base+1],
			tile:  p.oam[base+2],
			flags: p.oam[base+3],
		})
	}
	return out
}

// renderScanline composites the background, window, and sprite layers
// for the current LY into the frame buffer. It is invoked once per line
// at the mode-3-to-HBlank boundary; pixel transfer is not dot-accurate
// mid-scanline, only the per-tile fetch stages are modeled faithfully.
func (p *PPU) renderScanline() {
	ly := p.ly
	if int(ly) >= ScreenH {
		return
	}

	var bg [ScreenW]byte
	if p.lcdc&0x01 != 0 {
		bg = p.bgRow
	}

	winDrawn := false
	if p.lcdc&0x20 != 0 && p.lcdc&0x01 != 0 && ly >= p.wy && p.wx <= 166 {
		win := p.renderWindow(byte(p.wLine))
		wxStart := int(p.wx) - 7
		for x := 0; x < ScreenW; x++ {
			if x >= wxStart {
				bg[x] = win[x]
			}
		}
		winDrawn = true
	}

	var out [ScreenW]RGBA
	for x := 0; x < ScreenW; x++ {
		out[x] = paletteLookup(p.bgp, bg[x])
	}

	if p.lcdc&0x02 != 0 {
		p.blendSprites(ly, bg, &out)
	}

	p.frame[ly] = out
	if winDrawn {
		p.wLine++
	}
}

// beginScanlineFetch resets the background fetcher and its FIFO for a new
// line, at the OAM-to-Transfer (mode 2 to mode 3) boundary. The fetch
// itself is then driven one stage per dot by stepBackgroundFetch for the
// rest of mode 3.
func (p *PPU) beginScanlineFetch() {
	p.lineX = 0
	p.bgFifo.Clear()

	mapBase := uint16(0x9800)
	if p.lcdc&0x08 != 0 {
		mapBase = 0x9C00
	}
	p.bgMapBase = mapBase
	p.bgTileData8000 = p.lcdc&0x10 != 0

	bgY := uint16(p.ly) + uint16(p.scy)
	p.bgFineY = byte(bgY & 7)
	p.bgMapY = (bgY >> 3) & 31

	startX := uint16(p.scx)
	p.bgTileX = (startX >> 3) & 31
	p.discardX = int(startX & 7)

	p.bgFetcher.Configure(p.bgMapBase, p.bgTileData8000, p.bgMapBase+p.bgMapY*32+p.bgTileX, p.bgFineY)
}

// stepBackgroundFetch advances the background tile fetcher by one stage
// for the current dot. A completed tile fetch reconfigures the fetcher
// for the next tile; the fetcher itself applies FIFO backpressure (see
// fetcher.go StagePush) so a full FIFO simply delays the reconfigure
// rather than overwriting pixels. Scroll-X's sub-tile pixels are
// discarded off the front of the row before any land in bgRow.
func (p *PPU) stepBackgroundFetch() {
	if p.lineX >= ScreenW {
		return
	}
	if p.bgFetcher.Step() {
		p.bgTileX = (p.bgTileX + 1) & 31
		p.bgFetcher.Configure(p.bgMapBase, p.bgTileData8000, p.bgMapBase+p.bgMapY*32+p.bgTileX, p.bgFineY)
	}
	for p.discardX > 0 && p.bgFifo.Len() > 0 {
		p.bgFifo.Pop()
		p.discardX--
	}
	if p.discardX == 0 {
		if px, ok := p.bgFifo.Pop(); ok {
			p.bgRow[p.lineX] = px
			p.lineX++
		}
	}
}

func (p *PPU) renderWindow(winLine byte) [ScreenW]byte {
	var out [ScreenW]byte
	mapBase := uint16(0x9800)
	if p.lcdc&0x40 != 0 {
		mapBase = 0x9C00
	}
	tileData8000 := p.lcdc&0x10 != 0

	wxStart := int(p.wx) - 7
	if wxStart >= ScreenW {
		return out
	}
	if wxStart < 0 {
		wxStart = 0
	}

	mapY := uint16(winLine) >> 3
	fineY := winLine & 7
	tileX := uint16(0)

	var q fifo
	f := newTileFetcher(p, &q)
	f.Configure(mapBase, tileData8000, mapBase+mapY*32+tileX, fineY)
	f.runToCompletion()

	for x := wxStart; x < ScreenW; x++ {
		if q.Len() == 0 {
			tileX = (tileX + 1) & 31
			f.Configure(mapBase, tileData8000, mapBase+mapY*32+tileX, fineY)
			f.runToCompletion()
		}
		px, _ := q.Pop()
		out[x] = px
	}
	return out
}

// blendSprites draws OAM sprites over bg, honoring priority (bit7 of
// flags: behind non-zero BG pixels), X/Y flip, and the OBP0/OBP1 select.
func (p *PPU) blendSprites(ly byte, bg [ScreenW]byte, out *[ScreenW]RGBA) {
	height := 8
	if p.lcdc&0x04 != 0 {
		height = 16
	}
	for _, s := range p.visibleSprites(ly) {
		row := int(ly) - (int(s.y) - 16)
		if s.flags&0x40 != 0 {
			row = height - 1 - row
		}
		tile := s.tile
		if height == 16 {
			tile &^= 0x01
			if row >= 8 {
				tile |= 0x01
				row -= 8
			}
		}
		base := 0x8000 + uint16(tile)*16 + uint16(row)*2
		lo, hi := p.vramByte(base), p.vramByte(base+1)

		for px := 0; px < 8; px++ {
			bit := px
			if s.flags&0x20 == 0 {
				bit = 7 - px
			}
			ci := ((hi>>byte(bit))&1)<<1 | ((lo >> byte(bit)) & 1)
			if ci == 0 {
				continue
			}
			screenX := int(s.x) - 8 + px
			if screenX < 0 || screenX >= ScreenW {
				continue
			}
			if s.flags&0x80 != 0 && bg[screenX] != 0 {
				continue
			}
			pal := p.obp0
			if s.flags&0x10 != 0 {
				pal = p.obp1
			}
			out[screenX] = paletteLookup(pal, ci)
		}
	}
}
