// Package pic implements the programmable interrupt controller: the IE
// (0xFFFF) and IF (0xFF0F) registers and their priority arbitration.
package pic

import "github.com/dmg-core/dmgcore/internal/device"

// Source identifies one of the five interrupt lines, in priority order.
type Source int

const (
	VBlank Source = iota
	LCDStat
	Timer
	Serial
	Joypad
)

// Vector returns the fixed jump target serviced for src.
func (s Source) Vector() uint16 { return 0x40 + uint16(s)*8 }

// PIC holds the shared IE/IF state. Its two bus-visible faces (IE() and
// IF()) are thin device.Device views over this one struct. The bus sees
// them as two distinct devices and resets both: IE's Reset clears the
// shared state and IF's Reset is a no-op.
type PIC struct {
	ie byte
	iF byte
}

// New returns a PIC with IE and IF both cleared.
func New() *PIC { return &PIC{} }

// Request sets the IF bit for src. Called by peripherals (timer, PPU,
// serial, joypad) when they observe a condition that should interrupt.
func (p *PIC) Request(src Source) { p.iF |= 1 << uint(src) }

// Pending returns the highest-priority source with both its IE and IF
// bits set, and whether any source is pending.
func (p *PIC) Pending() (Source, bool) {
	masked := p.ie & p.iF & 0x1F
	if masked == 0 {
		return 0, false
	}
	for bit := uint(0); bit < 5; bit++ {
		if masked&(1<<bit) != 0 {
			return Source(bit), true
		}
	}
	return 0, false // unreachable
}

// Any reports whether any enabled interrupt is pending, without
// determining priority — used by HALT's wake condition, which fires
// regardless of IME.
func (p *PIC) Any() bool {
	return p.ie&p.iF&0x1F != 0
}

// Ack clears src's IF bit (the CPU calls this when servicing the
// interrupt; it does not touch IE).
func (p *PIC) Ack(src Source) { p.iF &^= 1 << uint(src) }

// ieView and ifView are the two bus-mapped faces of a PIC.
type ieView struct{ p *PIC }
type ifView struct{ p *PIC }

// IE returns the device.Device view mapped at 0xFFFF.
func (p *PIC) IE() device.Device { return ieView{p} }

// IF returns the device.Device view mapped at 0xFF0F.
func (p *PIC) IF() device.Device { return ifView{p} }

func (ieView) Len() int                { return 1 }
func (ieView) Contains(i int) bool     { return i == 0 }
func (v ieView) Read(int) byte         { return v.p.ie }
func (v ieView) Write(_ int, val byte) { v.p.ie = val }
func (v ieView) Reset()                { v.p.ie = 0; v.p.iF = 0 }

func (ifView) Len() int                { return 1 }
func (ifView) Contains(i int) bool     { return i == 0 }
func (v ifView) Read(int) byte         { return 0xE0 | (v.p.iF & 0x1F) }
func (v ifView) Write(_ int, val byte) { v.p.iF = val & 0x1F }
func (v ifView) Reset()                {} // IE's Reset already zeroed the shared state
