// Package joypad implements the JOYP register (0xFF00): button-state
// capture and the edge-triggered joypad interrupt.
package joypad

import "github.com/dmg-core/dmgcore/internal/pic"

// Button bitmasks for SetState. A set bit means the button is pressed.
const (
	Right Button = 1 << iota
	Left
	Up
	Down
	A
	B
	Select
	Start
)

type Button byte

// Joypad is mapped as a single-byte device at 0xFF00.
type Joypad struct {
	sel     byte // bits 5-4, as last written (0 = that group selected)
	state   byte // bitmask of currently pressed buttons, 1 = pressed
	lower4  byte // last computed active-low lower nibble, for edge detection
	pic     *pic.PIC
}

// New returns a Joypad with no buttons pressed, raising pic.Joypad on any
// 1->0 transition of a selected, pressed button's line.
func New(p *pic.PIC) *Joypad { return &Joypad{pic: p} }

// SetState replaces the full set of currently pressed buttons and
// re-evaluates the interrupt edge against the active selection.
func (j *Joypad) SetState(mask byte) {
	j.state = mask
	j.updateIRQ()
}

func (j *Joypad) lowerNibble() byte {
	lower := byte(0x0F)
	if j.sel&0x10 == 0 { // P14 low selects D-pad
		if j.state&byte(Right) != 0 {
			lower &^= 0x01
		}
		if j.state&byte(Left) != 0 {
			lower &^= 0x02
		}
		if j.state&byte(Up) != 0 {
			lower &^= 0x04
		}
		if j.state&byte(Down) != 0 {
			lower &^= 0x08
		}
	}
	if j.sel&0x20 == 0 { // P15 low selects buttons
		if j.state&byte(A) != 0 {
			lower &^= 0x01
		}
		if j.state&byte(B) != 0 {
			lower &^= 0x02
		}
		if j.state&byte(Select) != 0 {
			lower &^= 0x04
		}
		if j.state&byte(Start) != 0 {
			lower &^= 0x08
		}
	}
	return lower
}

func (j *Joypad) updateIRQ() {
	newLower := j.lowerNibble()
	falling := j.lower4 &^ newLower // bits that went 1->0
	if falling != 0 {
		j.pic.Request(pic.Joypad)
	}
	j.lower4 = newLower
}

func (j *Joypad) Len() int           { return 1 }
func (j *Joypad) Contains(i int) bool { return i == 0 }

func (j *Joypad) Read(int) byte {
	return 0xC0 | (j.sel & 0x30) | j.lowerNibble()
}

func (j *Joypad) Write(_ int, v byte) {
	j.sel = v & 0x30
	j.updateIRQ()
}

func (j *Joypad) Reset() { j.sel, j.state, j.lower4 = 0, 0, 0 }
