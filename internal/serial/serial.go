// Package serial implements SB/SC (0xFF01-0xFF02): an immediate link
// port. There is no link partner, so a transfer completes the instant
// SC bit 7 starts it, whichever clock SC bit 0 selects, handing the outgoing byte
// to an optional sink and raising the serial interrupt.
package serial

import (
	"io"

	"github.com/dmg-core/dmgcore/internal/pic"
)

// Serial is mapped as a 2-byte device at 0xFF01-0xFF02.
type Serial struct {
	sb byte
	sc byte

	sink io.Writer
	pic  *pic.PIC
}

// New returns a Serial port with no sink attached.
func New(p *pic.PIC) *Serial { return &Serial{pic: p} }

// SetSink attaches (or, with nil, detaches) the writer that receives each
// byte shifted out of SB when a transfer starts.
func (s *Serial) SetSink(w io.Writer) { s.sink = w }

func (s *Serial) Len() int           { return 2 }
func (s *Serial) Contains(i int) bool { return i == 0 || i == 1 }

func (s *Serial) Read(i int) byte {
	if i == 0 {
		return s.sb
	}
	return 0x7E | (s.sc & 0x81)
}

func (s *Serial) Write(i int, v byte) {
	if i == 0 {
		s.sb = v
		return
	}
	s.sc = v & 0x81
	if s.sc&0x80 == 0 {
		return
	}
	if s.sink != nil {
		_, _ = s.sink.Write([]byte{s.sb})
	}
	s.pic.Request(pic.Serial)
	s.sc &^= 0x80 // transfer completes immediately; no link partner to wait on
}

func (s *Serial) Reset() { s.sb, s.sc = 0, 0 }
