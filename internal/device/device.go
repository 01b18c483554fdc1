// Package device defines the byte-addressable capability every
// memory-mapped entity on the bus implements, plus the small set of
// backing-store primitives the rest of the emulator composes: RAM, ROM,
// Register, and the ReadOnly wrapper.
package device

import "github.com/sirupsen/logrus"

// Log is the package-level logger for device-level anomalies (out-of-range
// access, writes to read-only storage). Callers may replace it (e.g. to
// attach fields) before wiring a machine together.
var Log = logrus.New()

// Device is the capability every memory-mapped entity on the bus exposes.
// Indices are device-local and zero-based; the Bus is responsible for
// translating a CPU address into (device, local index).
type Device interface {
	Len() int
	Contains(index int) bool
	Read(index int) byte
	Write(index int, v byte)
	Reset()
}

// Block is the shared backing store behind both RAM and ROM: a flat,
// mutable byte array. Hardware distinguishes ROM from RAM only in that
// real cartridge ROM ignores writes; this emulator's NoMBC ROM view
// (internal/cart) writes straight through to the ROM bytes (see
// DESIGN.md "ROM vs RAM primitive distinction") and the boot ROM's
// read-only behavior comes entirely from wrapping its Block-backed ROM
// in ReadOnly, not from Block itself.
type Block struct {
	data []byte
	zero []byte // original contents, restored on Reset
}

// NewBlock allocates a zero-filled Block of the given size.
func NewBlock(size int) *Block {
	return &Block{data: make([]byte, size), zero: make([]byte, size)}
}

// NewBlockFrom wraps existing content (e.g. a loaded ROM image) as a
// Block. The slice is not copied; Reset restores it to a snapshot taken
// at construction time.
func NewBlockFrom(content []byte) *Block {
	b := &Block{data: content, zero: make([]byte, len(content))}
	copy(b.zero, content)
	return b
}

func (b *Block) Len() int               { return len(b.data) }
func (b *Block) Contains(index int) bool { return index >= 0 && index < len(b.data) }

func (b *Block) Read(index int) byte {
	if !b.Contains(index) {
		Log.WithField("index", index).Warn("device: out-of-range block read")
		return 0xFF
	}
	return b.data[index]
}

func (b *Block) Write(index int, v byte) {
	if !b.Contains(index) {
		Log.WithField("index", index).Warn("device: out-of-range block write")
		return
	}
	b.data[index] = v
}

func (b *Block) Reset() { copy(b.data, b.zero) }

// Bytes exposes the backing slice directly for bulk load operations
// (cartridge ROM loading, VRAM dumps for tooling). Callers must not retain
// it past a Reset.
func (b *Block) Bytes() []byte { return b.data }

// RAM is a plain read/write Block — work RAM, high RAM, VRAM, OAM.
type RAM struct{ *Block }

// NewRAM allocates zero-filled RAM of the given size.
func NewRAM(size int) *RAM { return &RAM{NewBlock(size)} }

// ROM is a Block used for content that is conceptually read-only on real
// hardware (boot ROM image, cartridge ROM) but is, per spec, a plain
// mutable backing store in this emulator; wrap it in ReadOnly where the
// read-only behavior must actually be enforced (the boot ROM overlay).
type ROM struct{ *Block }

// NewROM wraps the given content as a ROM device.
func NewROM(content []byte) *ROM { return &ROM{NewBlockFrom(content)} }

// ReadOnly wraps any Device and drops writes, logging a warning. It never
// mutates observable state.
type ReadOnly struct {
	Device
	name string
}

// NewReadOnly wraps d. name is used only for diagnostics.
func NewReadOnly(name string, d Device) *ReadOnly { return &ReadOnly{Device: d, name: name} }

func (r *ReadOnly) Write(index int, v byte) {
	Log.WithField("device", r.name).WithField("index", index).Warn("device: write to read-only device dropped")
}

// Register is a small device for CPU-visible control registers whose
// writes have side effects beyond storing the byte (DIV reset, LCDC
// power toggle, TAC edge detection, ...). OnWrite, when set, is called
// instead of storing the written byte directly; its return value is what
// gets stored as Value.
// OnRead, when set, overrides the returned byte (masking read-only bit
// patterns like "upper 3 bits read as 1").
type Register struct {
	Value   byte
	OnWrite func(old, new byte) byte // returns the value to store
	OnRead  func(stored byte) byte
}

// NewRegister creates a single-byte register initialized to v.
func NewRegister(v byte) *Register { return &Register{Value: v} }

func (r *Register) Len() int               { return 1 }
func (r *Register) Contains(index int) bool { return index == 0 }

func (r *Register) Read(index int) byte {
	if index != 0 {
		return 0xFF
	}
	if r.OnRead != nil {
		return r.OnRead(r.Value)
	}
	return r.Value
}

func (r *Register) Write(index int, v byte) {
	if index != 0 {
		return
	}
	if r.OnWrite != nil {
		r.Value = r.OnWrite(r.Value, v)
		return
	}
	r.Value = v
}

func (r *Register) Reset() { r.Value = 0 }
