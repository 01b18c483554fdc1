// Package bus implements the address-decoding fabric: a table of
// (base, Device) entries covering the CPU's 64 KiB address space. It owns
// no behavior of its own beyond address decode, last-mapped-wins reads,
// fan-out writes, and identity-deduped reset — the canonical console
// address map is assembled by internal/machine.
package bus

import (
	"reflect"

	"github.com/sirupsen/logrus"
)

// Log is the package-level logger for bus-level anomalies.
var Log = logrus.New()

// Device is the capability every mapped entity exposes. Defined locally
// (rather than imported from internal/device) to keep the bus decoupled
// from any one backing-store implementation; internal/device.Device
// satisfies it structurally.
type Device interface {
	Len() int
	Contains(index int) bool
	Read(index int) byte
	Write(index int, v byte)
	Reset()
}

type entry struct {
	base   int
	device Device
}

// Bus is a linear-scan address-range decoder. Entries are consulted in
// reverse insertion order for reads (last-mapped wins) and in forward
// order for writes (every containing device receives the write — see
// Write).
type Bus struct {
	entries []entry
}

// New returns an empty Bus with no mapped devices; every address reads
// as 0xFF until Map is called.
func New() *Bus { return &Bus{} }

// Map installs d at CPU address base. Insertion order carries meaning:
// when two devices' ranges overlap, the later Map call wins for reads.
// The canonical address map and its overlap (boot ROM over cartridge
// ROM) is documented in internal/machine.
func (b *Bus) Map(base int, d Device) {
	b.entries = append(b.entries, entry{base: base, device: d})
}

// Read returns the byte at CPU address a. Unmapped addresses read as
// 0xFF (spec's resolved Open Question on hardware convention).
func (b *Bus) Read(a uint16) byte {
	addr := int(a)
	for i := len(b.entries) - 1; i >= 0; i-- {
		e := b.entries[i]
		idx := addr - e.base
		if e.device.Contains(idx) {
			return e.device.Read(idx)
		}
	}
	Log.WithField("addr", addr).Warn("bus: unmapped read")
	return 0xFF
}

// Write delivers v to every mapped device whose range contains a. Devices
// that should not observe a write at an overlapping address (e.g. the
// boot ROM overlay) are expected to wrap themselves in device.ReadOnly so
// the write is a no-op rather than excluding the address from the scan.
func (b *Bus) Write(a uint16, v byte) {
	addr := int(a)
	hit := false
	for _, e := range b.entries {
		idx := addr - e.base
		if e.device.Contains(idx) {
			e.device.Write(idx, v)
			hit = true
		}
	}
	if !hit {
		Log.WithField("addr", addr).Warn("bus: unmapped write")
	}
}

// Reset resets every mapped device, deduplicated by identity so a device
// mapped at more than one base is not reset twice. Devices whose type is
// not comparable (internal/cart's closure-backed views) cannot be keyed
// by identity and are reset once per mapping.
func (b *Bus) Reset() {
	seen := make(map[Device]bool, len(b.entries))
	for _, e := range b.entries {
		if reflect.TypeOf(e.device).Comparable() {
			if seen[e.device] {
				continue
			}
			seen[e.device] = true
		}
		e.device.Reset()
	}
}
