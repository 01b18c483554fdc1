package apu

import "github.com/dmg-core/dmgcore/internal/device"

// regsDevice exposes sound control NR10-NR52 as a bus window at 0xFF10-0xFF26.
type regsDevice struct{ a *APU }

func (d regsDevice) Len() int                 { return 0x17 }
func (d regsDevice) Contains(i int) bool       { return i >= 0 && i < d.Len() }
func (d regsDevice) Read(off int) byte        { return d.a.CPURead(0xFF10 + uint16(off)) }
func (d regsDevice) Write(off int, v byte)    { d.a.CPUWrite(0xFF10+uint16(off), v) }
func (d regsDevice) Reset()                   { *d.a = *New(d.a.sampleRate) }

// waveDevice exposes waveform RAM as a bus window at 0xFF30-0xFF3F.
type waveDevice struct{ a *APU }

func (d waveDevice) Len() int            { return 16 }
func (d waveDevice) Contains(i int) bool { return i >= 0 && i < 16 }
func (d waveDevice) Read(off int) byte   { return d.a.ch3.ram[off] }
func (d waveDevice) Write(off int, v byte) { d.a.ch3.ram[off] = v }
func (d waveDevice) Reset()              { d.a.ch3.ram = [16]byte{} }

// Registers returns the NR10-NR52 register window as a bus device.
func (a *APU) Registers() device.Device { return regsDevice{a} }

// Wave returns the FF30-FF3F waveform RAM window as a bus device.
func (a *APU) Wave() device.Device { return waveDevice{a} }

// DrainSamples pulls up to max stereo frames generated since the last
// drain, returned interleaved (L0,R0,L1,R1,...), so the slice holds up to
// 2*max values.
func (a *APU) DrainSamples(max int) []int16 {
	return a.PullStereo(max)
}
