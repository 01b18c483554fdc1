package bus

import "testing"

type stub struct {
	size    int
	data    []byte
	resets  int
	written []int
}

func newStub(size int) *stub { return &stub{size: size, data: make([]byte, size)} }

func (s *stub) Len() int               { return s.size }
func (s *stub) Contains(i int) bool     { return i >= 0 && i < s.size }
func (s *stub) Read(i int) byte         { return s.data[i] }
func (s *stub) Write(i int, v byte)     { s.data[i] = v; s.written = append(s.written, i) }
func (s *stub) Reset()                  { s.resets++ }

func TestBus_BasicDecode(t *testing.T) {
	b := New()
	d := newStub(0x10)
	b.Map(0x100, d)

	b.Write(0x105, 0x42)
	if got := b.Read(0x105); got != 0x42 {
		t.Fatalf("read back got %#02x want 0x42", got)
	}
	if d.data[5] != 0x42 {
		t.Fatalf("device-local index wrong: %v", d.data)
	}
}

func TestBus_UnmappedReadsFF(t *testing.T) {
	b := New()
	if got := b.Read(0x1234); got != 0xFF {
		t.Fatalf("unmapped read got %#02x want 0xFF", got)
	}
}

func TestBus_LastMappedWinsForReads(t *testing.T) {
	b := New()
	lo := newStub(0x100)
	hi := newStub(0x100)
	lo.data[0x40] = 0xC3
	hi.data[0x40] = 0xAA
	b.Map(0, lo)
	b.Map(0, hi) // overlapping, mapped later
	if got := b.Read(0x40); got != 0xAA {
		t.Fatalf("last-mapped device should win for reads, got %#02x", got)
	}
}

func TestBus_WritesFanOutToAllOverlappingDevices(t *testing.T) {
	b := New()
	lo := newStub(0x100)
	hi := newStub(0x100)
	b.Map(0, lo)
	b.Map(0, hi)
	b.Write(0x10, 0x55)
	if lo.data[0x10] != 0x55 || hi.data[0x10] != 0x55 {
		t.Fatalf("write did not fan out: lo=%#02x hi=%#02x", lo.data[0x10], hi.data[0x10])
	}
}

func TestBus_ResetDedupesByIdentity(t *testing.T) {
	b := New()
	shared := newStub(0x100)
	b.Map(0x1000, shared) // main region
	b.Map(0x2000, shared) // echo region, same backing device
	b.Reset()
	if shared.resets != 1 {
		t.Fatalf("shared device reset %d times, want 1", shared.resets)
	}
}

func TestBus_EveryAddressWritable(t *testing.T) {
	b := New()
	d := newStub(0x10000)
	b.Map(0, d)
	for a := 0; a <= 0xFFFF; a += 0x1111 {
		for v := 0; v <= 0xFF; v += 0x37 {
			b.Write(uint16(a), byte(v))
			if got := b.Read(uint16(a)); got != byte(v) {
				t.Fatalf("addr %#04x: got %#02x want %#02x", a, got, byte(v))
			}
		}
	}
}
