package ppu

// fetchStage names one step of the tile-fetch state machine. Real
// hardware spends two dots per stage; Step advances exactly one stage
// per call, and the PPU calls it once per dot, so here each stage takes
// one dot.
type fetchStage int

const (
	StageReadTile fetchStage = iota
	StageReadData0
	StageReadData1
	StagePush
)

// vramReader abstracts tile/map byte access for the fetcher, letting
// tests exercise it against a plain byte slice instead of a live PPU.
type vramReader interface {
	vramByte(addr uint16) byte
}

// tileFetcher pulls one 8-pixel tile row into a fifo, one named stage at
// a time: ReadTile loads the tile index from the tilemap, ReadData0 and
// ReadData1 load the two bitplane bytes for the tile row, and Push
// decodes the eight 2-bit color indices and pushes them.
type tileFetcher struct {
	mem  vramReader
	fifo *fifo

	mapBase       uint16
	tileData8000  bool
	tileIndexAddr uint16
	fineY         byte

	stage   fetchStage
	tileNum byte
	lo, hi  byte
}

func newTileFetcher(mem vramReader, f *fifo) *tileFetcher {
	return &tileFetcher{mem: mem, fifo: f}
}

// Configure starts a fresh fetch at the named tilemap slot and resets
// the stage to ReadTile.
func (fch *tileFetcher) Configure(mapBase uint16, tileData8000 bool, tileIndexAddr uint16, fineY byte) {
	fch.mapBase = mapBase
	fch.tileData8000 = tileData8000
	fch.tileIndexAddr = tileIndexAddr
	fch.fineY = fineY & 7
	fch.stage = StageReadTile
}

// Step runs one stage of the fetch and advances to the next. It returns
// true once Push has run and eight pixels have been queued.
func (fch *tileFetcher) Step() (done bool) {
	switch fch.stage {
	case StageReadTile:
		fch.tileNum = fch.mem.vramByte(fch.tileIndexAddr)
		fch.stage = StageReadData0
	case StageReadData0:
		fch.lo = fch.mem.vramByte(fch.tileDataAddr())
		fch.stage = StageReadData1
	case StageReadData1:
		fch.hi = fch.mem.vramByte(fch.tileDataAddr() + 1)
		fch.stage = StagePush
	case StagePush:
		if fch.fifo.Len() > 8 {
			return false // backpressure: fifo still draining, hold the row
		}
		for px := 0; px < 8; px++ {
			bit := 7 - byte(px)
			ci := ((fch.hi>>bit)&1)<<1 | ((fch.lo >> bit) & 1)
			fch.fifo.Push(ci)
		}
		fch.stage = StageReadTile
		return true
	}
	return false
}

func (fch *tileFetcher) tileDataAddr() uint16 {
	if fch.tileData8000 {
		return 0x8000 + uint16(fch.tileNum)*16 + uint16(fch.fineY)*2
	}
	return 0x9000 + uint16(int8(fch.tileNum))*16 + uint16(fch.fineY)*2
}

// runToCompletion drives every stage of one tile fetch back to back, for
// callers that composite a whole scanline at once rather than dot by dot.
func (fch *tileFetcher) runToCompletion() {
	for !fch.Step() {
	}
}

// fifo is a ring buffer of 2-bit color indices.
type fifo struct {
	buf  [16]byte
	head int
	tail int
	size int
}

func (q *fifo) Clear()   { q.head, q.tail, q.size = 0, 0, 0 }
func (q *fifo) Len() int { return q.size }

func (q *fifo) Push(ci byte) bool {
	if q.size == len(q.buf) {
		return false
	}
	q.buf[q.tail] = ci & 0x03
	q.tail = (q.tail + 1) % len(q.buf)
	q.size++
	return true
}

func (q *fifo) Pop() (byte, bool) {
	if q.size == 0 {
		return 0, false
	}
	v := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return v, true
}
