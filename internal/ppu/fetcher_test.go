package ppu

import "testing"

func TestTileFetcher_StepsThroughAllFourStages(t *testing.T) {
	p := New(nil)
	p.vram[0x0000] = 0x01                  // tile index at 0x8000 map slot (offset within vram)
	p.vram[0x8010-0x8000] = 0xFF            // tile 1 row 0 lo-plane: all set
	p.vram[0x8010-0x8000+1] = 0x00          // hi-plane: clear

	var q fifo
	f := newTileFetcher(p, &q)
	f.Configure(0x8000, true, 0x8000, 0)

	if f.stage != StageReadTile {
		t.Fatalf("fresh fetcher should start at ReadTile")
	}
	if done := f.Step(); done || f.stage != StageReadData0 {
		t.Fatalf("after 1st step want ReadData0, got stage=%v done=%v", f.stage, done)
	}
	if done := f.Step(); done || f.stage != StageReadData1 {
		t.Fatalf("after 2nd step want ReadData1, got stage=%v done=%v", f.stage, done)
	}
	if done := f.Step(); done || f.stage != StagePush {
		t.Fatalf("after 3rd step want Push, got stage=%v done=%v", f.stage, done)
	}
	if done := f.Step(); !done {
		t.Fatalf("4th step should complete the fetch")
	}
	if q.Len() != 8 {
		t.Fatalf("fifo got %d pixels want 8", q.Len())
	}
	px, _ := q.Pop()
	if px != 1 {
		t.Fatalf("pixel decode got %d want 1 (lo bit set, hi bit clear)", px)
	}
}

func TestFifo_PushPopOrderAndCapacity(t *testing.T) {
	var q fifo
	for i := 0; i < 16; i++ {
		if !q.Push(byte(i % 4)) {
			t.Fatalf("push %d failed unexpectedly", i)
		}
	}
	if q.Push(1) {
		t.Fatalf("push into full fifo should fail")
	}
	v, ok := q.Pop()
	if !ok || v != 0 {
		t.Fatalf("first pop got %d ok=%v want 0", v, ok)
	}
}
