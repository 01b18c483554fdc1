package machine

import "testing"

func blankROM() []byte {
	rom := make([]byte, 0x8000)
	rom[0x0147] = 0x00 // NoMBC
	rom[0x0148] = 0x00 // 32 KiB
	return rom
}

func TestMachine_LoadStartsWithBootOverlayEnabled(t *testing.T) {
	m := New(Config{})
	if err := m.Load(blankROM()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.Enabled() {
		t.Fatalf("boot overlay should be enabled right after Load")
	}
}

func TestMachine_StepThroughBootStubDisablesOverlayAndEntersCartridge(t *testing.T) {
	m := New(Config{})
	rom := blankROM()
	rom[0x0100] = 0x00 // NOP at cartridge entry point
	rom[0x0101] = 0x18 // JR -2 (spin in place)
	rom[0x0102] = 0xFE
	if err := m.Load(rom); err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i := 0; i < 50 && m.Enabled(); i++ {
		m.StepInstruction()
	}
	if m.Enabled() {
		t.Fatalf("boot overlay should have disabled itself by now")
	}
}

func TestMachine_FramebufferIsCorrectSize(t *testing.T) {
	m := New(Config{})
	fb := m.Framebuffer()
	if len(fb) != 160*144*4 {
		t.Fatalf("framebuffer size got %d want %d", len(fb), 160*144*4)
	}
}

func TestMachine_SetButtonsReachesJoypad(t *testing.T) {
	m := New(Config{})
	m.bus.Write(0xFF00, 0x10) // select the button group (P15 low)
	m.SetButtons(Buttons{A: true})
	v := m.bus.Read(0xFF00)
	if v&0x01 != 0 {
		t.Fatalf("A pressed should read back as bit0 low, got %#x", v)
	}
}

func TestMachine_ResetReenablesBootOverlay(t *testing.T) {
	m := New(Config{})
	if err := m.Load(blankROM()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i := 0; i < 50 && m.Enabled(); i++ {
		m.StepInstruction()
	}
	m.Reset()
	if !m.Enabled() {
		t.Fatalf("Reset should re-enable the boot overlay")
	}
}

func TestMachine_SaveLoadBatteryRoundTrips(t *testing.T) {
	m := New(Config{})
	rom := blankROM()
	rom[0x0147] = 0x03 // MBC1+RAM+BATTERY
	rom[0x0149] = 0x02 // 8 KiB RAM
	if err := m.Load(rom); err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.bus.Write(0x0000, 0x0A) // enable cart RAM
	m.bus.Write(0xA000, 0x42)
	saved := m.SaveBattery()
	if saved == nil {
		t.Fatalf("expected non-nil battery save for MBC1+BATTERY cartridge")
	}
	m2 := New(Config{})
	if err := m2.Load(rom); err != nil {
		t.Fatalf("Load: %v", err)
	}
	m2.LoadBattery(saved)
	m2.bus.Write(0x0000, 0x0A)
	if got := m2.bus.Read(0xA000); got != 0x42 {
		t.Fatalf("restored battery RAM byte got %#x want 0x42", got)
	}
}
