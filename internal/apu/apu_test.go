package apu

import "testing"

func TestAPU_NR52ReflectsPower(t *testing.T) {
	a := New(48000)
	regs := a.Registers()
	if regs.Read(0xFF26-0xFF10)&0x80 == 0 {
		t.Fatalf("APU should power on by default")
	}
	regs.Write(0xFF26-0xFF10, 0x00)
	if a.enabled {
		t.Fatalf("clearing bit7 of NR52 should power off the APU")
	}
}

func TestAPU_WaveRAMReadWrite(t *testing.T) {
	a := New(48000)
	wave := a.Wave()
	wave.Write(0, 0xAB)
	if got := wave.Read(0); got != 0xAB {
		t.Fatalf("wave RAM readback got %#x want 0xAB", got)
	}
	if got := a.CPURead(0xFF30); got != 0xAB {
		t.Fatalf("CPURead(0xFF30) got %#x want 0xAB", got)
	}
}

func TestAPU_Channel1TriggerEnablesAndTicks(t *testing.T) {
	a := New(48000)
	regs := a.Registers()
	regs.Write(0xFF12-0xFF10, 0xF0) // max volume, DAC on
	regs.Write(0xFF14-0xFF10, 0x80) // trigger
	if !a.ch1.enabled {
		t.Fatalf("triggering CH1 with DAC enabled should enable the channel")
	}
	before := a.ch1.timer
	a.Tick(100)
	if a.ch1.timer == before {
		t.Fatalf("channel timer should have ticked")
	}
}

func TestAPU_DrainSamplesProducesOutput(t *testing.T) {
	a := New(48000)
	regs := a.Registers()
	regs.Write(0xFF12-0xFF10, 0xF0)
	regs.Write(0xFF14-0xFF10, 0x80)
	a.Tick(4194304 / 48000 * 10)
	samples := a.DrainSamples(100)
	if len(samples) == 0 {
		t.Fatalf("expected some stereo samples after ticking past a sample boundary")
	}
	if len(samples)%2 != 0 {
		t.Fatalf("stereo samples must come in interleaved L/R pairs, got odd length %d", len(samples))
	}
}

func TestAPU_DeviceContainsBounds(t *testing.T) {
	a := New(48000)
	regs := a.Registers()
	if !regs.Contains(0) || regs.Contains(regs.Len()) {
		t.Fatalf("Contains should bound-check the register window")
	}
}
