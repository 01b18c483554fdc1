package ui

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/dmg-core/dmgcore/internal/machine"
)

// App is the ebiten-driven window around a Machine: it turns keyboard
// state into Buttons, steps one frame per Update, blits the
// framebuffer, and streams audio through an apuStream.
type App struct {
	cfg     Config
	m       *machine.Machine
	romPath string

	tex    *ebiten.Image
	paused bool

	audioCtx    *audio.Context
	audioPlayer *audio.Player
	audioSrc    *apuStream
	muted       bool

	currentSlot int

	toastMsg   string
	toastUntil time.Time
}

// NewApp wires m into a window titled per cfg. romPath is used only to
// name battery-save files alongside the ROM.
func NewApp(cfg Config, m *machine.Machine, romPath string) *App {
	cfg = loadSettings(cfg)
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(160*cfg.Scale, 144*cfg.Scale)

	a := &App{cfg: cfg, m: m, romPath: romPath, muted: cfg.AudioMuted}
	a.audioCtx = audio.NewContext(48000)
	if data, err := os.ReadFile(a.batterySlotPath(0)); err == nil {
		m.LoadBattery(data)
	}
	return a
}

func (a *App) Run() error { return ebiten.RunGame(a) }

// SaveSettings persists current settings to disk.
func (a *App) SaveSettings() { a.saveSettings() }

func (a *App) Update() error {
	if a.audioPlayer == nil {
		a.audioSrc = &apuStream{m: a.m, muted: &a.muted, lowLatency: a.cfg.AudioLowLatency}
		if p, err := a.audioCtx.NewPlayer(a.audioSrc); err == nil {
			a.audioPlayer = p
			a.applyPlayerBufferSize()
			a.audioPlayer.Play()
		}
	}

	var btn machine.Buttons
	btn.Right = ebiten.IsKeyPressed(ebiten.KeyRight)
	btn.Left = ebiten.IsKeyPressed(ebiten.KeyLeft)
	btn.Up = ebiten.IsKeyPressed(ebiten.KeyUp)
	btn.Down = ebiten.IsKeyPressed(ebiten.KeyDown)
	btn.A = ebiten.IsKeyPressed(ebiten.KeyZ)
	btn.B = ebiten.IsKeyPressed(ebiten.KeyX)
	btn.Start = ebiten.IsKeyPressed(ebiten.KeyEnter)
	btn.Select = ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	a.m.SetButtons(btn)

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		a.m.Reset()
		a.toast("Reset")
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		a.muted = !a.muted
		a.cfg.AudioMuted = a.muted
		a.toast(fmt.Sprintf("Audio: %s", map[bool]string{true: "muted", false: "on"}[a.muted]))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) {
		a.cfg.Scale++
		ebiten.SetWindowSize(160*a.cfg.Scale, 144*a.cfg.Scale)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) && a.cfg.Scale > 1 {
		a.cfg.Scale--
		ebiten.SetWindowSize(160*a.cfg.Scale, 144*a.cfg.Scale)
	}
	for k := ebiten.Key1; k <= ebiten.Key4; k++ {
		if inpututil.IsKeyJustPressed(k) {
			a.currentSlot = int(k - ebiten.Key1)
			a.toast(fmt.Sprintf("Slot %d", a.currentSlot+1))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		if err := a.saveBatterySlot(a.currentSlot); err != nil {
			a.toast("Save failed")
		} else {
			a.toast(fmt.Sprintf("Saved slot %d", a.currentSlot+1))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		if err := a.loadBatterySlot(a.currentSlot); err != nil {
			a.toast("Load failed")
		} else {
			a.toast(fmt.Sprintf("Loaded slot %d", a.currentSlot+1))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		a.saveSettings()
		return ebiten.Termination
	}

	if !a.paused {
		a.m.StepFrame()
	} else if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		a.m.StepFrame()
	}

	return nil
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(160, 144)
	}
	a.tex.WritePixels(a.m.Framebuffer())
	screen.DrawImage(a.tex, nil)

	if a.paused {
		overlay := ebiten.NewImage(160, 144)
		overlay.Fill(color.RGBA{0, 0, 0, 90})
		screen.DrawImage(overlay, nil)
		ebitenutil.DebugPrintAt(screen, "PAUSED", 60, 68)
	}

	if a.toastMsg != "" && time.Now().Before(a.toastUntil) {
		ebitenutil.DebugPrintAt(screen, a.toastMsg, 6, 4)
	}
}

func (a *App) Layout(outW, outH int) (int, int) { return 160, 144 }

func (a *App) toast(msg string) {
	a.toastMsg = msg
	a.toastUntil = time.Now().Add(2 * time.Second)
}

// batterySlotPath names the battery-save file for slot next to the ROM.
// This stands in for a full save-state: only cartridge RAM is
// persisted, not CPU/PPU/APU register state, since the core does not
// implement a whole-machine snapshot format.
func (a *App) batterySlotPath(slot int) string {
	base := a.romPath
	if base == "" {
		base = "unknown.gb"
	}
	dir := filepath.Dir(base)
	name := filepath.Base(base)
	return filepath.Join(dir, fmt.Sprintf("%s.slot%d.sav", name, slot))
}

func (a *App) saveBatterySlot(slot int) error {
	data := a.m.SaveBattery()
	if data == nil {
		return fmt.Errorf("cartridge has no battery-backed RAM")
	}
	return os.WriteFile(a.batterySlotPath(slot), data, 0644)
}

func (a *App) loadBatterySlot(slot int) error {
	data, err := os.ReadFile(a.batterySlotPath(slot))
	if err != nil {
		return err
	}
	a.m.LoadBattery(data)
	return nil
}

func settingsPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		d := filepath.Join(dir, "gbemu")
		_ = os.MkdirAll(d, 0755)
		return filepath.Join(d, "settings.json")
	}
	exe, _ := os.Executable()
	return filepath.Join(filepath.Dir(exe), "gbemu_settings.json")
}

func loadSettings(override Config) Config {
	var cfg Config
	if b, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(b, &cfg)
	}
	if override.Title != "" {
		cfg.Title = override.Title
	}
	if override.Scale != 0 {
		cfg.Scale = override.Scale
	}
	if override.ROMsDir != "" {
		cfg.ROMsDir = override.ROMsDir
	}
	cfg.AudioLowLatency = override.AudioLowLatency || cfg.AudioLowLatency
	return cfg
}

func (a *App) saveSettings() {
	if a == nil {
		return
	}
	b, _ := json.MarshalIndent(a.cfg, "", "  ")
	_ = os.WriteFile(settingsPath(), b, 0644)
}
