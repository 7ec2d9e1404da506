package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli"
	"github.com/dmgcore/jeebie/jeebie"
	"github.com/dmgcore/jeebie/jeebie/backend"
	"github.com/dmgcore/jeebie/jeebie/backend/headless"
	"github.com/dmgcore/jeebie/jeebie/backend/sdl2"
	"github.com/dmgcore/jeebie/jeebie/backend/terminal"
	"github.com/dmgcore/jeebie/jeebie/input/action"
	"github.com/dmgcore/jeebie/jeebie/input/event"
	"github.com/dmgcore/jeebie/jeebie/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "Jeebie"
	app.Description = "A simple gameboy emulator"
	app.Usage = "jeebie [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "backend",
			Usage: "Backend to use: terminal, sdl2 or headless",
			Value: "terminal",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
			Value: 0,
		},
		cli.BoolFlag{
			Name:  "test-pattern",
			Usage: "Display a test pattern instead of emulation (for debugging display)",
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save frame snapshots every N frames in headless mode (0 = disabled)",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: temp directory)",
		},
		cli.IntFlag{
			Name:  "scale",
			Usage: "Window scale factor (sdl2 backend only)",
			Value: 3,
		},
		cli.BoolFlag{
			Name:  "vsync",
			Usage: "Enable vsync (sdl2 backend only)",
		},
	}
	app.Action = runEmulator

	if err := app.Run(os.Args); err != nil {
		slog.Error("running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" && c.NArg() > 0 {
		romPath = c.Args().Get(0)
	}

	testPattern := c.Bool("test-pattern")
	if romPath == "" && !testPattern {
		cli.ShowAppHelp(c)
		return errors.New("no ROM path provided")
	}

	be, err := selectBackend(c, romPath)
	if err != nil {
		return err
	}

	var emu jeebie.Emulator
	if testPattern {
		emu = jeebie.NewTestPatternEmulator()
	} else {
		dmg, err := jeebie.NewWithFile(romPath)
		if err != nil {
			return fmt.Errorf("loading rom %q: %w", romPath, err)
		}
		defer func() {
			if err := dmg.Save(); err != nil {
				slog.Error("saving cartridge state", "error", err)
			}
		}()
		emu = dmg
	}

	config := backend.BackendConfig{
		Title:       "Jeebie",
		Scale:       c.Int("scale"),
		VSync:       c.Bool("vsync"),
		TestPattern: testPattern,
	}
	if provider, ok := emu.(backend.DebugDataProvider); ok {
		config.DebugProvider = provider
	}
	if dmg, ok := emu.(*jeebie.DMG); ok {
		config.AudioProvider = dmg.GetAudioProvider()
	}

	if err := be.Init(config); err != nil {
		return fmt.Errorf("initializing backend: %w", err)
	}
	defer be.Cleanup()

	if c.String("backend") == "headless" {
		emu.SetFrameLimiter(timing.NewNoOpLimiter())
	} else {
		emu.SetFrameLimiter(timing.NewAdaptiveLimiter())
	}
	emu.ResetFrameTiming()

	// The headless backend drives no interactive input, so its DMG run can
	// be moved to its own goroutine and handed off to the host loop below
	// through jeebie.FrameTransport's bounded channel: the emulator thread
	// and the snapshot loop only ever touch the shared frame through that
	// queue. Interactive backends keep polling input on this goroutine, so
	// they stay on the synchronous loop to avoid reading/writing joypad
	// state across goroutines.
	if dmg, ok := emu.(*jeebie.DMG); ok && c.String("backend") == "headless" {
		return runHeadlessAsync(dmg, be)
	}

	for {
		if err := emu.RunUntilFrame(); err != nil {
			return fmt.Errorf("running frame: %w", err)
		}

		events, err := be.Update(emu.GetCurrentFrame())
		if err != nil {
			return fmt.Errorf("updating backend: %w", err)
		}

		quit := false
		for _, ev := range events {
			if ev.Action == action.EmulatorQuit {
				quit = true
				continue
			}
			emu.HandleAction(ev.Action, ev.Type != event.Release)
		}
		if quit {
			break
		}
	}

	return nil
}

func selectBackend(c *cli.Context, romPath string) (backend.Backend, error) {
	name := c.String("backend")

	switch name {
	case "terminal":
		return terminal.New(), nil
	case "sdl2":
		return sdl2.New(), nil
	case "headless":
		frames := c.Int("frames")
		if frames <= 0 {
			return nil, errors.New("headless backend requires --frames with a positive value")
		}

		snapshotInterval := c.Int("snapshot-interval")
		snapshotDir := c.String("snapshot-dir")
		if snapshotInterval > 0 && snapshotDir == "" {
			tempDir, err := os.MkdirTemp("", "jeebie-snapshots-*")
			if err != nil {
				return nil, fmt.Errorf("creating snapshot directory: %w", err)
			}
			snapshotDir = tempDir
		}

		romName := ""
		if romPath != "" {
			romName = filepath.Base(romPath)
		}

		return headless.New(frames, headless.SnapshotConfig{
			Enabled:   snapshotInterval > 0,
			Interval:  snapshotInterval,
			Directory: snapshotDir,
			ROMName:   romName,
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want terminal, sdl2 or headless)", name)
	}
}

// frameReceiveTimeout bounds how long runHeadlessAsync waits on the
// emulator goroutine for the next frame before checking whether it has
// exited; it is generous because headless runs have no real-time pacing
// requirement of their own.
const frameReceiveTimeout = 5 * time.Second

// runHeadlessAsync drives dmg on its own goroutine via DMG.RunAsync,
// consuming completed frames from the bounded jeebie.FrameTransport on the
// calling goroutine. The headless backend never produces joypad input, so
// this is the one call site where the emulator and host run as genuinely
// separate goroutines rather than a single synchronous loop.
func runHeadlessAsync(dmg *jeebie.DMG, be backend.Backend) error {
	frames := jeebie.NewFrameTransport(jeebie.DefaultFrameQueueCapacity)
	stop := make(chan struct{})
	defer close(stop)

	done := make(chan error, 1)
	go func() {
		done <- dmg.RunAsync(frames, nil, 0, stop)
	}()

	for {
		frame := frames.Receive(frameReceiveTimeout)
		if frame == nil {
			select {
			case err := <-done:
				return err
			default:
				continue
			}
		}

		events, err := be.Update(frame)
		if err != nil {
			return fmt.Errorf("updating backend: %w", err)
		}

		for _, ev := range events {
			if ev.Action == action.EmulatorQuit {
				return nil
			}
		}
	}
}
