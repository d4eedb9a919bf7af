// Command deferred opens a window and renders the cube grid with the deferred renderer.
//
// Keys: Esc or Q quits, P toggles the profiler.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/webgpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logging"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
)

func run() error {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	configPath := fs.String("config", "", "YAML options file (defaults to $OXY_CONFIG)")
	profile := fs.Bool("profile", false, "log frame statistics every second")
	fpsLimit := fs.Float64("fps-limit", 0, "cap the render loop at this many frames per second (0 = uncapped)")
	fallback := fs.Bool("fallback-adapter", false, "force the software fallback adapter")
	verbose := fs.Bool("v", false, "enable debug logging")
	overrides := config.Flags(fs)

	if err := fs.Parse(os.Args[1:]); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	opts, err := loadOptions(common.Coalesce(*configPath, os.Getenv("OXY_CONFIG")), overrides())
	if err != nil {
		return err
	}

	w, err := window.NewWindow(
		window.WithTitle("oxy-deferred"),
		window.WithSize(opts.Width, opts.Height),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	device, surface, err := webgpu.New(w.SurfaceDescriptor(), w.Width(), w.Height(),
		webgpu.WithVSync(opts.VSync),
		webgpu.WithForceFallbackAdapter(*fallback),
	)
	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	r, err := renderer.NewRenderer(renderer.Backend{
		Type:    renderer.BackendTypeWGPU,
		Device:  device,
		Surface: surface,
		Close:   device.Close,
	}, opts)
	if err != nil {
		return errors.Join(err, device.Close())
	}

	eng := engine.NewEngine(r,
		engine.WithMessageLoop(w),
		engine.WithProfiling(*profile),
		engine.WithRenderFrameLimit(*fpsLimit),
	)
	w.SetKeyDownCallback(func(keyCode uint32) {
		switch keyCode {
		case common.KeyEsc, common.KeyQ:
			eng.Quit()
		case common.KeyP:
			eng.ToggleProfiler()
		}
	})
	return eng.Run()
}

// loadOptions reads path when one is given, otherwise starts from the defaults.
func loadOptions(path string, overrides []config.OptionsBuilderOption) (config.Options, error) {
	if path == "" {
		return config.New(overrides...)
	}
	return config.Load(path, overrides...)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "deferred: %v\n", err)
		os.Exit(1)
	}
}
