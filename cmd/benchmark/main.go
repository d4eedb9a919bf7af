// Command benchmark renders a fixed number of frames on the headless backend and prints
// CPU recording and fence wait statistics.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/headless"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logging"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/sequencer"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// defaultFrames is used when neither the config file nor -frames sets a frame count.
const defaultFrames = 500

func run() error {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	configPath := fs.String("config", "", "YAML options file (defaults to $OXY_CONFIG)")
	latency := fs.Duration("latency", 0, "simulated GPU time per submitted command buffer")
	profile := fs.Bool("profile", false, "log frame statistics every second")
	verbose := fs.Bool("v", false, "enable info logging")
	overrides := config.Flags(fs)

	if err := fs.Parse(os.Args[1:]); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	level := slog.LevelWarn
	if *verbose || *profile {
		level = slog.LevelInfo
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	path := common.Coalesce(*configPath, os.Getenv("OXY_CONFIG"))
	var (
		opts config.Options
		err  error
	)
	if path == "" {
		opts, err = config.New(overrides()...)
	} else {
		opts, err = config.Load(path, overrides()...)
	}
	if err != nil {
		return err
	}
	if opts.Frames == 0 {
		opts.Frames = defaultFrames
	}

	r, err := renderer.NewRenderer(renderer.NewHeadlessBackend(opts, headless.WithLatency(*latency)), opts)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if term.IsTerminal(int(os.Stderr.Fd())) {
		bar = progressbar.Default(int64(opts.Frames), "rendering")
	}
	s := newSummary(r.Workers())
	eng := engine.NewEngine(r,
		engine.WithProfiling(*profile),
		engine.WithFrameCallback(func(stats sequencer.FrameStats) {
			s.add(stats)
			if bar != nil {
				bar.Add(1)
			}
		}),
	)

	start := time.Now()
	err = eng.Run()
	elapsed := time.Since(start)
	if bar != nil {
		bar.Close()
	}
	if err != nil {
		return err
	}

	s.write(os.Stdout, opts, r.Threaded(), elapsed)
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run benchmark: %v\n", err)
		os.Exit(1)
	}
}
