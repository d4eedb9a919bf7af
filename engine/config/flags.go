package config

import "flag"

// Flags registers one command-line flag per option on fs, with the defaults as flag defaults.
// The returned function, called after fs.Parse, yields overrides for the flags that were
// set explicitly, so a YAML file keeps every value the command line leaves alone.
//
// Parameters:
//   - fs: the flag set to register on
//
// Returns:
//   - func() []OptionsBuilderOption: collects the explicit overrides
func Flags(fs *flag.FlagSet) func() []OptionsBuilderOption {
	d := Default()
	threads := fs.Bool("threads", d.Threads, "record G-buffer draws on worker goroutines")
	workers := fs.Int("workers", d.Workers, "number of G-buffer workers (0 = CPU count)")
	shadow := fs.Bool("shadow", d.ShadowPass, "record the shadow depth pass")
	textures := fs.Bool("textures", d.Textures, "bind a texture per object")
	roots := fs.Bool("root-constants", d.RootConstants, "upload a per-object shift as root constants")
	rows := fs.Int("objects", d.ObjectsInRow, "cubes per grid row (the grid holds objects^3 cubes)")
	distance := fs.Float64("distance", float64(d.ObjectDistance), "spacing between neighboring cubes")
	width := fs.Int("width", d.Width, "surface width in pixels")
	height := fs.Int("height", d.Height, "surface height in pixels")
	shadowSize := fs.Int("shadow-size", d.ShadowMapSize, "shadow map edge length")
	vsync := fs.Bool("vsync", d.VSync, "present with vsync")
	frames := fs.Int("frames", d.Frames, "stop after this many frames (0 = until closed)")

	return func() []OptionsBuilderOption {
		var out []OptionsBuilderOption
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "threads":
				out = append(out, WithThreads(*threads))
			case "workers":
				out = append(out, WithWorkers(*workers))
			case "shadow":
				out = append(out, WithShadowPass(*shadow))
			case "textures":
				out = append(out, WithTextures(*textures))
			case "root-constants":
				out = append(out, WithRootConstants(*roots))
			case "objects":
				out = append(out, WithObjectsInRow(*rows))
			case "distance":
				out = append(out, WithObjectDistance(float32(*distance)))
			case "width":
				out = append(out, func(o *Options) { o.Width = *width })
			case "height":
				out = append(out, func(o *Options) { o.Height = *height })
			case "shadow-size":
				out = append(out, WithShadowMapSize(*shadowSize))
			case "vsync":
				out = append(out, WithVSync(*vsync))
			case "frames":
				out = append(out, WithFrames(*frames))
			}
		})
		return out
	}
}

