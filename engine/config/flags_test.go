package config

import (
	"flag"
	"io"
	"testing"
)

func parseFlags(t *testing.T, doc string, args ...string) Options {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	overrides := Flags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v) = %v", args, err)
	}
	o, err := Parse([]byte(doc), overrides()...)
	if err != nil {
		t.Fatalf("config.Parse() = %v", err)
	}
	return o
}

func TestFlagsOverrideOnlyExplicitValues(t *testing.T) {
	o := parseFlags(t, "workers: 6\nshadow_pass: false\n", "-threads=false", "-objects", "3")
	if o.Threads {
		t.Error("Threads = true, want false from flag")
	}
	if o.ObjectsInRow != 3 {
		t.Errorf("ObjectsInRow = %d, want 3", o.ObjectsInRow)
	}
	if o.Workers != 6 || o.ShadowPass {
		t.Errorf("file values lost: Workers = %d, ShadowPass = %v", o.Workers, o.ShadowPass)
	}
}

func TestFlagsSizeKeepsUnsetDimension(t *testing.T) {
	o := parseFlags(t, "height: 600\n", "-width", "800")
	if o.Width != 800 || o.Height != 600 {
		t.Errorf("size = %dx%d, want 800x600", o.Width, o.Height)
	}
}

func TestFlagsNoArgsKeepDefaults(t *testing.T) {
	o := parseFlags(t, "")
	if o != Default() {
		t.Errorf("options = %+v, want defaults", o)
	}
}
