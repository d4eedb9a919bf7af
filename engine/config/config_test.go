package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMatchesRendererDefaults(t *testing.T) {
	o := Default()
	if !o.Threads || !o.ShadowPass || !o.Textures || !o.RootConstants {
		t.Errorf("Default() feature flags = %+v, want all enabled", o)
	}
	if o.ObjectCount() != 1000 {
		t.Errorf("ObjectCount() = %d, want 1000", o.ObjectCount())
	}
	if o.ShadowMapSize != 2048 {
		t.Errorf("ShadowMapSize = %d, want 2048", o.ShadowMapSize)
	}
	if err := o.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestParseKeepsDefaultsForMissingKeys(t *testing.T) {
	o, err := Parse([]byte("shadow_pass: false\nworkers: 3\n"))
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	if o.ShadowPass {
		t.Error("ShadowPass = true, want false")
	}
	if o.Workers != 3 {
		t.Errorf("Workers = %d, want 3", o.Workers)
	}
	if !o.Threads || o.ObjectsInRow != 10 {
		t.Errorf("defaults lost: Threads = %v, ObjectsInRow = %d", o.Threads, o.ObjectsInRow)
	}
}

func TestParseOverridesWinOverFile(t *testing.T) {
	o, err := Parse([]byte("threads: true\n"), WithThreads(false))
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	if o.Threads {
		t.Error("Threads = true, want override false")
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"negative workers", "workers: -1\n"},
		{"zero distance", "object_distance: 0\n"},
		{"zero size", "width: 0\n"},
		{"negative frames", "frames: -5\n"},
		{"bad yaml", "threads: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tt.doc)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.yaml")
	if err := os.WriteFile(path, []byte("objects_in_row: 4\ntextures: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	o, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if o.ObjectCount() != 64 || o.Textures {
		t.Errorf("Load() = %+v, want 64 objects without textures", o)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) succeeded, want error")
	}
}

func TestWorkerCount(t *testing.T) {
	o := Default()
	if got := o.WorkerCount(); got < 1 {
		t.Errorf("WorkerCount() = %d, want >= 1", got)
	}

	o, _ = New(WithWorkers(5))
	if got := o.WorkerCount(); got != 5 {
		t.Errorf("WorkerCount() = %d, want 5", got)
	}

	o, _ = New(WithWorkers(5), WithThreads(false))
	if got := o.WorkerCount(); got != 1 {
		t.Errorf("WorkerCount() without threads = %d, want 1", got)
	}
}
