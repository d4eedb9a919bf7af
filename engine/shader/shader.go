// Package shader holds the WGSL source of every render pass, reflects binding layouts out of
// it and compiles it to SPIR-V through naga to validate it before pipelines are built.
package shader

import (
	"embed"
	"errors"
	"fmt"

	"github.com/gogpu/naga"
)

// Pass names one shader program.
type Pass string

const (
	PassShadow    Pass = "shadow"
	PassGBuffer   Pass = "gbuffer"
	PassAO        Pass = "ao"
	PassBlur      Pass = "blur"
	PassLighting  Pass = "lighting"
	PassIntensity Pass = "intensity"
	PassToneMap   Pass = "tonemap"
)

// Passes lists every pass in frame order.
var Passes = []Pass{PassShadow, PassGBuffer, PassAO, PassBlur, PassLighting, PassIntensity, PassToneMap}

//go:embed wgsl/*.wgsl
var sources embed.FS

// ErrUnknownPass is returned for a pass without embedded source.
var ErrUnknownPass = errors.New("shader: unknown pass")

// Source returns the WGSL source of pass p.
//
// Parameters:
//   - p: the pass
//
// Returns:
//   - string: WGSL source
//   - error: ErrUnknownPass when no source is embedded for p
func Source(p Pass) (string, error) {
	data, err := sources.ReadFile("wgsl/" + string(p) + ".wgsl")
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownPass, p)
	}
	return string(data), nil
}

// MustSource is like Source but panics on unknown passes. Used for the fixed pass table.
func MustSource(p Pass) string {
	src, err := Source(p)
	if err != nil {
		panic(err)
	}
	return src
}

// Compile compiles pass p to SPIR-V words.
//
// Parameters:
//   - p: the pass
//
// Returns:
//   - []uint32: SPIR-V words (little-endian)
//   - error: unknown pass or compile error
func Compile(p Pass) ([]uint32, error) {
	src, err := Source(p)
	if err != nil {
		return nil, err
	}
	return CompileSource(string(p), src)
}

// CompileSource compiles WGSL source to SPIR-V words. The name only labels errors.
//
// Parameters:
//   - name: the program name
//   - src: WGSL source
//
// Returns:
//   - []uint32: SPIR-V words (little-endian)
//   - error: parse, lowering or validation error
func CompileSource(name, src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("shader: compile %s: %w", name, err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("shader: compile %s: SPIR-V length %d is not word aligned", name, len(spirvBytes))
	}

	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// Validate compiles every pass and returns the joined compile errors.
func Validate() error {
	var errs []error
	for _, p := range Passes {
		if _, err := Compile(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
