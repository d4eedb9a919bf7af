package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

// TextureSize is the edge length of the generated object textures.
const TextureSize = 256

// texturePattern returns the RGBA color of texel (x, y).
type texturePattern func(x, y int) [4]byte

var texturePatterns = []struct {
	name    string
	pattern texturePattern
}{
	{"checker", func(x, y int) [4]byte {
		if (x/32+y/32)%2 == 0 {
			return [4]byte{230, 230, 230, 255}
		}
		return [4]byte{40, 40, 40, 255}
	}},
	{"stripes", func(x, y int) [4]byte {
		if (x/16)%2 == 0 {
			return [4]byte{200, 60, 40, 255}
		}
		return [4]byte{240, 180, 60, 255}
	}},
	{"gradient", func(x, y int) [4]byte {
		return [4]byte{byte(x), byte(y), byte(255 - x), 255}
	}},
}

// TexturePixels generates the RGBA8 pixels of texture i.
//
// Parameters:
//   - i: texture index in [0, TextureCount())
//
// Returns:
//   - []byte: TextureSize*TextureSize*4 bytes
func TexturePixels(i int) []byte {
	pattern := texturePatterns[i%len(texturePatterns)].pattern
	pixels := make([]byte, 0, TextureSize*TextureSize*4)
	for y := 0; y < TextureSize; y++ {
		for x := 0; x < TextureSize; x++ {
			c := pattern(x, y)
			pixels = append(pixels, c[:]...)
		}
	}
	return pixels
}

// TextureCount returns the number of generated textures objects cycle through.
func TextureCount() int {
	return len(texturePatterns)
}

func createTextures(device gpu.Device) ([]gpu.Resource, error) {
	textures := make([]gpu.Resource, 0, len(texturePatterns))
	for i, p := range texturePatterns {
		tex, err := device.CreateResource(gpu.ResourceDesc{
			Label:  "texture " + p.name,
			Kind:   gpu.KindTexture,
			Format: gpu.FormatRGBA8Unorm,
			Width:  TextureSize,
			Height: TextureSize,
			Pixels: TexturePixels(i),
		})
		if err != nil {
			return nil, fmt.Errorf("scene: texture %q: %w", p.name, err)
		}
		textures = append(textures, tex)
	}
	return textures, nil
}
