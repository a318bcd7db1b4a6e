package imageutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSHA256Hex(t *testing.T) {
	assert.Equal(t,
		"9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		SHA256Hex([]byte("test")))
}

func TestDimensions(t *testing.T) {
	w, h, err := Dimensions(pngFixture(t, 40, 25))
	require.NoError(t, err)
	assert.Equal(t, 40, w)
	assert.Equal(t, 25, h)
}

func TestDimensions_Garbage(t *testing.T) {
	_, _, err := Dimensions([]byte("not an image"))
	assert.Error(t, err)
}

func TestEncodeJPEGBounded_Downscales(t *testing.T) {
	out, err := EncodeJPEGBounded(pngFixture(t, 200, 100), 50, DefaultJPEGQuality)
	require.NoError(t, err)

	w, h, err := Dimensions(out)
	require.NoError(t, err)
	assert.Equal(t, 50, w)
	assert.Equal(t, 25, h)
}

func TestEncodeJPEGBounded_KeepsSmallImages(t *testing.T) {
	out, err := EncodeJPEGBounded(pngFixture(t, 30, 20), 1600, DefaultJPEGQuality)
	require.NoError(t, err)

	w, h, err := Dimensions(out)
	require.NoError(t, err)
	assert.Equal(t, 30, w)
	assert.Equal(t, 20, h)
}
