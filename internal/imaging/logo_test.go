package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeLogo_ScalesDown(t *testing.T) {
	logo, err := NormalizeLogo(bytes.NewReader(pngOf(t, 1024, 256)))
	require.NoError(t, err)

	assert.Equal(t, MaxLogoSide, logo.Width)
	assert.Equal(t, 128, logo.Height)

	cfg, err := png.DecodeConfig(bytes.NewReader(logo.PNG))
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Width)

	w, err := webp.DecodeConfig(bytes.NewReader(logo.WebP))
	require.NoError(t, err)
	assert.Equal(t, 128, w.Height)
}

func TestNormalizeLogo_KeepsSmallImages(t *testing.T) {
	logo, err := NormalizeLogo(bytes.NewReader(pngOf(t, 40, 60)))
	require.NoError(t, err)

	assert.Equal(t, 40, logo.Width)
	assert.Equal(t, 60, logo.Height)
}

func TestNormalizeLogo_RejectsGarbage(t *testing.T) {
	_, err := NormalizeLogo(strings.NewReader("not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}
