// Package imaging normalises uploaded clinic logos.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	// decoders for uploads
	_ "image/gif"
	_ "image/jpeg"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"
)

const (
	// MaxLogoSide bounds the longest side of a stored logo, in pixels.
	MaxLogoSide = 512
	// MaxUploadBytes bounds the accepted upload.
	MaxUploadBytes = 5 << 20
)

var ErrUnsupportedImage = errors.New("unsupported_image")

// Logo holds the same picture in the two encodings that are stored:
// WebP for the web clients, PNG for embedding in PDFs.
type Logo struct {
	WebP   []byte
	PNG    []byte
	Width  int
	Height int
}

// NormalizeLogo decodes an upload, scales it down to MaxLogoSide and
// re-encodes it.
func NormalizeLogo(r io.Reader) (*Logo, error) {
	src, _, err := image.Decode(io.LimitReader(r, MaxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	img := fit(src, MaxLogoSide)

	var webpBuf bytes.Buffer
	if err := webp.Encode(&webpBuf, img, &webp.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	b := img.Bounds()
	return &Logo{
		WebP:   webpBuf.Bytes(),
		PNG:    pngBuf.Bytes(),
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// fit scales src so that its longest side is at most max, keeping the
// aspect ratio. Smaller images are copied unchanged into RGBA.
func fit(src image.Image, max int) *image.RGBA {
	sb := src.Bounds()
	w, h := sb.Dx(), sb.Dy()

	if w > max || h > max {
		if w >= h {
			h = h * max / w
			w = max
		} else {
			w = w * max / h
			h = max
		}
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	return dst
}
