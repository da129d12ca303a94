package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Preprocessing parameters for photographed menus.
const (
	UpscaleBelowWidth = 1400
	MaxUpscaledWidth  = 2200
	BinarizeThreshold = 180
	sharpenSigma      = 1.0
)

// PreprocessImage auto-orients, upscales small images, converts to grayscale,
// stretches contrast, sharpens and binarizes. The result is PNG encoded.
func PreprocessImage(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if w := img.Bounds().Dx(); w > 0 && w < UpscaleBelowWidth {
		target := w * 2
		if target > MaxUpscaledWidth {
			target = MaxUpscaledWidth
		}
		img = imaging.Resize(img, target, 0, imaging.Lanczos)
	}

	gray := imaging.Grayscale(img)
	gray = stretchContrast(gray)
	gray = imaging.Sharpen(gray, sharpenSigma)
	bin := imaging.AdjustFunc(gray, func(c color.NRGBA) color.NRGBA {
		v := uint8(0)
		if c.R >= BinarizeThreshold {
			v = 255
		}
		return color.NRGBA{R: v, G: v, B: v, A: 255}
	})

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, bin, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// stretchContrast maps the darkest pixel to 0 and the brightest to 255.
// img must already be grayscale.
func stretchContrast(img *image.NRGBA) *image.NRGBA {
	lo, hi := uint8(255), uint8(0)
	for i := 0; i < len(img.Pix); i += 4 {
		v := img.Pix[i]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi <= lo {
		return img
	}
	span := float64(hi - lo)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		v := uint8((float64(c.R-lo)/span)*255 + 0.5)
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}
