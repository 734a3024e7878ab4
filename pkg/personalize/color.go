package personalize

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// luma returns the Rec. 601 luma of a pixel.
func luma(r, g, b uint8) uint8 {
	return channel(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b))
}

// sepia applies the classic sepia matrix.
func sepia(r, g, b uint8) (uint8, uint8, uint8) {
	fr, fg, fb := float64(r), float64(g), float64(b)
	return channel(0.393*fr + 0.769*fg + 0.189*fb),
		channel(0.349*fr + 0.686*fg + 0.168*fb),
		channel(0.272*fr + 0.534*fg + 0.131*fb)
}

func channel(v float64) uint8 {
	return uint8(math.Min(math.Round(v), 255))
}

// applyColor returns img transformed by mode. Alpha is preserved.
func applyColor(img image.Image, mode ColorMode) *image.NRGBA {
	switch mode {
	case BlackWhite:
		return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
			y := luma(c.R, c.G, c.B)
			return color.NRGBA{R: y, G: y, B: y, A: c.A}
		})
	case Sepia:
		return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
			r, g, b := sepia(c.R, c.G, c.B)
			return color.NRGBA{R: r, G: g, B: b, A: c.A}
		})
	}
	return imaging.Clone(img)
}
