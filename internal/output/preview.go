package output

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"

	"github.com/fogleman/gg"
	"github.com/wetland-guardian/cienaga-classifier/internal/log"
	"github.com/wetland-guardian/cienaga-classifier/internal/ml"
	"github.com/wetland-guardian/cienaga-classifier/internal/properties"
	"github.com/wetland-guardian/cienaga-classifier/internal/raster"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

var ErrMissingBand = errors.New("raster is missing a band required for the preview")

var classLabels = map[uint8]string{
	0: "Other",
	1: "Ciénaga",
}

const legendHeight = 40

func classColor(label uint8) color.RGBA {
	c, ok := properties.ColorMap[label]
	if !ok {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// WritePreview renders cmap as a PNG, one scale x scale block per pixel, with a class legend
// below the map.
func WritePreview(path string, cmap ml.ClassificationMap, scale int) error {
	if cmap.Width == 0 || cmap.Height == 0 {
		return fmt.Errorf("%w: empty map", ErrShapeMismatch)
	}
	if scale < 1 {
		scale = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, cmap.Width*scale, cmap.Height*scale))
	for y := 0; y < cmap.Height; y++ {
		for x := 0; x < cmap.Width; x++ {
			c := classColor(cmap.At(x, y))
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					img.SetRGBA(x*scale+dx, y*scale+dy, c)
				}
			}
		}
	}

	width := max(img.Bounds().Dx(), 160)
	height := img.Bounds().Dy() + legendHeight
	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(img, 0, 0)

	counts := cmap.Counts()
	legendY := float64(img.Bounds().Dy() + 5)
	for i, label := range []uint8{0, 1} {
		y := legendY + float64(i*18)
		c := classColor(label)
		dc.SetRGB255(int(c.R), int(c.G), int(c.B))
		dc.DrawRectangle(5, y, 12, 12)
		dc.Fill()

		dc.SetRGB(0, 0, 0)
		dc.DrawRectangle(5, y, 12, 12)
		dc.SetLineWidth(1)
		dc.Stroke()
		dc.DrawStringAnchored(fmt.Sprintf("%s (%d)", classLabels[label], counts[label]), 22, y+6, 0, 0.5)
	}

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save preview %s: %w", path, err)
	}
	log.Info("preview written", zap.String("path", path))
	return nil
}

// WriteTrueColor renders the red, green and blue bands as a PNG, stretching each band between
// its 0.5 and 99.5 percentiles.
func WriteTrueColor(path string, bands raster.BandSet) error {
	channels := make([]raster.Grid, 3)
	for i, name := range []raster.BandName{raster.Red, raster.Green, raster.Blue} {
		g, ok := bands[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingBand, name)
		}
		channels[i] = g
	}
	w, h := channels[0].Width, channels[0].Height

	stretched := make([][]uint8, 3)
	for i, g := range channels {
		if !g.SameShape(w, h) {
			return fmt.Errorf("%w: band shapes differ", ErrShapeMismatch)
		}
		stretched[i] = stretch(g.Data)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		img.SetRGBA(i%w, i/w, color.RGBA{R: stretched[0][i], G: stretched[1][i], B: stretched[2][i], A: 255})
	}
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("failed to save true colour image %s: %w", path, err)
	}
	log.Info("true colour image written", zap.String("path", path))
	return nil
}

func stretch(data []float32) []uint8 {
	sorted := make([]float64, len(data))
	for i, v := range data {
		sorted[i] = float64(v)
	}
	slices.Sort(sorted)
	lo := stat.Quantile(0.005, stat.Empirical, sorted, nil)
	hi := stat.Quantile(0.995, stat.Empirical, sorted, nil)

	out := make([]uint8, len(data))
	if hi <= lo {
		return out
	}
	for i, v := range data {
		norm := (float64(v) - lo) / (hi - lo)
		out[i] = uint8(math.Round(255 * math.Max(0, math.Min(1, norm))))
	}
	return out
}
