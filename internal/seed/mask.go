// Package seed derives weak wetland labels from spectral signature thresholds.
package seed

import (
	"errors"

	"github.com/wetland-guardian/cienaga-classifier/internal/raster"
)

var ErrNoSignatureBands = errors.New("no signature band available to build a seed mask")

// Tolerance is the relative window accepted around a signature value.
const Tolerance = 0.3

// Signature is the reference wetland reflectance of one band.
type Signature struct {
	Band  raster.BandName
	Value float64
}

// Range returns the inclusive [low, high] reflectance window around the signature.
func (s Signature) Range() (float32, float32) {
	return float32(s.Value * (1 - Tolerance)), float32(s.Value * (1 + Tolerance))
}

var DefaultSignatures = []Signature{
	{Band: raster.NIR, Value: 0.11385695},
	{Band: raster.SWIR1, Value: 0.094874144},
	{Band: raster.SWIR2, Value: 0.052902829},
}

// Mask is a row-major boolean grid: true marks a candidate wetland pixel.
type Mask struct {
	Width  int
	Height int
	Data   []bool
	// Bands lists the signature bands that contributed, in signature order.
	Bands []raster.BandName
}

func (m Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v {
			n++
		}
	}
	return n
}

// Generate ORs the in-range masks of every signature band present in bands. The mask takes
// the shape of the first contributing band. It fails with ErrNoSignatureBands when none of the
// signature bands is present.
func Generate(bands raster.BandSet, signatures []Signature) (Mask, error) {
	var mask Mask
	for _, sig := range signatures {
		g, ok := bands[sig.Band]
		if !ok {
			continue
		}
		if mask.Bands == nil {
			mask = Mask{Width: g.Width, Height: g.Height, Data: make([]bool, len(g.Data))}
		}
		low, high := sig.Range()
		for i, v := range g.Data {
			if v >= low && v <= high {
				mask.Data[i] = true
			}
		}
		mask.Bands = append(mask.Bands, sig.Band)
	}
	if len(mask.Bands) == 0 {
		return Mask{}, ErrNoSignatureBands
	}
	return mask, nil
}
