package dataset

import (
	"errors"
	"fmt"

	"github.com/wetland-guardian/cienaga-classifier/internal/raster"
)

// NumFeatures is the width of every feature row. The trained model depends on it.
const NumFeatures = 5

// FeatureOrder is the fixed column order of feature rows.
var FeatureOrder = [NumFeatures]raster.BandName{raster.Blue, raster.Green, raster.Red, raster.NIR, raster.SWIR1}

var ErrShapeMismatch = errors.New("band shape does not match the reference grid")

// FeatureRow is one pixel's features in FeatureOrder.
type FeatureRow [NumFeatures]float32

// FeatureStack is a height x width x NumFeatures tensor. Pixel (x, y) occupies
// Data[(y*Width+x)*NumFeatures : (y*Width+x+1)*NumFeatures].
type FeatureStack struct {
	Width  int
	Height int
	Data   []float32
}

// NewFeatureStack stacks bands in FeatureOrder. Bands missing from the set become zero planes.
func NewFeatureStack(bands raster.BandSet, width, height int) (FeatureStack, error) {
	stack := FeatureStack{Width: width, Height: height, Data: make([]float32, width*height*NumFeatures)}
	for f, name := range FeatureOrder {
		g, ok := bands[name]
		if !ok {
			continue
		}
		if !g.SameShape(width, height) {
			return FeatureStack{}, fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrShapeMismatch, name, g.Width, g.Height, width, height)
		}
		for i, v := range g.Data {
			stack.Data[i*NumFeatures+f] = v
		}
	}
	return stack, nil
}

func (s FeatureStack) Pixels() int {
	return s.Width * s.Height
}

// Row returns the features of the i-th pixel in row-major order.
func (s FeatureStack) Row(i int) FeatureRow {
	var row FeatureRow
	copy(row[:], s.Data[i*NumFeatures:(i+1)*NumFeatures])
	return row
}

// Rows flattens the stack to one row per pixel, row by row then column by column.
func (s FeatureStack) Rows() []FeatureRow {
	rows := make([]FeatureRow, s.Pixels())
	for i := range rows {
		rows[i] = s.Row(i)
	}
	return rows
}
