package ml

import (
	"errors"
	"fmt"
)

var ErrShape = errors.New("label count does not match the raster shape")

// ClassificationMap is a row-major grid of class labels: Labels[y*Width+x].
type ClassificationMap struct {
	Width  int
	Height int
	Labels []uint8
	// WetlandConfidence is the mean forest probability over the pixels labelled 1.
	WetlandConfidence float64
}

// Reshape lays labels back onto a width x height grid in the order rows were flattened.
func Reshape(labels []uint8, width, height int) (ClassificationMap, error) {
	if len(labels) != width*height {
		return ClassificationMap{}, fmt.Errorf("%w: %d labels for %dx%d", ErrShape, len(labels), width, height)
	}
	return ClassificationMap{Width: width, Height: height, Labels: labels}, nil
}

func (m ClassificationMap) At(x, y int) uint8 {
	return m.Labels[y*m.Width+x]
}

// Counts returns the number of pixels per class label.
func (m ClassificationMap) Counts() map[uint8]int {
	counts := map[uint8]int{}
	for _, l := range m.Labels {
		counts[l]++
	}
	return counts
}

// WetlandFraction is the share of pixels labelled 1.
func (m ClassificationMap) WetlandFraction() float64 {
	if len(m.Labels) == 0 {
		return 0
	}
	return float64(m.Counts()[1]) / float64(len(m.Labels))
}
