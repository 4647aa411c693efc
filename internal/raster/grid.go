package raster

import "math"

// Grid is a single band stored row-major: the value at column x, row y is Data[y*Width+x].
type Grid struct {
	Width  int
	Height int
	Data   []float32
}

func NewGrid(width, height int) Grid {
	return Grid{Width: width, Height: height, Data: make([]float32, width*height)}
}

func (g Grid) At(x, y int) float32 {
	return g.Data[y*g.Width+x]
}

func (g Grid) SameShape(width, height int) bool {
	return g.Width == width && g.Height == height
}

// AlignToGrid reconciles g onto a width x height pixel grid that shares g's geotransform and
// CRS. Each destination pixel centre is projected through the shared transform back into the
// source grid, which makes the mapping the identity in pixel space, and the source is sampled
// bilinearly there. Centres falling outside the source extent are left at 0.
func AlignToGrid(g Grid, width, height int) Grid {
	if g.SameShape(width, height) {
		return g
	}
	dst := NewGrid(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			// pixel centre in world space maps back to the same pixel centre in the source
			cx, cy := float64(x)+0.5, float64(y)+0.5
			if v, ok := g.bilinear(cx, cy); ok {
				dst.Data[y*width+x] = v
			}
		}
	}
	return dst
}

// bilinear samples g at continuous pixel coordinates where integer+0.5 is a pixel centre.
func (g Grid) bilinear(cx, cy float64) (float32, bool) {
	if cx < 0 || cy < 0 || cx > float64(g.Width) || cy > float64(g.Height) {
		return 0, false
	}
	fx, fy := cx-0.5, cy-0.5
	x0, y0 := int(math.Floor(fx)), int(math.Floor(fy))
	dx, dy := fx-float64(x0), fy-float64(y0)

	x0c, x1c := clamp(x0, g.Width-1), clamp(x0+1, g.Width-1)
	y0c, y1c := clamp(y0, g.Height-1), clamp(y0+1, g.Height-1)

	v00 := float64(g.At(x0c, y0c))
	v10 := float64(g.At(x1c, y0c))
	v01 := float64(g.At(x0c, y1c))
	v11 := float64(g.At(x1c, y1c))

	top := v00*(1-dx) + v10*dx
	bottom := v01*(1-dx) + v11*dx
	return float32(top*(1-dy) + bottom*dy), true
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
