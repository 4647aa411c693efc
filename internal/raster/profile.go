package raster

import (
	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
)

// Profile is the spatial and format metadata carried alongside band data.
type Profile struct {
	Width           int
	Height          int
	BandCount       int
	DataType        godal.DataType
	GeoTransform    [6]float64
	HasGeoTransform bool
	Projection      string
	NoData          *float64
}

func profileOf(ds *godal.Dataset) Profile {
	st := ds.Structure()
	p := Profile{
		Width:      st.SizeX,
		Height:     st.SizeY,
		BandCount:  st.NBands,
		DataType:   st.DataType,
		Projection: ds.Projection(),
	}
	if gt, err := ds.GeoTransform(); err == nil {
		p.GeoTransform = gt
		p.HasGeoTransform = true
	}
	if bands := ds.Bands(); len(bands) > 0 {
		if nd, ok := bands[0].NoData(); ok {
			p.NoData = &nd
		}
	}
	return p
}

// WithOutput returns the profile used for classification rasters: one unsigned 8-bit band,
// every other field unchanged.
func (p Profile) WithOutput() Profile {
	out := p
	out.DataType = godal.Byte
	out.BandCount = 1
	out.NoData = nil
	return out
}

// PixelToWorld returns the world coordinate of the upper-left corner of pixel (x, y).
func (p Profile) PixelToWorld(x, y float64) orb.Point {
	gt := p.GeoTransform
	if !p.HasGeoTransform {
		gt = [6]float64{0, 1, 0, 0, 0, 1}
	}
	return orb.Point{
		gt[0] + x*gt[1] + y*gt[2],
		gt[3] + x*gt[4] + y*gt[5],
	}
}

// Bounds is the world-space extent of the raster.
func (p Profile) Bounds() orb.Bound {
	w, h := float64(p.Width), float64(p.Height)
	ring := orb.Ring{
		p.PixelToWorld(0, 0),
		p.PixelToWorld(w, 0),
		p.PixelToWorld(w, h),
		p.PixelToWorld(0, h),
	}
	return ring.Bound()
}

// Footprint is the closed polygon of the raster extent in world coordinates.
func (p Profile) Footprint() orb.Polygon {
	w, h := float64(p.Width), float64(p.Height)
	ring := orb.Ring{
		p.PixelToWorld(0, 0),
		p.PixelToWorld(w, 0),
		p.PixelToWorld(w, h),
		p.PixelToWorld(0, h),
		p.PixelToWorld(0, 0),
	}
	return orb.Polygon{ring}
}
