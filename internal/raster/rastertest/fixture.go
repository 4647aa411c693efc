// Package rastertest builds small GeoTIFF fixtures for tests.
package rastertest

import (
	"math"
	"testing"

	"github.com/airbusgeo/godal"
)

// GeoTransform is the transform stamped on every fixture: 10 m pixels in UTM 18N.
var GeoTransform = [6]float64{500000, 10, 0, 1000000, 0, -10}

const EPSG = 32618

// Raw converts a reflectance fraction into the raw integer the sensor would store.
func Raw(reflectance float64) uint16 {
	return uint16(math.Round(reflectance * 10000))
}

// Fill returns a width*height band with every pixel set to the raw value of reflectance.
func Fill(width, height int, reflectance float64) []uint16 {
	band := make([]uint16, width*height)
	v := Raw(reflectance)
	for i := range band {
		band[i] = v
	}
	return band
}

// WriteGeoTIFF writes bands (row-major, one slice per band) as a UInt16 GeoTIFF at path.
func WriteGeoTIFF(t testing.TB, path string, width, height int, bands [][]uint16) {
	t.Helper()
	godal.RegisterAll()
	ds, err := godal.Create(godal.GTiff, path, len(bands), godal.UInt16, width, height)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			t.Fatalf("close %s: %v", path, err)
		}
	}()
	if err := ds.SetGeoTransform(GeoTransform); err != nil {
		t.Fatalf("set geotransform: %v", err)
	}
	sr, err := godal.NewSpatialRefFromEPSG(EPSG)
	if err != nil {
		t.Fatalf("spatial ref: %v", err)
	}
	defer sr.Close()
	if err := ds.SetSpatialRef(sr); err != nil {
		t.Fatalf("set spatial ref: %v", err)
	}
	for i, data := range bands {
		if err := ds.Bands()[i].Write(0, 0, data, width, height); err != nil {
			t.Fatalf("write band %d: %v", i+1, err)
		}
	}
}

// WetlandScene writes a 10-band scene whose first wetPixels pixels (row-major) carry a wetland
// near-infrared response. Every other pixel is dry. Shortwave bands never match a signature.
func WetlandScene(t testing.TB, path string, width, height, wetPixels int) {
	t.Helper()
	bands := make([][]uint16, 10)
	for i := range bands {
		bands[i] = Fill(width, height, 0.5)
	}
	bands[9] = Fill(width, height, 0)
	for i := range bands[6] {
		if i < wetPixels {
			bands[6][i] = Raw(0.11)
		} else {
			bands[6][i] = Raw(0.3)
		}
	}
	WriteGeoTIFF(t, path, width, height, bands)
}
