package output

import (
	"fmt"
	"math"
	"os"

	"github.com/paulmach/orb/geojson"
	"github.com/wetland-guardian/cienaga-classifier/internal/log"
	"github.com/wetland-guardian/cienaga-classifier/internal/ml"
	"github.com/wetland-guardian/cienaga-classifier/internal/raster"
	"go.uber.org/zap"
)

// SummaryFeature builds a polygon feature of the raster footprint with the class counts of cmap.
// Coordinates are in the raster's own projection.
func SummaryFeature(source string, cmap ml.ClassificationMap, profile raster.Profile) *geojson.Feature {
	counts := cmap.Counts()
	f := geojson.NewFeature(profile.Footprint())
	f.BBox = geojson.NewBBox(profile.Bounds())
	f.Properties["source"] = source
	f.Properties["width"] = cmap.Width
	f.Properties["height"] = cmap.Height
	f.Properties["wetland_pixels"] = counts[1]
	f.Properties["other_pixels"] = counts[0]
	f.Properties["wetland_fraction"] = cmap.WetlandFraction()
	if counts[1] > 0 {
		f.Properties["wetland_confidence"] = cmap.WetlandConfidence
	}
	if profile.HasGeoTransform {
		pixelArea := math.Abs(profile.GeoTransform[1] * profile.GeoTransform[5])
		f.Properties["pixel_area"] = pixelArea
		f.Properties["wetland_area"] = float64(counts[1]) * pixelArea
	}
	return f
}

// WriteSummaryGeoJSON writes a feature collection holding the summary of every classified raster.
func WriteSummaryGeoJSON(path string, features ...*geojson.Feature) error {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		fc.Append(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write GeoJSON %s: %w", path, err)
	}
	log.Info("summary GeoJSON written", zap.String("path", path), zap.Int("features", len(features)))
	return nil
}
