package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/airbusgeo/godal"
	"github.com/wetland-guardian/cienaga-classifier/internal/log"
	"github.com/wetland-guardian/cienaga-classifier/internal/ml"
	"github.com/wetland-guardian/cienaga-classifier/internal/raster"
	"go.uber.org/zap"
)

var (
	ErrShapeMismatch = errors.New("classification map does not match the raster profile")
	ErrWriteRaster   = errors.New("failed to write raster")
)

// WriteClassification writes cmap as a single-band Byte GeoTIFF carrying the size, transform and
// projection of profile. An existing file at path is replaced.
func WriteClassification(path string, cmap ml.ClassificationMap, profile raster.Profile) error {
	if cmap.Width != profile.Width || cmap.Height != profile.Height || len(cmap.Labels) != cmap.Width*cmap.Height {
		return fmt.Errorf("%w: map %dx%d (%d labels), profile %dx%d",
			ErrShapeMismatch, cmap.Width, cmap.Height, len(cmap.Labels), profile.Width, profile.Height)
	}
	out := profile.WithOutput()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create output folder %s: %w", dir, err)
		}
	}

	raster.Register()
	ds, err := godal.Create(godal.GTiff, path, out.BandCount, out.DataType, out.Width, out.Height)
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrWriteRaster, path, err)
	}
	if out.HasGeoTransform {
		if err := ds.SetGeoTransform(out.GeoTransform); err != nil {
			ds.Close()
			return fmt.Errorf("%w %s: geotransform: %v", ErrWriteRaster, path, err)
		}
	}
	if out.Projection != "" {
		if err := ds.SetProjection(out.Projection); err != nil {
			ds.Close()
			return fmt.Errorf("%w %s: projection: %v", ErrWriteRaster, path, err)
		}
	}
	if err := ds.Bands()[0].Write(0, 0, cmap.Labels, out.Width, out.Height); err != nil {
		ds.Close()
		return fmt.Errorf("%w %s: %v", ErrWriteRaster, path, err)
	}
	if err := ds.Close(); err != nil {
		return fmt.Errorf("%w %s: %v", ErrWriteRaster, path, err)
	}

	log.Info("classification written", zap.String("path", path), zap.Int("width", out.Width), zap.Int("height", out.Height))
	return nil
}

// ClassificationPath returns the output path used for an input raster when none is given:
// the input name with its extension replaced by the classification suffix.
func ClassificationPath(dir, input, suffix string) string {
	base := filepath.Base(input)
	name := base[:len(base)-len(filepath.Ext(base))]
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, name+suffix)
}
