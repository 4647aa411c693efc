package raster

import (
	"errors"
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/wetland-guardian/cienaga-classifier/internal/log"
	"go.uber.org/zap"
)

var (
	ErrNoBands    = errors.New("raster has no bands")
	ErrOpenRaster = errors.New("failed to open raster")
	ErrReadBand   = errors.New("failed to read raster band")
)

var registerOnce sync.Once

// Register loads the GDAL drivers once per process.
func Register() {
	registerOnce.Do(godal.RegisterAll)
}

// Reader turns a raster file into a normalized BandSet.
type Reader struct {
	Layout BandLayout
	Scale  float32
}

func NewReader() *Reader {
	return &Reader{Layout: DefaultLayout, Scale: ReflectanceScale}
}

// ReadBands reads the raster at path with the default layout.
func ReadBands(path string) (BandSet, Profile, [2]int, error) {
	return NewReader().Read(path)
}

// Read returns the named bands, the spatial profile and the reference shape as {height, width}.
// The reference shape is the shape of band 1; bands of any other shape are aligned onto it.
func (r *Reader) Read(path string) (BandSet, Profile, [2]int, error) {
	Register()
	ds, err := godal.Open(path, godal.RasterOnly(), godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec <= godal.CE_Warning {
			log.Debug("gdal warning", zap.String("path", path), zap.String("msg", msg))
			return nil
		}
		return fmt.Errorf("gdal error %d: %s", code, msg)
	}))
	if err != nil {
		return nil, Profile{}, [2]int{}, fmt.Errorf("%w %s: %v", ErrOpenRaster, path, err)
	}
	defer ds.Close()

	profile := profileOf(ds)
	bands := ds.Bands()
	sources := make([]bandSource, len(bands))
	for i := range bands {
		sources[i] = gdalBand{bands[i]}
	}
	set, refShape, err := r.assemble(path, sources)
	return set, profile, refShape, err
}

// bandSource is one band of an opened raster.
type bandSource interface {
	size() (width, height int)
	read(dst Grid) error
}

type gdalBand struct {
	godal.Band
}

func (b gdalBand) size() (int, int) {
	st := b.Structure()
	return st.SizeX, st.SizeY
}

func (b gdalBand) read(dst Grid) error {
	return b.Read(0, 0, dst.Data, dst.Width, dst.Height)
}

// assemble reads the named bands out of sources and aligns each onto the grid of the first one.
func (r *Reader) assemble(path string, sources []bandSource) (BandSet, [2]int, error) {
	if len(sources) < 1 {
		return nil, [2]int{}, fmt.Errorf("%w: %s", ErrNoBands, path)
	}

	refWidth, refHeight := sources[0].size()
	refShape := [2]int{refHeight, refWidth}

	available := r.Layout.Resolve(len(sources))
	set := make(BandSet, len(available))
	for name, idx := range available {
		g, err := r.readBand(sources[idx-1])
		if err != nil {
			return nil, refShape, fmt.Errorf("%w %d (%s) of %s: %v", ErrReadBand, idx, name, path, err)
		}
		if !g.SameShape(refWidth, refHeight) {
			log.Debug("aligning band to reference grid",
				zap.String("path", path),
				zap.String("band", string(name)),
				zap.Int("width", g.Width), zap.Int("height", g.Height),
				zap.Int("refWidth", refWidth), zap.Int("refHeight", refHeight))
			g = AlignToGrid(g, refWidth, refHeight)
		}
		set[name] = g
	}

	log.Debug("read raster bands", zap.String("path", path), zap.Int("bands", len(sources)), zap.Int("named", len(set)))
	return set, refShape, nil
}

func (r *Reader) readBand(band bandSource) (Grid, error) {
	g := NewGrid(band.size())
	if err := band.read(g); err != nil {
		return Grid{}, err
	}
	for i := range g.Data {
		g.Data[i] /= r.Scale
	}
	return g, nil
}
