package delivery

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/paulmach/orb/geojson"
	"github.com/schollz/progressbar/v3"
	"github.com/wetland-guardian/cienaga-classifier/internal/dataset"
	"github.com/wetland-guardian/cienaga-classifier/internal/log"
	"github.com/wetland-guardian/cienaga-classifier/internal/ml"
	"github.com/wetland-guardian/cienaga-classifier/internal/output"
	"github.com/wetland-guardian/cienaga-classifier/internal/properties"
	"github.com/wetland-guardian/cienaga-classifier/internal/raster"
	"go.uber.org/zap"
)

// SummaryFileName is written next to the classifications of a directory run.
const SummaryFileName = "summary.geojson"

type PredictRequest struct {
	ImagePath string
	// OutputPath defaults to the image path with the classification suffix.
	OutputPath string
	// PreviewPath, TrueColorPath and SummaryPath are optional extra outputs.
	PreviewPath   string
	TrueColorPath string
	SummaryPath   string
}

type ImageSummary struct {
	Image             string  `json:"image"`
	Output            string  `json:"output"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	WetlandPixels     int     `json:"wetland_pixels"`
	OtherPixels       int     `json:"other_pixels"`
	WetlandFraction   float64 `json:"wetland_fraction"`
	WetlandConfidence float64 `json:"wetland_confidence"`
	Error             string  `json:"error,omitempty"`

	feature *geojson.Feature
}

// ClassifyImage classifies one raster and writes the classification GeoTIFF plus any requested
// extra outputs.
func (s *Service) ClassifyImage(req PredictRequest) (ImageSummary, error) {
	summary, err := s.classify(req)
	if err != nil {
		return summary, s.fail("classification of "+filepath.Base(req.ImagePath)+" failed", err)
	}
	if req.SummaryPath != "" {
		if err := output.WriteSummaryGeoJSON(req.SummaryPath, summary.feature); err != nil {
			return summary, s.fail("classification summary failed", err)
		}
	}
	s.Notifier.Success(fmt.Sprintf("Classified %s: %d wetland pixels (%.2f%%)",
		filepath.Base(req.ImagePath), summary.WetlandPixels, 100*summary.WetlandFraction))
	return summary, nil
}

func (s *Service) classify(req PredictRequest) (ImageSummary, error) {
	summary := ImageSummary{Image: req.ImagePath, Output: req.OutputPath}
	if summary.Output == "" {
		summary.Output = output.ClassificationPath("", req.ImagePath, properties.ClassificationSuffix)
	}

	cmap, profile, err := s.Predictor.Predict(req.ImagePath)
	if err != nil {
		return summary, err
	}
	if err := output.WriteClassification(summary.Output, cmap, profile); err != nil {
		return summary, err
	}

	counts := cmap.Counts()
	summary.Width, summary.Height = cmap.Width, cmap.Height
	summary.WetlandPixels, summary.OtherPixels = counts[1], counts[0]
	summary.WetlandFraction = cmap.WetlandFraction()
	summary.WetlandConfidence = cmap.WetlandConfidence
	summary.feature = output.SummaryFeature(filepath.Base(req.ImagePath), cmap, profile)

	if req.PreviewPath != "" {
		if err := output.WritePreview(req.PreviewPath, cmap, 1); err != nil {
			return summary, err
		}
	}
	if req.TrueColorPath != "" {
		bands, _, _, err := raster.ReadBands(req.ImagePath)
		if err != nil {
			return summary, err
		}
		if err := output.WriteTrueColor(req.TrueColorPath, bands); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// ClassifyDirectory classifies every raster in dir concurrently, writing
// <name>_clasificacion.tif files into outDir (dir when empty) and a GeoJSON summary of the run.
// A failing image is recorded in its summary and does not stop the others; a missing model fails
// the whole run before any image is read.
func (s *Service) ClassifyDirectory(dir, outDir string, showProgress bool) ([]ImageSummary, error) {
	if outDir == "" {
		outDir = dir
	}
	if _, err := s.Cache.Get(); err != nil {
		return nil, s.fail("directory classification failed", err)
	}
	paths, err := dataset.ListImages(dir)
	if err != nil {
		return nil, s.fail("directory classification failed", err)
	}
	var inputs []string
	for _, p := range paths {
		if !strings.HasSuffix(p, properties.ClassificationSuffix) {
			inputs = append(inputs, p)
		}
	}
	if len(inputs) == 0 {
		return nil, s.fail("directory classification failed", fmt.Errorf("%w: %s", dataset.ErrNoImages, dir))
	}

	bar := progressbar.DefaultSilent(int64(len(inputs)), "Classifying images")
	if showProgress {
		bar = progressbar.Default(int64(len(inputs)), "Classifying images")
	}

	var (
		mu        sync.Mutex
		summaries = make([]ImageSummary, len(inputs))
		failed    []error
	)
	wp := workerpool.New(max(1, s.Workers))
	for i, path := range inputs {
		wp.Submit(func() {
			summary, err := s.classify(PredictRequest{
				ImagePath:  path,
				OutputPath: output.ClassificationPath(outDir, path, properties.ClassificationSuffix),
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Error = err.Error()
				failed = append(failed, err)
				log.Warn("image classification failed", zap.String("path", path), zap.Error(err))
			}
			summaries[i] = summary
			bar.Add(1)
		})
	}
	wp.StopWait()
	bar.Finish()

	var features []*geojson.Feature
	for _, sm := range summaries {
		if sm.feature != nil && sm.Error == "" {
			features = append(features, sm.feature)
		}
	}
	if len(features) > 0 {
		if err := output.WriteSummaryGeoJSON(filepath.Join(outDir, SummaryFileName), features...); err != nil {
			return summaries, s.fail("directory classification failed", err)
		}
	}

	if len(failed) == len(inputs) {
		return summaries, s.fail("directory classification failed", errors.Join(failed...))
	}
	s.Notifier.Success(fmt.Sprintf("Classified %d/%d images in %s", len(inputs)-len(failed), len(inputs), dir))
	return summaries, nil
}
