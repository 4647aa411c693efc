package ml

import (
	"errors"
	"fmt"

	"github.com/wetland-guardian/cienaga-classifier/internal/dataset"
	"github.com/wetland-guardian/cienaga-classifier/internal/forest"
	"github.com/wetland-guardian/cienaga-classifier/internal/log"
	"github.com/wetland-guardian/cienaga-classifier/internal/raster"
	"go.uber.org/zap"
)

var ErrIncompatibleModel = errors.New("model was trained on a different feature layout")

type Predictor struct {
	Cache  *ModelCache
	Reader *raster.Reader
	// Workers bounds the goroutines used per raster; 0 uses every CPU.
	Workers int
}

func NewPredictor(cache *ModelCache) *Predictor {
	return &Predictor{Cache: cache, Reader: raster.NewReader()}
}

// Predict classifies every pixel of the raster at path. The model is resolved before the
// raster is opened, so a missing artifact fails without touching the input.
func (p *Predictor) Predict(path string) (ClassificationMap, raster.Profile, error) {
	model, err := p.Cache.Get()
	if err != nil {
		return ClassificationMap{}, raster.Profile{}, err
	}
	if model.Features != dataset.NumFeatures {
		return ClassificationMap{}, raster.Profile{}, fmt.Errorf("%w: %d features, want %d", ErrIncompatibleModel, model.Features, dataset.NumFeatures)
	}

	bands, profile, shape, err := p.Reader.Read(path)
	if err != nil {
		return ClassificationMap{}, profile, err
	}
	height, width := shape[0], shape[1]

	stack, err := dataset.NewFeatureStack(bands, width, height)
	if err != nil {
		return ClassificationMap{}, profile, fmt.Errorf("failed to stack features of %s: %w", path, err)
	}
	rows := stack.Rows()
	x := make([][]float32, len(rows))
	for i := range rows {
		x[i] = rows[i][:]
	}

	labels, err := model.PredictBatch(x, p.Workers)
	if err != nil {
		return ClassificationMap{}, profile, fmt.Errorf("failed to classify %s: %w", path, err)
	}
	cmap, err := Reshape(labels, width, height)
	if err != nil {
		return ClassificationMap{}, profile, err
	}
	cmap.WetlandConfidence = wetlandConfidence(model, x, labels)

	counts := cmap.Counts()
	log.Info("raster classified",
		zap.String("path", path),
		zap.Int("width", width), zap.Int("height", height),
		zap.Int("wetland", counts[1]), zap.Int("other", counts[0]),
		zap.Float64("confidence", cmap.WetlandConfidence))
	return cmap, profile, nil
}

func wetlandConfidence(model *forest.Forest, x [][]float32, labels []uint8) float64 {
	var sum float64
	n := 0
	for i, l := range labels {
		if l == dataset.LabelWetland {
			sum += model.Proba(x[i])
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
