package ml

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/wetland-guardian/cienaga-classifier/internal/cache"
	"github.com/wetland-guardian/cienaga-classifier/internal/dataset"
	"github.com/wetland-guardian/cienaga-classifier/internal/forest"
	"github.com/wetland-guardian/cienaga-classifier/internal/log"
	"github.com/wetland-guardian/cienaga-classifier/internal/metrics"
	"go.uber.org/zap"
)

var ErrNoTrainingData = errors.New("no training data could be extracted from the images")

// TestFraction is the share of the corpus held out when evaluation is requested.
const TestFraction = 0.3

type TrainOptions struct {
	TrainDir string
	// EvalDir defaults to TrainDir.
	EvalDir  string
	Evaluate bool
	// AuditPath, when set, receives the per-image extraction results as CSV.
	AuditPath    string
	Params       forest.Params
	SampleSeed   uint64
	ShowProgress bool
}

type Metrics struct {
	ModelPath      string                `json:"model_path"`
	TrainImages    int                   `json:"train_images"`
	EvalImages     int                   `json:"eval_images"`
	IncludedImages int                   `json:"included_images"`
	SkippedImages  []dataset.ImageResult `json:"skipped_images,omitempty"`
	Samples        int                   `json:"samples"`
	ClassCounts    [2]int                `json:"class_counts"`
	Trees          int                   `json:"trees"`
	Nodes          int                   `json:"nodes"`
	MaxDepth       int                   `json:"max_depth"`
	ReplacedModel  bool                  `json:"replaced_model"`
	Duration       time.Duration         `json:"duration"`
	// Recall and Report score a model fit on 70 % of the corpus against the other 30 %.
	Recall *float64        `json:"recall,omitempty"`
	Report *metrics.Report `json:"classification_report,omitempty"`
	// EvalDirRecall and EvalDirReport score the persisted model against the seed labels of a
	// separate evaluation directory.
	EvalDirRecall *float64        `json:"eval_dir_recall,omitempty"`
	EvalDirReport *metrics.Report `json:"eval_dir_report,omitempty"`
}

// Trainer fits the ensemble and persists it, overwriting any previous artifact.
type Trainer struct {
	Store cache.ArtifactStore[forest.Forest]
}

func NewTrainer(modelPath string) *Trainer {
	return &Trainer{Store: cache.NewFileCache[forest.Forest](modelPath)}
}

// Train builds the corpus from opts.TrainDir, fits the ensemble on the whole corpus and saves it.
// With opts.Evaluate a separate model is fit on a stratified 70 % split to report recall on the
// remaining 30 %; the persisted model is always the one fit on the full corpus.
func (t *Trainer) Train(opts TrainOptions) (Metrics, *forest.Forest, error) {
	started := time.Now()
	if opts.EvalDir == "" {
		opts.EvalDir = opts.TrainDir
	}
	if opts.Params.Trees == 0 {
		opts.Params = forest.DefaultParams()
	}
	opts.Params.ShowProgress = opts.ShowProgress

	trainPaths, err := dataset.ListImages(opts.TrainDir)
	if err != nil {
		return Metrics{}, nil, err
	}
	// The evaluation directory is only read when it is scored.
	var evalPaths []string
	if opts.Evaluate {
		evalPaths = trainPaths
	}
	separateEval := opts.Evaluate && filepath.Clean(opts.EvalDir) != filepath.Clean(opts.TrainDir)
	if separateEval {
		if evalPaths, err = dataset.ListImages(opts.EvalDir); err != nil {
			log.Warn("evaluation directory not scored", zap.String("evalDir", opts.EvalDir), zap.Error(err))
			evalPaths, separateEval = nil, false
		}
	}

	log.Info("training started",
		zap.String("trainDir", opts.TrainDir),
		zap.String("evalDir", opts.EvalDir),
		zap.Int("images", len(trainPaths)))

	extractor := dataset.NewExtractor(opts.SampleSeed)
	extractor.ShowProgress = opts.ShowProgress
	corpus := extractor.BuildCorpus(trainPaths)

	if opts.AuditPath != "" {
		if err := dataset.WriteAudit(opts.AuditPath, corpus.Images); err != nil {
			return Metrics{}, nil, err
		}
	}

	m := Metrics{
		ModelPath:      t.Store.Path(),
		TrainImages:    len(trainPaths),
		EvalImages:     len(evalPaths),
		IncludedImages: corpus.Included(),
		SkippedImages:  corpus.Skipped(),
		Samples:        corpus.Len(),
		ClassCounts:    corpus.ClassCounts(),
		Trees:          opts.Params.Trees,
	}
	if corpus.Len() == 0 {
		return m, nil, fmt.Errorf("%w (%d images in %s)", ErrNoTrainingData, len(trainPaths), opts.TrainDir)
	}
	log.Info("corpus assembled",
		zap.Int("samples", m.Samples),
		zap.Int("wetland", m.ClassCounts[1]),
		zap.Int("other", m.ClassCounts[0]),
		zap.Int("skipped", len(m.SkippedImages)))

	if opts.Evaluate {
		if err := t.evaluateSplit(corpus, opts.Params, &m); err != nil {
			return m, nil, err
		}
	}

	model, err := forest.Fit(featureRows(corpus), corpus.Labels, opts.Params)
	if err != nil {
		return m, nil, fmt.Errorf("failed to fit model: %w", err)
	}
	m.ReplacedModel = t.Store.Exists()
	if err := t.Store.Save(*model); err != nil {
		return m, nil, fmt.Errorf("failed to save model: %w", err)
	}
	m.Nodes, m.MaxDepth = model.Shape()
	log.Info("model saved",
		zap.String("path", t.Store.Path()),
		zap.Int("trees", len(model.Trees)),
		zap.Int("nodes", m.Nodes),
		zap.Int("maxDepth", m.MaxDepth),
		zap.Bool("replaced", m.ReplacedModel))

	if separateEval {
		evalCorpus := extractor.BuildCorpus(evalPaths)
		if evalCorpus.Len() > 0 {
			report, recall, err := score(model, evalCorpus)
			if err != nil {
				return m, model, err
			}
			m.EvalDirReport, m.EvalDirRecall = &report, &recall
		} else {
			log.Warn("evaluation directory produced no labelled samples", zap.String("evalDir", opts.EvalDir))
		}
	}

	m.Duration = time.Since(started)
	return m, model, nil
}

func (t *Trainer) evaluateSplit(corpus *dataset.Corpus, params forest.Params, m *Metrics) error {
	train, test := dataset.StratifiedSplit(corpus, TestFraction, params.Seed)
	if train.Len() == 0 || test.Len() == 0 {
		log.Warn("corpus too small for a 70/30 evaluation split", zap.Int("samples", corpus.Len()))
		return nil
	}
	evalModel, err := forest.Fit(featureRows(train), train.Labels, params)
	if err != nil {
		return fmt.Errorf("failed to fit evaluation model: %w", err)
	}
	report, recall, err := score(evalModel, test)
	if err != nil {
		return err
	}
	m.Report, m.Recall = &report, &recall
	log.Info("held-out evaluation", zap.Float64("recall", recall), zap.Float64("accuracy", report.Accuracy))
	return nil
}

func score(model *forest.Forest, c *dataset.Corpus) (metrics.Report, float64, error) {
	pred, err := model.PredictBatch(featureRows(c), 0)
	if err != nil {
		return metrics.Report{}, 0, err
	}
	report, err := metrics.Evaluate(c.Labels, pred)
	if err != nil {
		return metrics.Report{}, 0, err
	}
	recall, err := metrics.Recall(c.Labels, pred)
	return report, recall, err
}

func featureRows(c *dataset.Corpus) [][]float32 {
	x := make([][]float32, len(c.Rows))
	for i := range c.Rows {
		x[i] = c.Rows[i][:]
	}
	return x
}
