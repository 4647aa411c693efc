package delivery

import (
	"fmt"

	"github.com/wetland-guardian/cienaga-classifier/internal/forest"
	"github.com/wetland-guardian/cienaga-classifier/internal/metrics"
	"github.com/wetland-guardian/cienaga-classifier/internal/ml"
	"github.com/wetland-guardian/cienaga-classifier/internal/properties"
)

type TrainRequest struct {
	TrainPath string
	// TestPath defaults to TrainPath.
	TestPath string
	Evaluate bool
	// AuditPath receives the per-image extraction CSV when set.
	AuditPath string
	// ReportPath receives the held-out classification report as CSV when set.
	ReportPath   string
	Params       forest.Params
	ShowProgress bool
}

// TrainModel builds the training corpus, fits and persists the model. The model cache keeps
// serving the previous model until ReloadModel is called.
func (s *Service) TrainModel(req TrainRequest) (ml.Metrics, error) {
	m, _, err := s.Trainer.Train(ml.TrainOptions{
		TrainDir:     req.TrainPath,
		EvalDir:      req.TestPath,
		Evaluate:     req.Evaluate,
		AuditPath:    req.AuditPath,
		Params:       req.Params,
		SampleSeed:   properties.SampleSeed(),
		ShowProgress: req.ShowProgress,
	})
	if err != nil {
		return m, s.fail("training failed", err)
	}

	if req.ReportPath != "" && m.Report != nil {
		if err := metrics.WriteCSV(req.ReportPath, *m.Report); err != nil {
			return m, s.fail("training failed", err)
		}
	}

	msg := fmt.Sprintf("Model trained on %d samples from %d/%d images and saved to %s",
		m.Samples, m.IncludedImages, m.TrainImages, m.ModelPath)
	if m.Recall != nil {
		msg += fmt.Sprintf("\nHeld-out recall: %.4f", *m.Recall)
	}
	s.Notifier.Success(msg)
	return m, nil
}

// ReloadModel reads the artifact again so later predictions use the latest trained model.
func (s *Service) ReloadModel() (*forest.Forest, error) {
	f, err := s.Cache.Reload()
	if err != nil {
		return nil, s.fail("model reload failed", err)
	}
	return f, nil
}
