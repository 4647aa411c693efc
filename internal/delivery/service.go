// Package delivery wires the classifier use cases to their inputs and outputs.
package delivery

import (
	"fmt"

	"github.com/wetland-guardian/cienaga-classifier/internal/ml"
	"github.com/wetland-guardian/cienaga-classifier/internal/notification"
	"github.com/wetland-guardian/cienaga-classifier/internal/properties"
)

// Service holds the state shared by every use case: one model cache and one trainer writing to
// the same artifact.
type Service struct {
	Cache     *ml.ModelCache
	Trainer   *ml.Trainer
	Predictor *ml.Predictor
	Notifier  notification.Notifier
	// Workers bounds concurrent images in ClassifyDirectory.
	Workers int
}

func NewService(modelPath string, notifier notification.Notifier) *Service {
	if notifier == nil {
		notifier = notification.Nop{}
	}
	cache := ml.NewFileModelCache(modelPath)
	return &Service{
		Cache:     cache,
		Trainer:   ml.NewTrainer(modelPath),
		Predictor: ml.NewPredictor(cache),
		Notifier:  notifier,
		Workers:   4,
	}
}

// NewDefaultService uses the model path and Discord webhooks from the environment.
func NewDefaultService() *Service {
	return NewService(properties.ModelPath(), notification.NewDiscord())
}

func (s *Service) fail(op string, err error) error {
	s.Notifier.Error(fmt.Sprintf("%s: %v", op, err))
	return err
}
