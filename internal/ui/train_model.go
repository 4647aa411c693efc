package ui

import (
	"path/filepath"

	"github.com/wetland-guardian/cienaga-classifier/internal/delivery"
	"github.com/wetland-guardian/cienaga-classifier/internal/properties"
)

// TrainModel handles the UI for training a new model
func TrainModel() {
	PrintWarning("Training overwrites the model at " + service.Cache.Path() + "\n" +
		"The training folder should contain 10-band '.tif' images.")

	trainPath := ReadString("Enter the training images folder: ")
	if trainPath == "" {
		PrintError("the training folder cannot be empty")
		return
	}
	testPath := ReadString("Enter the evaluation images folder (empty to use the training folder): ")
	evaluate := ReadYesNo("Evaluate the model on a 30% held-out split?")

	req := delivery.TrainRequest{
		TrainPath:    trainPath,
		TestPath:     testPath,
		Evaluate:     evaluate,
		AuditPath:    filepath.Join(properties.RootPath(), "data", "model", "training_audit.csv"),
		ShowProgress: true,
	}
	m, err := service.TrainModel(req)
	if err != nil {
		PrintError(err.Error())
		return
	}
	PrintMetrics(m)
	PrintSuccess("Model trained successfully! Image audit written to " + req.AuditPath)
	PrintWarning("Choose 'Reload the model from disk' before classifying to use the new model.")
}
