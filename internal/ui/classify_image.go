package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/wetland-guardian/cienaga-classifier/internal/delivery"
)

// ClassifyImage handles the UI for classifying a single image
func ClassifyImage() {
	imagePath := ReadString("Enter the image path: ")
	if imagePath == "" {
		PrintError("the image path cannot be empty")
		return
	}
	outputPath := ReadString("Enter the output path (empty for <name>_clasificacion.tif next to the image): ")

	req := delivery.PredictRequest{ImagePath: imagePath, OutputPath: outputPath}
	if ReadYesNo("Also write a PNG preview?") {
		req.PreviewPath = strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + "_preview.png"
	}

	summary, err := service.ClassifyImage(req)
	if err != nil {
		PrintError(err.Error())
		return
	}
	PrintSuccess(fmt.Sprintf("Classification written to %s", summary.Output))
	printSummary(summary)
	if req.PreviewPath != "" {
		PrintSuccess("Preview written to " + req.PreviewPath)
	}
}

// ClassifyDirectory handles the UI for classifying every image of a folder
func ClassifyDirectory() {
	dir := ReadString("Enter the images folder: ")
	if dir == "" {
		PrintError("the images folder cannot be empty")
		return
	}
	outDir := ReadString("Enter the output folder (empty to write next to the images): ")

	started := time.Now()
	summaries, err := service.ClassifyDirectory(dir, outDir, true)
	if err != nil {
		PrintError(err.Error())
		return
	}
	for _, s := range summaries {
		if s.Error != "" {
			PrintError(fmt.Sprintf("%s: %s", s.Image, s.Error))
			continue
		}
		printSummary(s)
	}
	PrintSuccess(fmt.Sprintf("Classified %d images in %s", len(summaries), time.Since(started).Round(time.Millisecond)))
}

func printSummary(s delivery.ImageSummary) {
	fmt.Printf("%s%s: %dx%d, ciénaga %d px (%.2f%%), other %d px%s\n",
		ColorGreen, s.Image, s.Width, s.Height, s.WetlandPixels, 100*s.WetlandFraction, s.OtherPixels, ColorReset)
}

// ShowModel prints the model currently served to predictions
func ShowModel() {
	model, err := service.Cache.Get()
	if err != nil {
		PrintError(err.Error())
		return
	}
	nodes, depth := model.Shape()
	PrintSuccess(fmt.Sprintf("Model %s\n%d trees (%d nodes, max depth %d), %d training samples, loaded at %s",
		service.Cache.Path(), len(model.Trees), nodes, depth, model.Samples, service.Cache.LoadedAt().Format(time.DateTime)))
}

// ReloadModel handles the UI for picking up a retrained model
func ReloadModel() {
	model, err := service.ReloadModel()
	if err != nil {
		PrintError(err.Error())
		return
	}
	PrintSuccess(fmt.Sprintf("Model reloaded: %d trees", len(model.Trees)))
}
