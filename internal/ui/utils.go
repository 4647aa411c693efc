package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/wetland-guardian/cienaga-classifier/internal/dataset"
	"github.com/wetland-guardian/cienaga-classifier/internal/metrics"
	"github.com/wetland-guardian/cienaga-classifier/internal/ml"
)

// Colors for consistent UI
const (
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorReset  = "\033[0m"
)

var (
	stdin       = bufio.NewReader(os.Stdin)
	stdinClosed bool
)

// PrintWarning displays a warning message with consistent formatting
func PrintWarning(message string) {
	fmt.Printf("%s\nWarning:%s\n", ColorYellow, ColorReset)
	fmt.Printf("%s%s%s\n", ColorYellow, message, ColorReset)
}

// PrintError displays an error message with consistent formatting
func PrintError(message string) {
	fmt.Printf("\n%sError: %s%s\n", ColorRed, message, ColorReset)
}

// PrintSuccess displays a success message with consistent formatting
func PrintSuccess(message string) {
	fmt.Printf("\n%s%s%s\n", ColorGreen, message, ColorReset)
}

// PrintInfo displays an info message with consistent formatting
func PrintInfo(message string) {
	fmt.Printf("%s%s%s", ColorBlue, message, ColorReset)
}

// ReadString reads a string from stdin with trimming
func ReadString(prompt string) string {
	PrintInfo(prompt)
	input, err := stdin.ReadString('\n')
	if errors.Is(err, io.EOF) {
		stdinClosed = true
	}
	return strings.TrimSpace(input)
}

// ReadYesNo reads a y/n answer; anything but y or yes is no.
func ReadYesNo(prompt string) bool {
	answer := strings.ToLower(ReadString(prompt + " [y/N]: "))
	return answer == "y" || answer == "yes"
}

// PrintMetrics prints the outcome of a training run.
func PrintMetrics(m ml.Metrics) {
	green := color.New(color.FgGreen)
	green.Printf("\nModel saved at %s\n", m.ModelPath)
	if m.ReplacedModel {
		color.Yellow("The previous model was replaced")
	}
	green.Printf("Forest: %d trees, %d nodes, max depth %d\n", m.Trees, m.Nodes, m.MaxDepth)
	green.Printf("Images: %d used, %d skipped, %d total\n", m.IncludedImages, len(m.SkippedImages), m.TrainImages)
	green.Printf("Samples: %d (ciénaga %d, other %d)\n", m.Samples, m.ClassCounts[dataset.LabelWetland], m.ClassCounts[dataset.LabelOther])
	for _, s := range m.SkippedImages {
		color.Yellow("  skipped %s: %s", s.Path, s.Reason)
	}
	printReport("Held-out evaluation (30%)", m.Recall, m.Report)
	printReport("Evaluation folder", m.EvalDirRecall, m.EvalDirReport)
	green.Printf("Elapsed: %s\n", m.Duration)
}

func printReport(title string, recall *float64, report *metrics.Report) {
	if recall == nil || report == nil {
		return
	}
	color.Cyan("\n%s\nRecall: %.4f\n", title, *recall)
	fmt.Println(report.String())
}
