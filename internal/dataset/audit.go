package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// WriteAudit stores the per-image results as CSV so excluded images can be reviewed.
func WriteAudit(path string, results []ImageResult) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create audit file %s: %w", path, err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&results, file); err != nil {
		return fmt.Errorf("failed to write audit file %s: %w", path, err)
	}
	return nil
}
