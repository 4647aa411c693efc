package dataset

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/wetland-guardian/cienaga-classifier/internal/log"
	"github.com/wetland-guardian/cienaga-classifier/internal/raster"
	"github.com/wetland-guardian/cienaga-classifier/internal/seed"
	"go.uber.org/zap"
)

var (
	ErrMissingDirectory = errors.New("image directory not found")
	ErrNoImages         = errors.New("no .tif images found")
)

type Status string

const (
	StatusIncluded Status = "included"
	StatusSkipped  Status = "skipped"
)

type SkipReason string

const (
	ReasonNone             SkipReason = ""
	ReasonReadError        SkipReason = "read_error"
	ReasonNoSignatureBands SkipReason = "no_signature_bands"
	ReasonNoPositivePixels SkipReason = "no_positive_pixels"
	ReasonNoNegativePixels SkipReason = "no_negative_pixels"
)

// ImageResult records what one image contributed to a corpus, or why it was excluded.
type ImageResult struct {
	Path           string     `csv:"path"`
	Status         Status     `csv:"status"`
	Reason         SkipReason `csv:"reason"`
	Detail         string     `csv:"detail"`
	SignatureBands string     `csv:"signature_bands"`
	Positives      int        `csv:"positives"`
	Negatives      int        `csv:"negatives"`
}

func (r ImageResult) Included() bool {
	return r.Status == StatusIncluded
}

// Corpus accumulates labelled feature rows across images.
type Corpus struct {
	Rows   []FeatureRow
	Labels []uint8
	Images []ImageResult
}

func (c *Corpus) Len() int {
	return len(c.Rows)
}

func (c *Corpus) Append(s Sample) {
	c.Rows = append(c.Rows, s.Rows...)
	c.Labels = append(c.Labels, s.Labels...)
}

// ClassCounts returns the number of rows labelled 0 and 1.
func (c *Corpus) ClassCounts() [2]int {
	var counts [2]int
	for _, l := range c.Labels {
		counts[l]++
	}
	return counts
}

func (c *Corpus) Included() int {
	n := 0
	for _, r := range c.Images {
		if r.Included() {
			n++
		}
	}
	return n
}

func (c *Corpus) Skipped() []ImageResult {
	var skipped []ImageResult
	for _, r := range c.Images {
		if !r.Included() {
			skipped = append(skipped, r)
		}
	}
	return skipped
}

// Extractor turns rasters into balanced samples.
type Extractor struct {
	Reader       *raster.Reader
	Signatures   []seed.Signature
	Rand         *rand.Rand
	ShowProgress bool
}

func NewExtractor(sampleSeed uint64) *Extractor {
	return &Extractor{
		Reader:     raster.NewReader(),
		Signatures: seed.DefaultSignatures,
		Rand:       rand.New(rand.NewPCG(sampleSeed, sampleSeed)),
	}
}

// Extract processes a single image. Failures are reported in the result, never raised.
func (e *Extractor) Extract(path string) (ImageResult, Sample) {
	res := ImageResult{Path: path, Status: StatusSkipped}

	bands, _, _, err := e.Reader.Read(path)
	if err != nil {
		res.Reason, res.Detail = ReasonReadError, err.Error()
		return res, Sample{}
	}

	mask, err := seed.Generate(bands, e.Signatures)
	if err != nil {
		res.Reason, res.Detail = ReasonNoSignatureBands, err.Error()
		return res, Sample{}
	}
	res.SignatureBands = joinBands(mask.Bands)

	sample, err := Balance(bands, mask, e.Rand)
	switch {
	case errors.Is(err, ErrNoPositivePixels):
		res.Reason, res.Detail = ReasonNoPositivePixels, err.Error()
		return res, Sample{}
	case errors.Is(err, ErrNoNegativePixels):
		res.Reason, res.Detail = ReasonNoNegativePixels, err.Error()
		res.Positives = mask.Count()
		return res, Sample{}
	case err != nil:
		res.Reason, res.Detail = ReasonReadError, err.Error()
		return res, Sample{}
	}

	res.Status = StatusIncluded
	res.Positives = sample.Positives
	res.Negatives = sample.Negatives
	return res, sample
}

// BuildCorpus extracts every image in order and aggregates the included samples.
func (e *Extractor) BuildCorpus(paths []string) *Corpus {
	corpus := &Corpus{}
	bar := progressbar.DefaultSilent(int64(len(paths)), "Extracting training samples")
	if e.ShowProgress {
		bar = progressbar.Default(int64(len(paths)), "Extracting training samples")
	}
	for _, path := range paths {
		res, sample := e.Extract(path)
		corpus.Images = append(corpus.Images, res)
		if res.Included() {
			corpus.Append(sample)
			log.Info("image included",
				zap.String("path", filepath.Base(path)),
				zap.Int("positives", res.Positives),
				zap.Int("negatives", res.Negatives))
		} else {
			log.Warn("image skipped",
				zap.String("path", filepath.Base(path)),
				zap.String("reason", string(res.Reason)),
				zap.String("detail", res.Detail))
		}
		bar.Add(1)
	}
	bar.Finish()
	return corpus
}

// ListImages returns the GeoTIFF files directly inside dir, sorted by name.
func ListImages(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrMissingDirectory, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory %s: %w", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".tif" || ext == ".tiff" {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}
	sort.Strings(paths)
	return paths, nil
}

func joinBands(names []raster.BandName) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ",")
}
