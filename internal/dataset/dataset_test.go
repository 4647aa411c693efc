package dataset

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wetland-guardian/cienaga-classifier/internal/raster"
	"github.com/wetland-guardian/cienaga-classifier/internal/raster/rastertest"
	"github.com/wetland-guardian/cienaga-classifier/internal/seed"
)

func constGrid(w, h int, v float32) raster.Grid {
	g := raster.NewGrid(w, h)
	for i := range g.Data {
		g.Data[i] = v
	}
	return g
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestFeatureStackOrderAndZeroFill(t *testing.T) {
	bands := raster.BandSet{
		raster.Blue:  constGrid(3, 2, 0.1),
		raster.Red:   constGrid(3, 2, 0.3),
		raster.SWIR2: constGrid(3, 2, 0.9),
	}

	stack, err := NewFeatureStack(bands, 3, 2)
	require.NoError(t, err)

	require.Len(t, stack.Data, 3*2*NumFeatures)
	for i := 0; i < stack.Pixels(); i++ {
		assert.Equal(t, FeatureRow{0.1, 0, 0.3, 0, 0}, stack.Row(i))
	}
	assert.Equal(t, []float32{0, 0, 0, 0, 0, 0}, plane(stack, 3))
}

func TestFeatureStackRejectsMisalignedBand(t *testing.T) {
	bands := raster.BandSet{raster.NIR: constGrid(2, 2, 0.1)}

	_, err := NewFeatureStack(bands, 3, 2)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestRowsAreRowMajor(t *testing.T) {
	w, h := 3, 2
	blue := raster.NewGrid(w, h)
	for i := range blue.Data {
		blue.Data[i] = float32(i)
	}
	stack, err := NewFeatureStack(raster.BandSet{raster.Blue: blue}, w, h)
	require.NoError(t, err)

	rows := stack.Rows()
	require.Len(t, rows, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			assert.Equal(t, blue.At(x, y), rows[y*w+x][0])
		}
	}
}

func TestBalanceProducesEqualClasses(t *testing.T) {
	w, h := 5, 4
	nir := raster.NewGrid(w, h)
	mask := seed.Mask{Width: w, Height: h, Data: make([]bool, w*h), Bands: []raster.BandName{raster.NIR}}
	for i := range nir.Data {
		nir.Data[i] = float32(i)
		if i%4 == 0 {
			mask.Data[i] = true
		}
	}

	s, err := Balance(raster.BandSet{raster.NIR: nir}, mask, newRand())
	require.NoError(t, err)

	assert.Equal(t, 5, s.Positives)
	assert.Equal(t, 5, s.Negatives)
	require.Len(t, s.Rows, 10)
	require.Len(t, s.Labels, 10)

	seen := map[int]bool{}
	for _, idx := range s.NegativeIndexes {
		assert.False(t, seen[idx], "negative pixel %d drawn twice", idx)
		assert.False(t, mask.Data[idx], "negative pixel %d is in the seed mask", idx)
		seen[idx] = true
	}
	for i := 0; i < 5; i++ {
		assert.Equal(t, LabelWetland, s.Labels[i])
		assert.Equal(t, float32(i*4), s.Rows[i][3])
	}
	for i := 5; i < 10; i++ {
		assert.Equal(t, LabelOther, s.Labels[i])
		assert.Equal(t, float32(s.NegativeIndexes[i-5]), s.Rows[i][3])
	}
}

func TestBalanceBoundedByNegativePool(t *testing.T) {
	mask := seed.Mask{Width: 4, Height: 1, Data: []bool{true, true, true, false}}

	s, err := Balance(raster.BandSet{}, mask, newRand())
	require.NoError(t, err)

	assert.Equal(t, 3, s.Positives)
	assert.Equal(t, 1, s.Negatives)
	assert.Equal(t, []int{3}, s.NegativeIndexes)
}

func TestBalanceSkipCases(t *testing.T) {
	_, err := Balance(raster.BandSet{}, seed.Mask{Width: 2, Height: 1, Data: []bool{false, false}}, newRand())
	assert.ErrorIs(t, err, ErrNoPositivePixels)

	_, err = Balance(raster.BandSet{}, seed.Mask{Width: 2, Height: 1, Data: []bool{true, true}}, newRand())
	assert.ErrorIs(t, err, ErrNoNegativePixels)
}

func TestStratifiedSplitKeepsProportions(t *testing.T) {
	c := &Corpus{}
	for i := 0; i < 100; i++ {
		label := LabelOther
		if i < 40 {
			label = LabelWetland
		}
		c.Rows = append(c.Rows, FeatureRow{float32(i)})
		c.Labels = append(c.Labels, label)
	}

	train, test := StratifiedSplit(c, 0.3, 42)

	assert.Equal(t, 70, train.Len())
	assert.Equal(t, 30, test.Len())
	assert.Equal(t, [2]int{42, 28}, train.ClassCounts())
	assert.Equal(t, [2]int{18, 12}, test.ClassCounts())

	seen := map[float32]bool{}
	for _, part := range []*Corpus{train, test} {
		for i, row := range part.Rows {
			assert.False(t, seen[row[0]])
			seen[row[0]] = true
			want := LabelOther
			if row[0] < 40 {
				want = LabelWetland
			}
			assert.Equal(t, want, part.Labels[i])
		}
	}
	assert.Len(t, seen, 100)
}

// writeScene writes a 10-band 4x4 scene whose nir band is in the wetland window on the
// first wetPixels pixels and far above it elsewhere.
func writeScene(t *testing.T, dir, name string, wetPixels int) string {
	t.Helper()
	const w, h = 4, 4
	bands := make([][]uint16, 10)
	for i := range bands {
		bands[i] = rastertest.Fill(w, h, 0.5)
	}
	bands[9] = rastertest.Fill(w, h, 0.0)
	for i := 0; i < w*h; i++ {
		if i < wetPixels {
			bands[6][i] = rastertest.Raw(0.11)
		} else {
			bands[6][i] = rastertest.Raw(0.3)
		}
	}
	path := filepath.Join(dir, name)
	rastertest.WriteGeoTIFF(t, path, w, h, bands)
	return path
}

func TestBuildCorpusRecordsSkips(t *testing.T) {
	dir := t.TempDir()
	good := writeScene(t, dir, "a_good.tif", 4)
	dry := writeScene(t, dir, "b_dry.tif", 0)
	rgb := filepath.Join(dir, "c_rgb.tif")
	rastertest.WriteGeoTIFF(t, rgb, 2, 2, [][]uint16{
		rastertest.Fill(2, 2, 0.1), rastertest.Fill(2, 2, 0.1), rastertest.Fill(2, 2, 0.1),
	})
	flooded := writeScene(t, dir, "d_flooded.tif", 16)

	paths, err := ListImages(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{good, dry, rgb, flooded}, paths)

	corpus := NewExtractor(42).BuildCorpus(paths)

	require.Len(t, corpus.Images, 4)
	assert.Equal(t, StatusIncluded, corpus.Images[0].Status)
	assert.Equal(t, "nir,swir1,swir2", corpus.Images[0].SignatureBands)
	assert.Equal(t, ReasonNoPositivePixels, corpus.Images[1].Reason)
	assert.Equal(t, ReasonNoSignatureBands, corpus.Images[2].Reason)
	assert.Equal(t, ReasonNoNegativePixels, corpus.Images[3].Reason)

	assert.Equal(t, 8, corpus.Len())
	assert.Equal(t, [2]int{4, 4}, corpus.ClassCounts())
	assert.Equal(t, 1, corpus.Included())
	assert.Len(t, corpus.Skipped(), 3)
}

func TestBuildCorpusOnlyDryImageIsEmpty(t *testing.T) {
	dir := t.TempDir()
	dry := writeScene(t, dir, "dry.tif", 0)

	corpus := NewExtractor(42).BuildCorpus([]string{dry})

	assert.Equal(t, 0, corpus.Len())
	assert.Equal(t, 0, corpus.Included())
}

func TestBuildCorpusSkipsUnreadableImage(t *testing.T) {
	corpus := NewExtractor(42).BuildCorpus([]string{filepath.Join(t.TempDir(), "gone.tif")})

	require.Len(t, corpus.Images, 1)
	assert.Equal(t, ReasonReadError, corpus.Images[0].Reason)
	assert.Contains(t, corpus.Images[0].Detail, "gone.tif")
}

func TestListImagesErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := ListImages(missing)
	assert.ErrorIs(t, err, ErrMissingDirectory)
	assert.Contains(t, err.Error(), missing)

	empty := t.TempDir()
	_, err = ListImages(empty)
	assert.ErrorIs(t, err, ErrNoImages)
}

func TestAuditCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "images.csv")
	results := []ImageResult{
		{Path: "a.tif", Status: StatusIncluded, SignatureBands: "nir", Positives: 3, Negatives: 3},
		{Path: "b.tif", Status: StatusSkipped, Reason: ReasonNoPositivePixels, Detail: "empty"},
	}

	require.NoError(t, WriteAudit(path, results))
	got, err := readAudit(path)
	require.NoError(t, err)
	assert.Equal(t, results, got)
}

func plane(s FeatureStack, f int) []float32 {
	out := make([]float32, s.Pixels())
	for i := range out {
		out[i] = s.Data[i*NumFeatures+f]
	}
	return out
}

func readAudit(path string) ([]ImageResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var results []ImageResult
	err = gocsv.UnmarshalFile(file, &results)
	return results, err
}
