package delivery

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wetland-guardian/cienaga-classifier/internal/forest"
	"github.com/wetland-guardian/cienaga-classifier/internal/ml"
	"github.com/wetland-guardian/cienaga-classifier/internal/raster/rastertest"
)

type recorder struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (r *recorder) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, msg)
}

func (r *recorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func smallParams() forest.Params {
	p := forest.DefaultParams()
	p.Trees = 10
	return p
}

func trainedService(t *testing.T) (*Service, *recorder) {
	t.Helper()
	dir := t.TempDir()
	rastertest.WetlandScene(t, filepath.Join(dir, "a.tif"), 5, 5, 8)
	rastertest.WetlandScene(t, filepath.Join(dir, "b.tif"), 5, 5, 12)

	rec := &recorder{}
	svc := NewService(filepath.Join(t.TempDir(), "model.json"), rec)
	_, err := svc.TrainModel(TrainRequest{TrainPath: dir, Params: smallParams()})
	require.NoError(t, err)
	return svc, rec
}

func TestTrainModelNotifies(t *testing.T) {
	svc, rec := trainedService(t)

	assert.FileExists(t, svc.Cache.Path())
	require.Len(t, rec.successes, 1)
	assert.Contains(t, rec.successes[0], "40 samples")
	assert.Empty(t, rec.errors)
}

func TestTrainModelWritesReport(t *testing.T) {
	dir := t.TempDir()
	rastertest.WetlandScene(t, filepath.Join(dir, "a.tif"), 6, 6, 12)
	report := filepath.Join(t.TempDir(), "report.csv")

	svc := NewService(filepath.Join(t.TempDir(), "model.json"), nil)
	m, err := svc.TrainModel(TrainRequest{TrainPath: dir, Evaluate: true, ReportPath: report, Params: smallParams()})
	require.NoError(t, err)
	require.NotNil(t, m.Recall)
	assert.FileExists(t, report)
}

func TestTrainModelFailureNotifies(t *testing.T) {
	rec := &recorder{}
	svc := NewService(filepath.Join(t.TempDir(), "model.json"), rec)

	_, err := svc.TrainModel(TrainRequest{TrainPath: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
	assert.Len(t, rec.errors, 1)
	assert.Empty(t, rec.successes)
}

func TestClassifyImageWritesOutputs(t *testing.T) {
	svc, _ := trainedService(t)
	dir := t.TempDir()
	scene := filepath.Join(dir, "scene.tif")
	rastertest.WetlandScene(t, scene, 5, 5, 10)

	summary, err := svc.ClassifyImage(PredictRequest{
		ImagePath:     scene,
		PreviewPath:   filepath.Join(dir, "preview.png"),
		TrueColorPath: filepath.Join(dir, "rgb.png"),
		SummaryPath:   filepath.Join(dir, "scene.geojson"),
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "scene_clasificacion.tif"), summary.Output)
	assert.Equal(t, 10, summary.WetlandPixels)
	assert.Equal(t, 15, summary.OtherPixels)
	assert.InDelta(t, 0.4, summary.WetlandFraction, 1e-9)
	assert.Greater(t, summary.WetlandConfidence, 0.5)
	assert.FileExists(t, summary.Output)
	for _, name := range []string{"preview.png", "rgb.png", "scene.geojson"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

func TestClassifyImageWithoutModel(t *testing.T) {
	rec := &recorder{}
	svc := NewService(filepath.Join(t.TempDir(), "model.json"), rec)

	_, err := svc.ClassifyImage(PredictRequest{ImagePath: "missing.tif"})
	assert.ErrorIs(t, err, ml.ErrModelNotFound)
	assert.Len(t, rec.errors, 1)
}

func TestClassifyDirectory(t *testing.T) {
	svc, _ := trainedService(t)
	in := t.TempDir()
	rastertest.WetlandScene(t, filepath.Join(in, "one.tif"), 5, 5, 5)
	rastertest.WetlandScene(t, filepath.Join(in, "two.tif"), 5, 5, 20)
	require.NoError(t, os.WriteFile(filepath.Join(in, "broken.tif"), []byte("not a raster"), 0o644))
	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.MkdirAll(out, os.ModePerm))

	summaries, err := svc.ClassifyDirectory(in, out, false)
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	byName := map[string]ImageSummary{}
	for _, s := range summaries {
		byName[filepath.Base(s.Image)] = s
	}
	assert.NotEmpty(t, byName["broken.tif"].Error)
	assert.Equal(t, 5, byName["one.tif"].WetlandPixels)
	assert.Equal(t, 20, byName["two.tif"].WetlandPixels)
	assert.FileExists(t, filepath.Join(out, "one_clasificacion.tif"))
	assert.FileExists(t, filepath.Join(out, "two_clasificacion.tif"))
	assert.FileExists(t, filepath.Join(out, SummaryFileName))
}

func TestClassifyDirectorySkipsPreviousOutputs(t *testing.T) {
	svc, _ := trainedService(t)
	in := t.TempDir()
	rastertest.WetlandScene(t, filepath.Join(in, "one.tif"), 5, 5, 5)

	first, err := svc.ClassifyDirectory(in, "", false)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.ClassifyDirectory(in, "", false)
	require.NoError(t, err)
	assert.Len(t, second, 1)
}

func TestClassifyDirectoryWithoutModel(t *testing.T) {
	svc := NewService(filepath.Join(t.TempDir(), "model.json"), nil)
	_, err := svc.ClassifyDirectory(t.TempDir(), "", false)
	assert.ErrorIs(t, err, ml.ErrModelNotFound)
}

func TestReloadModelPicksUpRetrain(t *testing.T) {
	svc, _ := trainedService(t)
	before, err := svc.Cache.Get()
	require.NoError(t, err)

	dir := t.TempDir()
	rastertest.WetlandScene(t, filepath.Join(dir, "c.tif"), 5, 5, 6)
	p := smallParams()
	p.Trees = 4
	_, err = svc.TrainModel(TrainRequest{TrainPath: dir, Params: p})
	require.NoError(t, err)

	stale, err := svc.Cache.Get()
	require.NoError(t, err)
	assert.Same(t, before, stale)

	fresh, err := svc.ReloadModel()
	require.NoError(t, err)
	assert.Len(t, fresh.Trees, 4)
}
