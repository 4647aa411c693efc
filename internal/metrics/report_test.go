package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	yTrue := []uint8{1, 1, 1, 1, 0, 0, 0, 0, 0, 0}
	yPred := []uint8{1, 1, 1, 0, 0, 0, 0, 0, 1, 1}

	r, err := Evaluate(yTrue, yPred)
	require.NoError(t, err)

	assert.Equal(t, [2][2]int{{4, 2}, {1, 3}}, r.Confusion)
	assert.InDelta(t, 0.7, r.Accuracy, 1e-9)

	other, wet := r.Classes[0], r.Classes[1]
	assert.InDelta(t, 0.8, other.Precision, 1e-9)
	assert.InDelta(t, 4.0/6, other.Recall, 1e-9)
	assert.Equal(t, 6, other.Support)
	assert.InDelta(t, 0.6, wet.Precision, 1e-9)
	assert.InDelta(t, 0.75, wet.Recall, 1e-9)
	assert.InDelta(t, 2*0.6*0.75/1.35, wet.F1, 1e-9)

	assert.InDelta(t, (0.8+0.6)/2, r.MacroAvg.Precision, 1e-9)
	assert.InDelta(t, (0.8*6+0.6*4)/10, r.WeightedAvg.Precision, 1e-9)
	assert.Len(t, r.Rows(), 4)

	recall, err := Recall(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, recall, 1e-9)
}

func TestEvaluateZeroDivision(t *testing.T) {
	r, err := Evaluate([]uint8{0, 0}, []uint8{0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.Classes[1].Precision)
	assert.Equal(t, 0.0, r.Classes[1].F1)
	assert.Equal(t, 1.0, r.Accuracy)
}

func TestEvaluateLengthMismatch(t *testing.T) {
	_, err := Evaluate([]uint8{1}, nil)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestReportStringAndCSV(t *testing.T) {
	r, err := Evaluate([]uint8{1, 0}, []uint8{1, 0})
	require.NoError(t, err)
	assert.Contains(t, r.String(), "accuracy")
	assert.Contains(t, r.String(), "weighted avg")

	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, WriteCSV(path, r))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Equal(t, "label,precision,recall,f1-score,support", lines[0])
	assert.Len(t, lines, 5)
}
