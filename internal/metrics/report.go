// Package metrics scores binary classifications.
package metrics

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/floats"
)

var ErrLengthMismatch = errors.New("true and predicted labels differ in length")

// ClassNames labels the two classes in reports.
var ClassNames = [2]string{"0", "1"}

type ClassScore struct {
	Label     string  `csv:"label" json:"label"`
	Precision float64 `csv:"precision" json:"precision"`
	Recall    float64 `csv:"recall" json:"recall"`
	F1        float64 `csv:"f1-score" json:"f1_score"`
	Support   int     `csv:"support" json:"support"`
}

// Report mirrors a per-class classification report with accuracy and averages.
type Report struct {
	Classes     []ClassScore `json:"classes"`
	Accuracy    float64      `json:"accuracy"`
	MacroAvg    ClassScore   `json:"macro_avg"`
	WeightedAvg ClassScore   `json:"weighted_avg"`
	Support     int          `json:"support"`
	// Confusion is indexed [true][predicted].
	Confusion [2][2]int `json:"confusion"`
}

func confusion(yTrue, yPred []uint8) ([2][2]int, error) {
	var m [2][2]int
	if len(yTrue) != len(yPred) {
		return m, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(yTrue), len(yPred))
	}
	for i := range yTrue {
		m[yTrue[i]&1][yPred[i]&1]++
	}
	return m, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func f1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// Recall of the wetland class (label 1).
func Recall(yTrue, yPred []uint8) (float64, error) {
	m, err := confusion(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return ratio(m[1][1], m[1][0]+m[1][1]), nil
}

func Evaluate(yTrue, yPred []uint8) (Report, error) {
	m, err := confusion(yTrue, yPred)
	if err != nil {
		return Report{}, err
	}
	r := Report{Confusion: m, Support: len(yTrue)}

	precisions := make([]float64, 2)
	recalls := make([]float64, 2)
	f1s := make([]float64, 2)
	supports := make([]float64, 2)
	for c := 0; c < 2; c++ {
		tp := m[c][c]
		predicted := m[0][c] + m[1][c]
		actual := m[c][0] + m[c][1]
		precisions[c] = ratio(tp, predicted)
		recalls[c] = ratio(tp, actual)
		f1s[c] = f1(precisions[c], recalls[c])
		supports[c] = float64(actual)
		r.Classes = append(r.Classes, ClassScore{
			Label:     ClassNames[c],
			Precision: precisions[c],
			Recall:    recalls[c],
			F1:        f1s[c],
			Support:   actual,
		})
	}
	r.Accuracy = ratio(m[0][0]+m[1][1], len(yTrue))

	r.MacroAvg = ClassScore{
		Label:     "macro avg",
		Precision: floats.Sum(precisions) / 2,
		Recall:    floats.Sum(recalls) / 2,
		F1:        floats.Sum(f1s) / 2,
		Support:   len(yTrue),
	}
	r.WeightedAvg = ClassScore{Label: "weighted avg", Support: len(yTrue)}
	if total := floats.Sum(supports); total > 0 {
		r.WeightedAvg.Precision = floats.Dot(precisions, supports) / total
		r.WeightedAvg.Recall = floats.Dot(recalls, supports) / total
		r.WeightedAvg.F1 = floats.Dot(f1s, supports) / total
	}
	return r, nil
}

// Rows returns the per-class scores followed by the two averages.
func (r Report) Rows() []ClassScore {
	rows := append([]ClassScore{}, r.Classes...)
	return append(rows, r.MacroAvg, r.WeightedAvg)
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%12s %9s %9s %9s %9s\n\n", "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		fmt.Fprintf(&b, "%12s %9.2f %9.2f %9.2f %9d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%12s %9s %9s %9.2f %9d\n", "accuracy", "", "", r.Accuracy, r.Support)
	for _, c := range []ClassScore{r.MacroAvg, r.WeightedAvg} {
		fmt.Fprintf(&b, "%12s %9.2f %9.2f %9.2f %9d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	return b.String()
}

func WriteCSV(path string, r Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file %s: %w", path, err)
	}
	defer file.Close()

	rows := r.Rows()
	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("failed to write report file %s: %w", path, err)
	}
	return nil
}
