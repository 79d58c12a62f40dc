package forecast

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/mamadbah2/aquafarm/internal/domain/models"
)

// DefaultSigma is the number of standard deviations beyond which a deviation is anomalous.
const DefaultSigma = 2.0

// Anomaly is a dated deviation of an actual value from its expectation.
type Anomaly struct {
	Date      time.Time `json:"date"`
	Actual    float64   `json:"actual"`
	Expected  float64   `json:"expected"`
	Deviation float64   `json:"deviation"`
	ZScore    float64   `json:"z_score"`
}

// DetectAnomalies pairs actual and expected points by day and flags the days whose deviation
// exceeds sigma population standard deviations of all deviations. The inputs are not modified.
func DetectAnomalies(actual, expected []models.MetricPoint, sigma float64) []Anomaly {
	if sigma <= 0 {
		sigma = DefaultSigma
	}

	want := make(map[time.Time]float64, len(expected))
	for _, p := range expected {
		want[models.TruncateDay(p.Date)] = p.Value
	}

	type pair struct {
		date             time.Time
		actual, expected float64
	}
	pairs := make([]pair, 0, len(actual))
	deviations := make(stats.Float64Data, 0, len(actual))
	for _, p := range sortedByDate(actual) {
		exp, ok := want[models.TruncateDay(p.Date)]
		if !ok {
			continue
		}
		pairs = append(pairs, pair{date: models.TruncateDay(p.Date), actual: p.Value, expected: exp})
		deviations = append(deviations, p.Value-exp)
	}
	if len(pairs) < 2 {
		return nil
	}

	sd, err := stats.StandardDeviationPopulation(deviations)
	if err != nil || sd == 0 || math.IsNaN(sd) {
		return nil
	}

	var out []Anomaly
	for i, p := range pairs {
		z := math.Abs(deviations[i]) / sd
		if z > sigma {
			out = append(out, Anomaly{
				Date:      p.date,
				Actual:    p.actual,
				Expected:  p.expected,
				Deviation: deviations[i],
				ZScore:    z,
			})
		}
	}
	return out
}

// RollingExpectation builds an expected series where each point is the mean of the
// preceding window points. The first point has no history and is skipped.
func RollingExpectation(series []models.MetricPoint, window int) []models.MetricPoint {
	if window < 1 {
		window = 1
	}
	ordered := sortedByDate(series)
	out := make([]models.MetricPoint, 0, len(ordered))
	for i := 1; i < len(ordered); i++ {
		from := i - window
		if from < 0 {
			from = 0
		}
		mean, err := stats.Mean(stats.Float64Data(Values(ordered[from:i])))
		if err != nil {
			continue
		}
		out = append(out, models.MetricPoint{Date: ordered[i].Date, Value: mean})
	}
	return out
}
