package forecast

import (
	"fmt"
	"sort"
	"time"

	"github.com/mamadbah2/aquafarm/internal/domain/models"
)

const (
	// Horizon is how many steps ahead a series is extrapolated.
	Horizon = 3
	// MinPoints is the shortest series a predictive alert may be raised on.
	MinPoints = 4
)

// Direction is the unsafe side of a threshold.
type Direction string

const (
	Below Direction = "below"
	Above Direction = "above"
)

// Threshold is a limit on a parameter with the side that is unsafe.
type Threshold struct {
	Parameter string    `json:"parameter"`
	Limit     float64   `json:"limit"`
	Direction Direction `json:"direction"`
}

// Breaches reports whether v is on the unsafe side of the limit.
func (t Threshold) Breaches(v float64) bool {
	switch t.Direction {
	case Below:
		return v < t.Limit
	case Above:
		return v > t.Limit
	default:
		return false
	}
}

// Validate checks the threshold is usable.
func (t Threshold) Validate() error {
	if t.Parameter == "" {
		return fmt.Errorf("threshold parameter must not be empty")
	}
	if t.Direction != Below && t.Direction != Above {
		return fmt.Errorf("threshold %s: unknown direction %q", t.Parameter, t.Direction)
	}
	return nil
}

// Slope is the least-squares slope of values against their index.
// It is 0 for fewer than two values or a degenerate denominator.
func Slope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	meanX := float64(n-1) / 2
	sumY := 0.0
	for _, v := range values {
		sumY += v
	}
	meanY := sumY / float64(n)

	num, den := 0.0, 0.0
	for i, v := range values {
		dx := float64(i) - meanX
		num += dx * (v - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// Project extrapolates the last value of the series by slope × steps.
func Project(values []float64, steps int) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1] + Slope(values)*float64(steps)
}

// Prediction is the outcome of extrapolating a series.
type Prediction struct {
	Last      float64   `json:"last"`
	Slope     float64   `json:"slope"`
	Projected float64   `json:"projected"`
	Date      time.Time `json:"date"`
	Threshold Threshold `json:"threshold"`
}

// Predict extrapolates series Horizon steps ahead and reports whether the projection breaches th.
// Series shorter than MinPoints never produce an alert.
func Predict(series []models.MetricPoint, th Threshold) (Prediction, bool) {
	if len(series) < MinPoints {
		return Prediction{}, false
	}
	ordered := sortedByDate(series)
	values := Values(ordered)

	slope := Slope(values)
	p := Prediction{
		Last:      values[len(values)-1],
		Slope:     slope,
		Projected: values[len(values)-1] + slope*Horizon,
		Date:      ordered[len(ordered)-1].Date,
		Threshold: th,
	}
	return p, th.Breaches(p.Projected)
}

// Values extracts the values of a series in order.
func Values(series []models.MetricPoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Value
	}
	return out
}

func sortedByDate(series []models.MetricPoint) []models.MetricPoint {
	out := make([]models.MetricPoint, len(series))
	copy(out, series)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
