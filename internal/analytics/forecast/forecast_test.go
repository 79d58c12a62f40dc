package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/aquafarm/internal/domain/models"
)

func series(start time.Time, values ...float64) []models.MetricPoint {
	out := make([]models.MetricPoint, len(values))
	for i, v := range values {
		out[i] = models.MetricPoint{Date: start.AddDate(0, 0, i), Value: v}
	}
	return out
}

var start = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func TestSlopeDegenerate(t *testing.T) {
	assert.Zero(t, Slope(nil))
	assert.Zero(t, Slope([]float64{}))
	assert.Zero(t, Slope([]float64{5}))
	assert.Zero(t, Slope([]float64{3, 3, 3, 3}))
}

func TestSlope(t *testing.T) {
	assert.InDelta(t, 1.0, Slope([]float64{1, 2, 3, 4, 5}), 1e-12)
	assert.InDelta(t, -0.5, Slope([]float64{8, 7.5, 7, 6.5}), 1e-12)
	assert.InDelta(t, 0.4, Slope([]float64{1, 1, 2, 2}), 1e-12)
}

func TestProject(t *testing.T) {
	assert.InDelta(t, 8.0, Project([]float64{1, 2, 3, 4, 5}, Horizon), 1e-12)
	assert.Zero(t, Project(nil, Horizon))
}

func TestPredictBelowThreshold(t *testing.T) {
	th := Threshold{Parameter: "dissolved_oxygen", Limit: 4, Direction: Below}

	p, fire := Predict(series(start, 6, 5.5, 5, 4.5), th)
	require.True(t, fire)
	assert.InDelta(t, -0.5, p.Slope, 1e-12)
	assert.InDelta(t, 3.0, p.Projected, 1e-12)
	assert.Equal(t, start.AddDate(0, 0, 3), p.Date)

	_, fire = Predict(series(start, 6, 6.1, 6, 6.2), th)
	assert.False(t, fire)
}

func TestPredictAboveThreshold(t *testing.T) {
	th := Threshold{Parameter: "ammonia", Limit: 0.05, Direction: Above}

	_, fire := Predict(series(start, 0.01, 0.02, 0.03, 0.04), th)
	assert.True(t, fire)

	_, fire = Predict(series(start, 0.04, 0.03, 0.02, 0.01), th)
	assert.False(t, fire)
}

func TestPredictNeedsMinimumPoints(t *testing.T) {
	th := Threshold{Parameter: "dissolved_oxygen", Limit: 4, Direction: Below}
	_, fire := Predict(series(start, 6, 4, 2), th)
	assert.False(t, fire)
}

func TestPredictOrdersByDate(t *testing.T) {
	th := Threshold{Parameter: "dissolved_oxygen", Limit: 4, Direction: Below}
	s := series(start, 6, 5.5, 5, 4.5)
	s[0], s[3] = s[3], s[0]

	p, fire := Predict(s, th)
	assert.True(t, fire)
	assert.InDelta(t, 4.5, p.Last, 1e-12)
	assert.Equal(t, 6.0, s[3].Value, "input must not be reordered")
}

func TestThreshold(t *testing.T) {
	assert.True(t, Threshold{Limit: 1, Direction: Below}.Breaches(0.5))
	assert.False(t, Threshold{Limit: 1, Direction: Below}.Breaches(1))
	assert.True(t, Threshold{Limit: 1, Direction: Above}.Breaches(1.5))
	assert.False(t, Threshold{Limit: 1, Direction: "sideways"}.Breaches(100))

	assert.NoError(t, Threshold{Parameter: "ph", Direction: Above}.Validate())
	assert.Error(t, Threshold{Parameter: "ph"}.Validate())
	assert.Error(t, Threshold{Direction: Below}.Validate())
}
