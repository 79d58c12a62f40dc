package aggregate

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/mamadbah2/aquafarm/internal/domain/models"
)

const zeroTolerance = 1e-9

type weighted struct {
	sum    float64
	weight float64
}

func (w *weighted) add(value, weight float64) {
	if weight <= 0 {
		return
	}
	w.sum += value * weight
	w.weight += weight
}

func (w weighted) value() *float64 {
	if w.weight <= 0 {
		return nil
	}
	return models.Float(w.sum / w.weight)
}

type sample []float64

func (s *sample) add(v *float64) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return
	}
	*s = append(*s, *v)
}

func (s sample) mean() *float64 {
	if len(s) == 0 {
		return nil
	}
	m, err := stats.Mean(stats.Float64Data(s))
	if err != nil {
		return nil
	}
	return models.Float(m)
}

type feedConversion struct {
	feed float64
	gain float64
}

func (f *feedConversion) add(row models.ProductionSummaryRecord) {
	if row.TotalFeedAmountPeriod != nil {
		f.feed += *row.TotalFeedAmountPeriod
	}
	f.gain += AdjustedBiomassGain(row)
}

func (f feedConversion) value() *float64 {
	if math.Abs(f.gain) < zeroTolerance {
		return nil
	}
	return models.Float(f.feed / f.gain)
}
