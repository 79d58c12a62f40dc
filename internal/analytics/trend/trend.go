package trend

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/aquafarm/internal/domain/models"
)

// badgeUndefined is shown when no trend can be computed.
const badgeUndefined = "n/a"

// PercentDelta returns the signed percentage change from previous to current.
// It is nil when either side is nil, or when previous is zero and current is not.
func PercentDelta(current, previous *float64) *float64 {
	if current == nil || previous == nil {
		return nil
	}
	if *previous == 0 {
		if *current == 0 {
			return models.Float(0)
		}
		return nil
	}
	delta := (*current - *previous) / math.Abs(*previous) * 100
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return nil
	}
	return models.Float(delta)
}

// WithTrend returns current with each KPI's trend set against the prior KPI of the same key.
// The delta is raw; InvertTrend is left for Decorate to interpret.
func WithTrend(current, prior []models.KPI) []models.KPI {
	byKey := make(map[string]models.KPI, len(prior))
	for _, k := range prior {
		byKey[k.Key] = k
	}

	out := make([]models.KPI, len(current))
	for i, k := range current {
		k.Trend = nil
		if p, ok := byKey[k.Key]; ok {
			k.Trend = PercentDelta(k.Value, p.Value)
		}
		out[i] = k
	}
	return out
}

// Decorate derives the presentation hints of a KPI and rounds its value and trend.
func Decorate(k models.KPI) models.KPI {
	k.Value = round(k.Value, int32(k.Decimals))
	k.Trend = round(k.Trend, 1)

	if k.Key == models.KPIWaterQuality && k.Badge != "" {
		return k
	}

	k.Tone = ToneFor(k.Trend, k.InvertTrend)
	k.Badge = Badge(k.Trend)
	return k
}

// DecorateAll applies Decorate to every KPI.
func DecorateAll(kpis []models.KPI) []models.KPI {
	out := make([]models.KPI, len(kpis))
	for i, k := range kpis {
		out[i] = Decorate(k)
	}
	return out
}

// ToneFor maps a signed trend to a tone. For inverted KPIs a decrease is the good direction.
func ToneFor(trend *float64, invert bool) models.Tone {
	if trend == nil || *trend == 0 {
		return models.ToneNeutral
	}
	improving := *trend > 0
	if invert {
		improving = !improving
	}
	if improving {
		return models.TonePositive
	}
	return models.ToneNegative
}

// Badge formats a trend as a signed percentage.
func Badge(trend *float64) string {
	if trend == nil {
		return badgeUndefined
	}
	return fmt.Sprintf("%+.1f%%", *trend)
}

func round(v *float64, places int32) *float64 {
	if v == nil {
		return nil
	}
	r := decimal.NewFromFloat(*v).Round(places).InexactFloat64()
	return &r
}
