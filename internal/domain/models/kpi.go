package models

// KPI keys produced by the aggregator, in presentation order.
const (
	KPIMortalityRate  = "mortality_rate"
	KPIEFCR           = "efcr"
	KPIFeedingRate    = "feeding_rate"
	KPIABW            = "abw"
	KPIBiomass        = "biomass"
	KPIBiomassDensity = "biomass_density"
	KPIWaterQuality   = "water_quality"
)

// Tone is a presentation hint derived from a KPI's value and trend.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneNegative Tone = "negative"
	ToneNeutral  Tone = "neutral"
	ToneWarning  Tone = "warning"
)

// KPI is a single farm-level indicator. Nil Value or Trend means undefined.
type KPI struct {
	Key         string   `json:"key" bson:"key"`
	Label       string   `json:"label" bson:"label"`
	Value       *float64 `json:"value" bson:"value"`
	Unit        string   `json:"unit" bson:"unit"`
	Decimals    int      `json:"decimals" bson:"decimals"`
	Trend       *float64 `json:"trend" bson:"trend"`
	InvertTrend bool     `json:"invertTrend" bson:"invert_trend"`
	Tone        Tone     `json:"tone" bson:"tone"`
	Badge       string   `json:"badge" bson:"badge"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

// FindKPI returns the KPI with the given key.
func FindKPI(kpis []KPI, key string) (KPI, bool) {
	for _, k := range kpis {
		if k.Key == key {
			return k, true
		}
	}
	return KPI{}, false
}
