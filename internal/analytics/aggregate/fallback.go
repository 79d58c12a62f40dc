package aggregate

import "github.com/mamadbah2/aquafarm/internal/domain/models"

// MortalityRate returns the mortality rate of a row as a fraction of its fish count.
// A precomputed rate wins; otherwise it is derived from the mortality count.
// Rows without fish are not derivable.
func MortalityRate(row models.DailyInventoryRecord) (float64, bool) {
	if row.NumberOfFish <= 0 {
		return 0, false
	}
	if row.MortalityRate != nil {
		return *row.MortalityRate, true
	}
	if row.MortalityCount != nil {
		return float64(*row.MortalityCount) / float64(row.NumberOfFish), true
	}
	return 0, false
}

// FeedingRate returns the feeding rate of a row in kg of feed per tonne of biomass.
// A precomputed rate wins; otherwise it is derived from the feeding amount.
// Rows without positive biomass are not derivable.
func FeedingRate(row models.DailyInventoryRecord) (float64, bool) {
	biomass := deref(row.BiomassLastSampling)
	if biomass <= 0 {
		return 0, false
	}
	if row.FeedingRate != nil {
		return *row.FeedingRate, true
	}
	if row.FeedingAmount != nil {
		return *row.FeedingAmount * 1000 / biomass, true
	}
	return 0, false
}

// AdjustedBiomassGain is the biomass increase corrected for fish moved in or out of the unit.
func AdjustedBiomassGain(row models.ProductionSummaryRecord) float64 {
	return deref(row.BiomassIncreasePeriod) -
		deref(row.TransferOutWeight) +
		deref(row.TransferInWeight) +
		deref(row.HarvestedWeight) -
		deref(row.StockedWeight)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
