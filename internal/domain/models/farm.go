package models

import "time"

// GrowthStage enumerates the production stages a unit can be in.
type GrowthStage string

const (
	StageNursing GrowthStage = "nursing"
	StageGrowOut GrowthStage = "grow_out"
)

// Unit is a physical production enclosure (cage, pond, tank), called a system upstream.
type Unit struct {
	ID          string      `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	GrowthStage GrowthStage `json:"growth_stage" db:"growth_stage"`
	FarmID      string      `json:"farm_id" db:"farm_id"`
}

// DailyInventoryRecord is one inventory row per (unit, date).
type DailyInventoryRecord struct {
	SystemID            string    `json:"system_id"`
	InventoryDate       time.Time `json:"inventory_date"`
	NumberOfFish        int       `json:"number_of_fish"`
	MortalityCount      *int      `json:"number_of_fish_mortality,omitempty"`
	MortalityRate       *float64  `json:"mortality_rate,omitempty"`
	FeedingAmount       *float64  `json:"feeding_amount,omitempty"`
	FeedingRate         *float64  `json:"feeding_rate,omitempty"`
	BiomassLastSampling *float64  `json:"biomass_last_sampling,omitempty"`
	BiomassDensity      *float64  `json:"biomass_density,omitempty"`
	ABWLastSampling     *float64  `json:"abw_last_sampling,omitempty"`
}

// ProductionSummaryRecord is one production summary row per (unit, date).
type ProductionSummaryRecord struct {
	SystemID              string    `json:"system_id"`
	Date                  time.Time `json:"date"`
	EFCRPeriod            *float64  `json:"efcr_period,omitempty"`
	TotalFeedAmountPeriod *float64  `json:"total_feed_amount_period,omitempty"`
	BiomassIncreasePeriod *float64  `json:"biomass_increase_period,omitempty"`
	TotalBiomass          *float64  `json:"total_biomass,omitempty"`
	NumberOfFishInventory *int      `json:"number_of_fish_inventory,omitempty"`
	DailyMortalityCount   *int      `json:"daily_mortality_count,omitempty"`
	TransferOutWeight     *float64  `json:"total_weight_transfer_out,omitempty"`
	TransferInWeight      *float64  `json:"total_weight_transfer_in,omitempty"`
	HarvestedWeight       *float64  `json:"total_weight_harvested,omitempty"`
	StockedWeight         *float64  `json:"total_weight_stocked,omitempty"`
}

// WaterQualityRatingRecord is the ordinal water-quality rating of a unit for a day.
type WaterQualityRatingRecord struct {
	SystemID      string    `json:"system_id"`
	RatingDate    time.Time `json:"rating_date"`
	RatingNumeric float64   `json:"rating_numeric"`
}

// WaterParameter names a measured water-quality parameter.
type WaterParameter string

const (
	ParamDissolvedOxygen WaterParameter = "dissolved_oxygen"
	ParamAmmonia         WaterParameter = "ammonia"
	ParamTemperature     WaterParameter = "temperature"
	ParamPH              WaterParameter = "ph"
)

// WaterQualityMeasurement is a raw reading of one parameter for a unit on a day.
type WaterQualityMeasurement struct {
	SystemID  string         `json:"system_id"`
	Date      time.Time      `json:"date"`
	Parameter WaterParameter `json:"parameter"`
	Value     float64        `json:"value"`
}

// MetricPoint is a single dated value of a time series.
type MetricPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}
