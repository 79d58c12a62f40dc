package aggregate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/aquafarm/internal/analytics/scope"
	"github.com/mamadbah2/aquafarm/internal/domain/models"
)

// ErrAggregationInput indicates a period-scoped read failed, so no KPI for the period can be trusted.
var ErrAggregationInput = errors.New("aggregation input unavailable")

// Source provides the period-scoped records the aggregator consumes.
// An empty unitID means every unit of the organization.
type Source interface {
	ListDailyInventory(ctx context.Context, orgID, unitID string, r models.DateRange) ([]models.DailyInventoryRecord, error)
	ListProductionSummary(ctx context.Context, orgID, unitID string, stage models.GrowthStage, r models.DateRange) ([]models.ProductionSummaryRecord, error)
	ListWaterQualityRatings(ctx context.Context, orgID, unitID string, r models.DateRange) ([]models.WaterQualityRatingRecord, error)
}

// Definition describes the static properties of a KPI.
type Definition struct {
	Key         string
	Label       string
	Unit        string
	Decimals    int
	InvertTrend bool
}

// Definitions lists the KPIs in the order they are reported.
var Definitions = []Definition{
	{Key: models.KPIMortalityRate, Label: "Mortality rate", Unit: "%", Decimals: 2, InvertTrend: true},
	{Key: models.KPIEFCR, Label: "eFCR", Unit: "", Decimals: 2, InvertTrend: true},
	{Key: models.KPIFeedingRate, Label: "Feeding rate", Unit: "kg/t", Decimals: 1},
	{Key: models.KPIABW, Label: "Average body weight", Unit: "g", Decimals: 1},
	{Key: models.KPIBiomass, Label: "Average biomass", Unit: "kg", Decimals: 0},
	{Key: models.KPIBiomassDensity, Label: "Biomass density", Unit: "kg/m³", Decimals: 1},
	{Key: models.KPIWaterQuality, Label: "Water quality", Unit: "score", Decimals: 2},
}

// Aggregator turns raw per-unit-per-day records into farm-level KPIs.
type Aggregator struct {
	source Source
	logger *zap.Logger
}

// NewAggregator wires an aggregator.
func NewAggregator(source Source, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{source: source, logger: logger}
}

// Inputs are the records of one period, already fetched.
type Inputs struct {
	Inventory  []models.DailyInventoryRecord
	Production []models.ProductionSummaryRecord
	Ratings    []models.WaterQualityRatingRecord
}

// Aggregate fetches the period's records for the scope and computes the KPIs. Trend fields are unset.
func (a *Aggregator) Aggregate(ctx context.Context, orgID string, sc *scope.Scope, r models.DateRange) ([]models.KPI, error) {
	if sc.IsEmpty() {
		return EmptyKPIs(), nil
	}

	in, err := a.fetch(ctx, orgID, sc, r)
	if err != nil {
		return nil, err
	}

	kpis := Compute(sc, r, in)
	if wq, ok := models.FindKPI(kpis, models.KPIWaterQuality); ok && wq.Value != nil {
		if _, clamped := RatingFor(*wq.Value); clamped {
			a.logger.Warn("water quality rating outside 0-3, clamped", zap.String("org_id", orgID), zap.Float64("mean", *wq.Value))
		}
	}
	a.logger.Debug("period aggregated",
		zap.String("org_id", orgID),
		zap.Time("start", r.Start),
		zap.Time("end", r.End),
		zap.Int("units", sc.Len()),
		zap.Int("inventory_rows", len(in.Inventory)),
		zap.Int("production_rows", len(in.Production)),
		zap.Int("rating_rows", len(in.Ratings)))
	return kpis, nil
}

func (a *Aggregator) fetch(ctx context.Context, orgID string, sc *scope.Scope, r models.DateRange) (Inputs, error) {
	var unitID string
	if sc.Len() == 1 {
		unitID = sc.IDs()[0]
	}

	var in Inputs
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := a.source.ListDailyInventory(gctx, orgID, unitID, r)
		if err != nil {
			return fmt.Errorf("%w: daily inventory: %w", ErrAggregationInput, err)
		}
		in.Inventory = rows
		return nil
	})
	g.Go(func() error {
		rows, err := a.source.ListProductionSummary(gctx, orgID, unitID, "", r)
		if err != nil {
			return fmt.Errorf("%w: production summary: %w", ErrAggregationInput, err)
		}
		in.Production = rows
		return nil
	})
	g.Go(func() error {
		rows, err := a.source.ListWaterQualityRatings(gctx, orgID, unitID, r)
		if err != nil {
			return fmt.Errorf("%w: water quality ratings: %w", ErrAggregationInput, err)
		}
		in.Ratings = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return Inputs{}, err
	}
	return in, nil
}

// Compute applies the weighting and fallback rules to already fetched records.
// Rows outside the scope or the range are ignored.
func Compute(sc *scope.Scope, r models.DateRange, in Inputs) []models.KPI {
	kpis := EmptyKPIs()
	if sc.IsEmpty() {
		return kpis
	}

	var (
		mortality weighted
		feeding   weighted
		abw       sample
		density   sample
		biomass   sample
		ratings   sample
		fcr       feedConversion
	)

	for _, row := range in.Inventory {
		if !sc.Contains(row.SystemID) || !r.Contains(row.InventoryDate) {
			continue
		}
		if rate, ok := MortalityRate(row); ok {
			mortality.add(rate, float64(row.NumberOfFish))
		}
		if rate, ok := FeedingRate(row); ok {
			feeding.add(rate, deref(row.BiomassLastSampling))
		}
		abw.add(row.ABWLastSampling)
		density.add(row.BiomassDensity)
	}

	for _, row := range in.Production {
		if !sc.Contains(row.SystemID) || !r.Contains(row.Date) {
			continue
		}
		fcr.add(row)
		biomass.add(row.TotalBiomass)
	}

	for _, row := range in.Ratings {
		if !sc.Contains(row.SystemID) || !r.Contains(row.RatingDate) {
			continue
		}
		v := row.RatingNumeric
		ratings.add(&v)
	}

	if v := mortality.value(); v != nil {
		set(kpis, models.KPIMortalityRate, models.Float(*v*100))
	}
	set(kpis, models.KPIEFCR, fcr.value())
	set(kpis, models.KPIFeedingRate, feeding.value())
	set(kpis, models.KPIABW, abw.mean())
	set(kpis, models.KPIBiomass, biomass.mean())
	set(kpis, models.KPIBiomassDensity, density.mean())

	if mean := ratings.mean(); mean != nil {
		rating, _ := RatingFor(*mean)
		for i := range kpis {
			if kpis[i].Key == models.KPIWaterQuality {
				kpis[i].Value = mean
				kpis[i].Badge = rating.Label
				kpis[i].Tone = rating.Tone
			}
		}
	}

	return kpis
}

// EmptyKPIs returns every KPI with an undefined value.
func EmptyKPIs() []models.KPI {
	out := make([]models.KPI, 0, len(Definitions))
	for _, d := range Definitions {
		out = append(out, models.KPI{
			Key:         d.Key,
			Label:       d.Label,
			Unit:        d.Unit,
			Decimals:    d.Decimals,
			InvertTrend: d.InvertTrend,
		})
	}
	return out
}

func set(kpis []models.KPI, key string, value *float64) {
	for i := range kpis {
		if kpis[i].Key == key {
			kpis[i].Value = value
			return
		}
	}
}
