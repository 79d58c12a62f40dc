package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/mamadbah2/aquafarm/internal/analytics/period"
	"github.com/mamadbah2/aquafarm/internal/domain/models"
)

const dateLayout = "2006-01-02"

// Querier is the subset of pgxpool.Pool the repository uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads farm records from the relational store.
type Repository struct {
	db     Querier
	logger *zap.Logger
}

// NewRepository wires a repository over a pool or any compatible querier.
func NewRepository(db Querier, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{db: db, logger: logger}
}

// ListOrganizations returns the ids of every farm that owns at least one unit.
func (r *Repository) ListOrganizations(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT farm_id FROM system ORDER BY farm_id`)
	if err != nil {
		return nil, fmt.Errorf("query organizations: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect organizations: %w", err)
	}
	return ids, nil
}

// ListUnits returns the units of an organization, optionally narrowed by stage and unit.
func (r *Repository) ListUnits(ctx context.Context, orgID string, stage models.GrowthStage, unitID string) ([]models.Unit, error) {
	sql, args := newSelect(`SELECT id, name, growth_stage, farm_id FROM system`).
		where("farm_id = ?", orgID).
		whereIf("growth_stage = ?", string(stage)).
		whereIf("id = ?", unitID).
		order("id").
		build()

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	var out []models.Unit
	for rows.Next() {
		var u models.Unit
		var stageValue string
		if err := rows.Scan(&u.ID, &u.Name, &stageValue, &u.FarmID); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		u.GrowthStage = models.GrowthStage(stageValue)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	return out, nil
}

// ListUnitIDsForBatch returns the units associated with a batch.
func (r *Repository) ListUnitIDsForBatch(ctx context.Context, batchID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT system_id FROM fish_batch_system WHERE batch_id = $1 ORDER BY system_id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query batch %s units: %w", batchID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect batch %s units: %w", batchID, err)
	}
	return ids, nil
}

// ListDailyInventory returns inventory rows of the organization within the range.
func (r *Repository) ListDailyInventory(ctx context.Context, orgID, unitID string, dr models.DateRange) ([]models.DailyInventoryRecord, error) {
	sql, args := newSelect(`SELECT i.system_id, i.inventory_date, i.number_of_fish, i.number_of_fish_mortality,
		i.mortality_rate, i.feeding_amount, i.feeding_rate, i.biomass_last_sampling, i.biomass_density, i.abw_last_sampling
		FROM daily_fish_inventory_table i JOIN system s ON s.id = i.system_id`).
		where("s.farm_id = ?", orgID).
		whereIf("i.system_id = ?", unitID).
		where("i.inventory_date BETWEEN ? AND ?", dr.Start.Format(dateLayout), dr.End.Format(dateLayout)).
		order("i.inventory_date, i.system_id").
		build()

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query daily inventory: %w", err)
	}
	defer rows.Close()

	var out []models.DailyInventoryRecord
	for rows.Next() {
		var rec models.DailyInventoryRecord
		var fish *int
		if err := rows.Scan(&rec.SystemID, &rec.InventoryDate, &fish, &rec.MortalityCount,
			&rec.MortalityRate, &rec.FeedingAmount, &rec.FeedingRate, &rec.BiomassLastSampling,
			&rec.BiomassDensity, &rec.ABWLastSampling); err != nil {
			return nil, fmt.Errorf("scan daily inventory: %w", err)
		}
		if fish != nil && *fish > 0 {
			rec.NumberOfFish = *fish
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily inventory: %w", err)
	}
	return out, nil
}

// ListProductionSummary returns production summary rows of the organization within the range.
func (r *Repository) ListProductionSummary(ctx context.Context, orgID, unitID string, stage models.GrowthStage, dr models.DateRange) ([]models.ProductionSummaryRecord, error) {
	sql, args := newSelect(`SELECT p.system_id, p.date, p.efcr_period, p.total_feed_amount_period, p.biomass_increase_period,
		p.total_biomass, p.number_of_fish_inventory, p.daily_mortality_count, p.total_weight_transfer_out,
		p.total_weight_transfer_in, p.total_weight_harvested, p.total_weight_stocked
		FROM production_summary p JOIN system s ON s.id = p.system_id`).
		where("s.farm_id = ?", orgID).
		whereIf("p.system_id = ?", unitID).
		whereIf("s.growth_stage = ?", string(stage)).
		where("p.date BETWEEN ? AND ?", dr.Start.Format(dateLayout), dr.End.Format(dateLayout)).
		order("p.date, p.system_id").
		build()

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query production summary: %w", err)
	}
	defer rows.Close()

	var out []models.ProductionSummaryRecord
	for rows.Next() {
		var rec models.ProductionSummaryRecord
		if err := rows.Scan(&rec.SystemID, &rec.Date, &rec.EFCRPeriod, &rec.TotalFeedAmountPeriod,
			&rec.BiomassIncreasePeriod, &rec.TotalBiomass, &rec.NumberOfFishInventory, &rec.DailyMortalityCount,
			&rec.TransferOutWeight, &rec.TransferInWeight, &rec.HarvestedWeight, &rec.StockedWeight); err != nil {
			return nil, fmt.Errorf("scan production summary: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate production summary: %w", err)
	}
	return out, nil
}

// ListWaterQualityRatings returns the daily ratings of the organization within the range.
func (r *Repository) ListWaterQualityRatings(ctx context.Context, orgID, unitID string, dr models.DateRange) ([]models.WaterQualityRatingRecord, error) {
	sql, args := newSelect(`SELECT w.system_id, w.rating_date, w.rating_numeric
		FROM daily_water_quality_rating w JOIN system s ON s.id = w.system_id`).
		where("s.farm_id = ?", orgID).
		whereIf("w.system_id = ?", unitID).
		where("w.rating_date BETWEEN ? AND ?", dr.Start.Format(dateLayout), dr.End.Format(dateLayout)).
		where("w.rating_numeric IS NOT NULL").
		order("w.rating_date, w.system_id").
		build()

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query water quality ratings: %w", err)
	}
	defer rows.Close()

	var out []models.WaterQualityRatingRecord
	for rows.Next() {
		var rec models.WaterQualityRatingRecord
		if err := rows.Scan(&rec.SystemID, &rec.RatingDate, &rec.RatingNumeric); err != nil {
			return nil, fmt.Errorf("scan water quality rating: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate water quality ratings: %w", err)
	}
	return out, nil
}

// ListWaterQualityMeasurements returns raw readings of one parameter within the range.
func (r *Repository) ListWaterQualityMeasurements(ctx context.Context, orgID, unitID string, param models.WaterParameter, dr models.DateRange) ([]models.WaterQualityMeasurement, error) {
	sql, args := newSelect(`SELECT m.system_id, m.date, m.parameter_name, AVG(m.parameter_value)
		FROM water_quality_measurement m JOIN system s ON s.id = m.system_id`).
		where("s.farm_id = ?", orgID).
		whereIf("m.system_id = ?", unitID).
		where("m.parameter_name = ?", string(param)).
		where("m.date BETWEEN ? AND ?", dr.Start.Format(dateLayout), dr.End.Format(dateLayout)).
		group("m.system_id, m.date, m.parameter_name").
		order("m.system_id, m.date").
		build()

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query water quality measurements: %w", err)
	}
	defer rows.Close()

	var out []models.WaterQualityMeasurement
	for rows.Next() {
		var rec models.WaterQualityMeasurement
		var name string
		if err := rows.Scan(&rec.SystemID, &rec.Date, &name, &rec.Value); err != nil {
			return nil, fmt.Errorf("scan water quality measurement: %w", err)
		}
		rec.Parameter = models.WaterParameter(name)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate water quality measurements: %w", err)
	}
	return out, nil
}

// PeriodBounds reads precomputed bounds of a named period. A missing row yields period.ErrBoundsNotFound.
func (r *Repository) PeriodBounds(ctx context.Context, orgID, name string) (models.DateRange, error) {
	var dr models.DateRange
	err := r.db.QueryRow(ctx,
		`SELECT start_date, end_date FROM dashboard_time_period WHERE farm_id = $1 AND time_period = $2`,
		orgID, name).Scan(&dr.Start, &dr.End)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DateRange{}, period.ErrBoundsNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
			r.logger.Warn("period bounds view missing, falling back to calendar", zap.String("org_id", orgID))
			return models.DateRange{}, period.ErrBoundsNotFound
		}
		return models.DateRange{}, fmt.Errorf("query period bounds: %w", err)
	}
	return dr, nil
}
