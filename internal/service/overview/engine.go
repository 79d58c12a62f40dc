package overview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/aquafarm/internal/analytics/period"
	"github.com/mamadbah2/aquafarm/internal/analytics/scope"
	"github.com/mamadbah2/aquafarm/internal/analytics/trend"
	"github.com/mamadbah2/aquafarm/internal/domain/models"
)

// ErrIndeterminate indicates the filter lacks the organization context needed to compute anything.
var ErrIndeterminate = errors.New("scope indeterminate: organization missing")

// ScopeResolver resolves filter values into a unit scope.
type ScopeResolver interface {
	Resolve(ctx context.Context, orgID, stage, unitID, batchID string) (*scope.Scope, error)
}

// PeriodResolver resolves a period specifier into concrete bounds.
type PeriodResolver interface {
	Resolve(ctx context.Context, spec models.PeriodSpec, orgID string) (models.DateRange, error)
}

// Aggregator computes the KPIs of a scope over a range.
type Aggregator interface {
	Aggregate(ctx context.Context, orgID string, sc *scope.Scope, r models.DateRange) ([]models.KPI, error)
}

// Engine computes KPI overviews with trends against the equivalent prior period.
type Engine struct {
	scopes     ScopeResolver
	periods    PeriodResolver
	aggregator Aggregator
	latest     *Superseder
	logger     *zap.Logger
	now        func() time.Time
}

// NewEngine wires an engine.
func NewEngine(scopes ScopeResolver, periods PeriodResolver, aggregator Aggregator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		scopes:     scopes,
		periods:    periods,
		aggregator: aggregator,
		latest:     NewSuperseder(),
		logger:     logger,
		now:        time.Now,
	}
}

// Compute resolves the filter and returns the KPIs of its period with trends.
func (e *Engine) Compute(ctx context.Context, filter models.Filter) (models.Overview, error) {
	return e.compute(ctx, uuid.NewString(), filter)
}

// ComputeLatest is Compute for callers that may issue overlapping requests under the same key.
// A newer call for key abandons the older one, which then returns ErrSuperseded.
func (e *Engine) ComputeLatest(ctx context.Context, key string, filter models.Filter) (models.Overview, error) {
	cctx, tok := e.latest.Begin(ctx, key)
	defer tok.Done()

	ov, err := e.compute(cctx, tok.ID, filter)
	if err != nil {
		if !tok.Latest() && ctx.Err() == nil {
			return models.Overview{}, ErrSuperseded
		}
		return models.Overview{}, err
	}

	var result models.Overview
	if err := tok.Apply(func() { result = ov }); err != nil {
		e.logger.Debug("dropping superseded overview", zap.String("request_id", tok.ID), zap.String("key", key))
		return models.Overview{}, err
	}
	return result, nil
}

func (e *Engine) compute(ctx context.Context, requestID string, filter models.Filter) (models.Overview, error) {
	logger := e.logger.With(zap.String("request_id", requestID), zap.String("org_id", filter.OrgID))

	sc, err := e.scopes.Resolve(ctx, filter.OrgID, filter.Stage, filter.UnitID, filter.BatchID)
	if err != nil {
		return models.Overview{}, fmt.Errorf("resolve scope: %w", err)
	}
	if sc == nil {
		return models.Overview{}, ErrIndeterminate
	}

	current, err := e.periods.Resolve(ctx, filter.Period, filter.OrgID)
	if err != nil {
		return models.Overview{}, fmt.Errorf("resolve period: %w", err)
	}
	prior := period.Prior(current)

	var currentKPIs, priorKPIs []models.KPI
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		kpis, err := e.aggregator.Aggregate(gctx, filter.OrgID, sc, current)
		if err != nil {
			return fmt.Errorf("current period: %w", err)
		}
		currentKPIs = kpis
		return nil
	})
	g.Go(func() error {
		kpis, err := e.aggregator.Aggregate(gctx, filter.OrgID, sc, prior)
		if err != nil {
			return fmt.Errorf("prior period: %w", err)
		}
		priorKPIs = kpis
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Warn("overview aggregation failed", zap.Error(err))
		return models.Overview{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Overview{}, err
	}

	ov := models.Overview{
		RequestID:   requestID,
		Filter:      filter,
		KPIs:        trend.DecorateAll(trend.WithTrend(currentKPIs, priorKPIs)),
		DateBounds:  current,
		PriorBounds: prior,
		UnitCount:   sc.Len(),
		GeneratedAt: e.now().UTC(),
	}

	logger.Info("overview computed",
		zap.Int("units", ov.UnitCount),
		zap.Time("start", current.Start),
		zap.Time("end", current.End))
	return ov, nil
}
