package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/aquafarm/internal/config"
	"github.com/mamadbah2/aquafarm/internal/domain/models"
	"github.com/mamadbah2/aquafarm/internal/service/alerting"
)

const jobTimeout = 5 * time.Minute

// Scanner runs an alert scan for one organization.
type Scanner interface {
	Scan(ctx context.Context, orgID string) (alerting.Result, error)
}

// OverviewComputer produces the KPI overview for a filter.
type OverviewComputer interface {
	Compute(ctx context.Context, filter models.Filter) (models.Overview, error)
}

// OrganizationLister enumerates organizations when none are configured.
type OrganizationLister interface {
	ListOrganizations(ctx context.Context) ([]string, error)
}

// SnapshotStore keeps a copy of scheduled overviews.
type SnapshotStore interface {
	SaveOverviewSnapshot(ctx context.Context, snapshot models.OverviewSnapshot) error
}

// Exporter publishes a scheduled overview, e.g. to a spreadsheet.
type Exporter interface {
	ExportOverview(ctx context.Context, ov models.Overview) error
}

// Dependencies groups the collaborators of the scheduled jobs. Snapshots and
// Exporter are optional.
type Dependencies struct {
	Scanner   Scanner
	Overviews OverviewComputer
	Orgs      OrganizationLister
	Snapshots SnapshotStore
	Exporter  Exporter
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron   *cron.Cron
	cfg    config.ReportingConfig
	orgs   []string
	deps   Dependencies
	now    func() time.Time
	logger *zap.Logger
}

// NewScheduler creates a scheduler whose cron expressions run in the configured timezone.
func NewScheduler(cfg config.ReportingConfig, orgs []string, deps Dependencies, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Scanner == nil || deps.Overviews == nil {
		return nil, errors.New("scheduler requires an alert scanner and an overview computer")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		cfg:    cfg,
		orgs:   orgs,
		deps:   deps,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("scan_schedule", s.cfg.ScanSchedule),
		zap.String("snapshot_schedule", s.cfg.SnapshotSchedule),
	)

	if _, err := s.cron.AddFunc(s.cfg.ScanSchedule, s.job("alert scan", s.RunAlertScans)); err != nil {
		return fmt.Errorf("schedule alert scan: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.SnapshotSchedule, s.job("overview snapshot", s.RunSnapshots)); err != nil {
		return fmt.Errorf("schedule overview snapshot: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) job(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		started := s.now()
		if err := run(ctx); err != nil {
			s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Info("scheduled job finished", zap.String("job", name), zap.Duration("took", s.now().Sub(started)))
	}
}

// RunAlertScans scans every organization. A failing organization does not stop the others.
func (s *Scheduler) RunAlertScans(ctx context.Context) error {
	orgs, err := s.organizations(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, org := range orgs {
		res, err := s.deps.Scanner.Scan(ctx, org)
		if err != nil {
			errs = append(errs, fmt.Errorf("scan %s: %w", org, err))
			continue
		}
		s.logger.Debug("alert scan result", zap.String("org_id", org), zap.Int("alerts", len(res.Alerts)))
	}
	return errors.Join(errs...)
}

// RunSnapshots computes the configured period overview per organization, stores and exports it.
func (s *Scheduler) RunSnapshots(ctx context.Context) error {
	orgs, err := s.organizations(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, org := range orgs {
		filter := models.Filter{
			OrgID:   org,
			Stage:   models.FilterAll,
			BatchID: models.FilterAll,
			UnitID:  models.FilterAll,
			Period:  models.PeriodSpec{Name: s.cfg.SnapshotPeriod},
		}
		ov, err := s.deps.Overviews.Compute(ctx, filter)
		if err != nil {
			errs = append(errs, fmt.Errorf("overview %s: %w", org, err))
			continue
		}

		if s.deps.Snapshots != nil {
			snap := models.OverviewSnapshot{OrgID: org, Overview: ov, CreatedAt: s.now().UTC()}
			if err := s.deps.Snapshots.SaveOverviewSnapshot(ctx, snap); err != nil {
				errs = append(errs, fmt.Errorf("store snapshot %s: %w", org, err))
			}
		}
		if s.deps.Exporter != nil {
			if err := s.deps.Exporter.ExportOverview(ctx, ov); err != nil {
				errs = append(errs, fmt.Errorf("export snapshot %s: %w", org, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) organizations(ctx context.Context) ([]string, error) {
	if len(s.orgs) > 0 {
		return s.orgs, nil
	}
	if s.deps.Orgs == nil {
		return nil, errors.New("no organizations configured")
	}
	orgs, err := s.deps.Orgs.ListOrganizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}
