package alerting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/aquafarm/internal/analytics/forecast"
	"github.com/mamadbah2/aquafarm/internal/domain/models"
)

// FeedingParameter names the series used for feeding anomaly alerts.
const FeedingParameter = "feeding_amount"

const (
	defaultLookbackDays  = 30
	defaultRollingWindow = 7
	maxConcurrentUnits   = 4
)

var alertNamespace = uuid.MustParse("8f6f1c7e-3a0b-4f3d-9a57-1b8e0f0d2c11")

// Store exposes the reads an alert scan needs.
type Store interface {
	ListUnits(ctx context.Context, orgID string, stage models.GrowthStage, unitID string) ([]models.Unit, error)
	ListWaterQualityMeasurements(ctx context.Context, orgID, unitID string, param models.WaterParameter, dr models.DateRange) ([]models.WaterQualityMeasurement, error)
	ListDailyInventory(ctx context.Context, orgID, unitID string, dr models.DateRange) ([]models.DailyInventoryRecord, error)
}

// ExpectationSource supplies the expected feeding series for a unit.
type ExpectationSource interface {
	ExpectedFeeding(ctx context.Context, orgID, systemID string, dr models.DateRange) ([]models.MetricPoint, error)
}

// ThresholdSource overrides the configured thresholds.
type ThresholdSource interface {
	LoadThresholds(ctx context.Context) ([]forecast.Threshold, error)
}

// History persists raised alerts and reports how many were new.
type History interface {
	SaveAlerts(ctx context.Context, alerts []models.Alert) (int, error)
}

// Notifier delivers a text message.
type Notifier interface {
	Send(ctx context.Context, req models.OutboundMessageRequest) (string, error)
}

// Options tunes a scan.
type Options struct {
	Thresholds    []forecast.Threshold
	Sigma         float64
	LookbackDays  int
	RollingWindow int
	Recipient     string
}

// Result summarizes one scan.
type Result struct {
	OrgID    string           `json:"org_id"`
	Range    models.DateRange `json:"range"`
	Alerts   []models.Alert   `json:"alerts"`
	Stored   int              `json:"stored"`
	Notified bool             `json:"notified"`
}

// Service raises predictive water-quality alerts and feeding anomaly alerts.
type Service struct {
	store      Store
	opts       Options
	expected   ExpectationSource
	thresholds ThresholdSource
	history    History
	notifier   Notifier
	now        func() time.Time
	logger     *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithExpectationSource sets the external feeding forecaster.
func WithExpectationSource(src ExpectationSource) Option {
	return func(s *Service) { s.expected = src }
}

// WithThresholdSource sets the threshold override source.
func WithThresholdSource(src ThresholdSource) Option {
	return func(s *Service) { s.thresholds = src }
}

// WithHistory sets the alert store.
func WithHistory(h History) Option {
	return func(s *Service) { s.history = h }
}

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides the scan reference time.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires an alerting service.
func NewService(store Store, opts Options, logger *zap.Logger, options ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Sigma <= 0 {
		opts.Sigma = forecast.DefaultSigma
	}
	if opts.LookbackDays < forecast.MinPoints {
		opts.LookbackDays = defaultLookbackDays
	}
	if opts.RollingWindow < 1 {
		opts.RollingWindow = defaultRollingWindow
	}
	s := &Service{
		store:  store,
		opts:   opts,
		now:    time.Now,
		logger: logger,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Scan evaluates every unit of the organization over the trailing lookback window.
func (s *Service) Scan(ctx context.Context, orgID string) (Result, error) {
	if strings.TrimSpace(orgID) == "" {
		return Result{}, errors.New("organization id must not be empty")
	}

	end := models.TruncateDay(s.now())
	dr := models.DateRange{Start: end.AddDate(0, 0, -(s.opts.LookbackDays - 1)), End: end}
	result := Result{OrgID: orgID, Range: dr}

	units, err := s.store.ListUnits(ctx, orgID, "", "")
	if err != nil {
		return result, fmt.Errorf("list units for org %s: %w", orgID, err)
	}
	thresholds := s.activeThresholds(ctx)

	var (
		mu     sync.Mutex
		alerts []models.Alert
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUnits)
	for _, u := range units {
		g.Go(func() error {
			found, err := s.scanUnit(gctx, orgID, u.ID, dr, thresholds)
			if err != nil {
				return err
			}
			mu.Lock()
			alerts = append(alerts, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	sortAlerts(alerts)
	result.Alerts = alerts
	if len(alerts) == 0 {
		return result, nil
	}

	if s.history != nil {
		stored, err := s.history.SaveAlerts(ctx, alerts)
		if err != nil {
			return result, fmt.Errorf("save alerts: %w", err)
		}
		result.Stored = stored
	}

	if s.notifier != nil && s.opts.Recipient != "" && (s.history == nil || result.Stored > 0) {
		msg := models.OutboundMessageRequest{To: s.opts.Recipient, Message: FormatDigest(orgID, alerts)}
		if _, err := s.notifier.Send(ctx, msg); err != nil {
			s.logger.Warn("alert notification failed", zap.String("org_id", orgID), zap.Error(err))
		} else {
			result.Notified = true
		}
	}

	s.logger.Info("alert scan completed",
		zap.String("org_id", orgID),
		zap.Int("units", len(units)),
		zap.Int("alerts", len(alerts)),
		zap.Int("stored", result.Stored),
	)
	return result, nil
}

func (s *Service) activeThresholds(ctx context.Context) []forecast.Threshold {
	if s.thresholds == nil {
		return s.opts.Thresholds
	}
	loaded, err := s.thresholds.LoadThresholds(ctx)
	if err != nil {
		s.logger.Warn("threshold override unavailable, using configured thresholds", zap.Error(err))
		return s.opts.Thresholds
	}
	if len(loaded) == 0 {
		return s.opts.Thresholds
	}
	return loaded
}

func (s *Service) scanUnit(ctx context.Context, orgID, unitID string, dr models.DateRange, thresholds []forecast.Threshold) ([]models.Alert, error) {
	var out []models.Alert

	series := make(map[models.WaterParameter][]models.MetricPoint)
	for _, th := range thresholds {
		param := models.WaterParameter(th.Parameter)
		points, ok := series[param]
		if !ok {
			rows, err := s.store.ListWaterQualityMeasurements(ctx, orgID, unitID, param, dr)
			if err != nil {
				return nil, fmt.Errorf("load %s for unit %s: %w", param, unitID, err)
			}
			points = make([]models.MetricPoint, 0, len(rows))
			for _, r := range rows {
				points = append(points, models.MetricPoint{Date: r.Date, Value: r.Value})
			}
			series[param] = points
		}

		if p, fires := forecast.Predict(points, th); fires {
			out = append(out, s.predictiveAlert(orgID, unitID, p))
		}
	}

	feeding, err := s.feedingAnomalies(ctx, orgID, unitID, dr)
	if err != nil {
		return nil, err
	}
	return append(out, feeding...), nil
}

func (s *Service) feedingAnomalies(ctx context.Context, orgID, unitID string, dr models.DateRange) ([]models.Alert, error) {
	rows, err := s.store.ListDailyInventory(ctx, orgID, unitID, dr)
	if err != nil {
		return nil, fmt.Errorf("load feeding for unit %s: %w", unitID, err)
	}
	actual := make([]models.MetricPoint, 0, len(rows))
	for _, r := range rows {
		if r.SystemID != unitID || r.FeedingAmount == nil {
			continue
		}
		actual = append(actual, models.MetricPoint{Date: r.InventoryDate, Value: *r.FeedingAmount})
	}
	if len(actual) < 2 {
		return nil, nil
	}

	expected := s.expectedFeeding(ctx, orgID, unitID, dr, actual)
	var out []models.Alert
	for _, a := range forecast.DetectAnomalies(actual, expected, s.opts.Sigma) {
		out = append(out, s.anomalyAlert(orgID, unitID, a))
	}
	return out, nil
}

func (s *Service) expectedFeeding(ctx context.Context, orgID, unitID string, dr models.DateRange, actual []models.MetricPoint) []models.MetricPoint {
	if s.expected != nil {
		points, err := s.expected.ExpectedFeeding(ctx, orgID, unitID, dr)
		if err == nil && len(points) > 0 {
			return points
		}
		if err != nil {
			s.logger.Debug("feeding forecast unavailable, using rolling mean",
				zap.String("system_id", unitID), zap.Error(err))
		}
	}
	return forecast.RollingExpectation(actual, s.opts.RollingWindow)
}

func (s *Service) predictiveAlert(orgID, unitID string, p forecast.Prediction) models.Alert {
	severity := models.SeverityWarning
	if p.Threshold.Breaches(p.Last) {
		severity = models.SeverityCritical
	}
	return models.Alert{
		ID:        alertID(models.AlertPredictive, orgID, unitID, p.Threshold.Parameter+"/"+string(p.Threshold.Direction), p.Date),
		Kind:      models.AlertPredictive,
		OrgID:     orgID,
		SystemID:  unitID,
		Parameter: p.Threshold.Parameter,
		Severity:  severity,
		Message: fmt.Sprintf("%s projected at %.3f within %d days (limit %s %.3f, last %.3f)",
			p.Threshold.Parameter, p.Projected, forecast.Horizon, p.Threshold.Direction, p.Threshold.Limit, p.Last),
		Observed:  p.Last,
		Reference: p.Projected,
		Threshold: p.Threshold.Limit,
		Date:      p.Date,
		CreatedAt: s.now().UTC(),
	}
}

func (s *Service) anomalyAlert(orgID, unitID string, a forecast.Anomaly) models.Alert {
	severity := models.SeverityWarning
	if a.ZScore > 1.5*s.opts.Sigma {
		severity = models.SeverityCritical
	}
	return models.Alert{
		ID:        alertID(models.AlertAnomaly, orgID, unitID, FeedingParameter, a.Date),
		Kind:      models.AlertAnomaly,
		OrgID:     orgID,
		SystemID:  unitID,
		Parameter: FeedingParameter,
		Severity:  severity,
		Message: fmt.Sprintf("feeding %.1f kg vs expected %.1f kg on %s (z=%.2f)",
			a.Actual, a.Expected, a.Date.Format("2006-01-02"), a.ZScore),
		Observed:  a.Actual,
		Reference: a.Expected,
		ZScore:    a.ZScore,
		Date:      a.Date,
		CreatedAt: s.now().UTC(),
	}
}

// alertID is stable for a given condition so rescans do not duplicate history.
func alertID(kind models.AlertKind, orgID, unitID, subject string, day time.Time) string {
	key := strings.Join([]string{string(kind), orgID, unitID, subject, models.TruncateDay(day).Format("2006-01-02")}, "|")
	return uuid.NewSHA1(alertNamespace, []byte(key)).String()
}

func sortAlerts(alerts []models.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.SystemID != b.SystemID {
			return a.SystemID < b.SystemID
		}
		if a.Kind != b.Kind {
			return a.Kind > b.Kind
		}
		if a.Parameter != b.Parameter {
			return a.Parameter < b.Parameter
		}
		return a.Date.Before(b.Date)
	})
}

// FormatDigest renders alerts as a single WhatsApp message.
func FormatDigest(orgID string, alerts []models.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Farm alerts* (%s): %d\n", orgID, len(alerts))
	for _, a := range alerts {
		marker := "⚠️"
		if a.Severity == models.SeverityCritical {
			marker = "🚨"
		}
		fmt.Fprintf(&b, "%s [%s] %s\n", marker, a.SystemID, a.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

// DefaultThresholds builds the water-quality limits from configuration values.
func DefaultThresholds(doMin, ammoniaMax, temperatureMax, phMin, phMax float64) []forecast.Threshold {
	return []forecast.Threshold{
		{Parameter: string(models.ParamDissolvedOxygen), Limit: doMin, Direction: forecast.Below},
		{Parameter: string(models.ParamAmmonia), Limit: ammoniaMax, Direction: forecast.Above},
		{Parameter: string(models.ParamTemperature), Limit: temperatureMax, Direction: forecast.Above},
		{Parameter: string(models.ParamPH), Limit: phMin, Direction: forecast.Below},
		{Parameter: string(models.ParamPH), Limit: phMax, Direction: forecast.Above},
	}
}
