package period

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/aquafarm/internal/domain/models"
)

const dateLayout = "2006-01-02"

// Named periods understood by the resolver.
const (
	Day      = "day"
	Week     = "week"
	TwoWeeks = "2_weeks"
	Month    = "month"
	Quarter  = "quarter"
	HalfYear = "6_months"
	Year     = "year"
	Custom   = "custom"
)

var namedDays = map[string]int{
	Day:      1,
	Week:     7,
	TwoWeeks: 14,
	Month:    30,
	Quarter:  90,
	HalfYear: 180,
	Year:     365,
}

var (
	// ErrInvalidPeriod indicates an unknown period name or malformed custom bounds.
	ErrInvalidPeriod = errors.New("invalid period")
	// ErrBoundsNotFound is returned by a BoundsSource that has no precomputed bounds.
	ErrBoundsNotFound = errors.New("period bounds not found")
)

// BoundsSource supplies precomputed bounds for named periods.
type BoundsSource interface {
	PeriodBounds(ctx context.Context, orgID, period string) (models.DateRange, error)
}

// Resolver turns period specifiers into concrete date ranges.
type Resolver struct {
	source BoundsSource
	logger *zap.Logger
	now    func() time.Time
}

// NewResolver wires a resolver. source may be nil, in which case only calendar arithmetic is used.
func NewResolver(source BoundsSource, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{source: source, logger: logger, now: time.Now}
}

// WithClock overrides the clock used for calendar arithmetic.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve returns the range for spec within the organization.
func (r *Resolver) Resolve(ctx context.Context, spec models.PeriodSpec, orgID string) (models.DateRange, error) {
	name := normalizeName(spec.Name)

	if name == Custom {
		return customRange(spec.From, spec.To)
	}

	days, ok := namedDays[name]
	if !ok {
		return models.DateRange{}, fmt.Errorf("%w: unknown period %q", ErrInvalidPeriod, spec.Name)
	}

	if r.source != nil && orgID != "" {
		bounds, err := r.source.PeriodBounds(ctx, orgID, name)
		switch {
		case err == nil:
			return customRange(bounds.Start, bounds.End)
		case errors.Is(err, ErrBoundsNotFound):
			r.logger.Debug("no precomputed bounds, using calendar", zap.String("org_id", orgID), zap.String("period", name))
		default:
			return models.DateRange{}, fmt.Errorf("load bounds for %s: %w", name, err)
		}
	}

	return Trailing(r.now(), days), nil
}

// Trailing returns the range of the given number of days ending on the day of now.
func Trailing(now time.Time, days int) models.DateRange {
	if days < 1 {
		days = 1
	}
	end := models.TruncateDay(now)
	return models.DateRange{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

// Prior returns the range of identical length immediately preceding r.
func Prior(r models.DateRange) models.DateRange {
	span := r.End.Sub(r.Start)
	priorEnd := r.Start.AddDate(0, 0, -1)
	return models.DateRange{Start: priorEnd.Add(-span), End: priorEnd}
}

// ParseSpec builds a period specifier from request values. Names must be known; dates use YYYY-MM-DD.
func ParseSpec(name, from, to string) (models.PeriodSpec, error) {
	spec := models.PeriodSpec{Name: normalizeName(name)}
	if spec.Name == "" {
		spec.Name = Month
	}
	if spec.Name != Custom {
		if _, ok := namedDays[spec.Name]; !ok {
			return models.PeriodSpec{}, fmt.Errorf("%w: unknown period %q", ErrInvalidPeriod, name)
		}
		return spec, nil
	}

	var err error
	if spec.From, err = time.Parse(dateLayout, strings.TrimSpace(from)); err != nil {
		return models.PeriodSpec{}, fmt.Errorf("%w: from: %w", ErrInvalidPeriod, err)
	}
	if spec.To, err = time.Parse(dateLayout, strings.TrimSpace(to)); err != nil {
		return models.PeriodSpec{}, fmt.Errorf("%w: to: %w", ErrInvalidPeriod, err)
	}
	return spec, nil
}

func customRange(from, to time.Time) (models.DateRange, error) {
	if from.IsZero() || to.IsZero() {
		return models.DateRange{}, fmt.Errorf("%w: custom period needs both bounds", ErrInvalidPeriod)
	}
	r := models.DateRange{Start: models.TruncateDay(from), End: models.TruncateDay(to)}
	if r.Start.After(r.End) {
		return models.DateRange{}, fmt.Errorf("%w: start %s after end %s", ErrInvalidPeriod, r.Start.Format(dateLayout), r.End.Format(dateLayout))
	}
	return r, nil
}

func normalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, " ", "_")
	return n
}
