package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/aquafarm/internal/analytics/forecast"
	"github.com/mamadbah2/aquafarm/internal/domain/models"
)

const (
	dateLayout = "2006-01-02"
	// ThresholdsRange holds one threshold per row: parameter, limit, direction.
	ThresholdsRange = "Thresholds!A:C"
	// KPIExportRange receives one row per KPI of an exported overview.
	KPIExportRange = "KPIs!A:I"
)

// Workbook reads alert thresholds from and exports overviews to a spreadsheet.
type Workbook struct {
	repo   Repository
	logger *zap.Logger
}

// NewWorkbook wraps a sheet repository.
func NewWorkbook(repo Repository, logger *zap.Logger) *Workbook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workbook{repo: repo, logger: logger}
}

// LoadThresholds parses the thresholds sheet. Header and malformed rows are skipped.
func (w *Workbook) LoadThresholds(ctx context.Context) ([]forecast.Threshold, error) {
	rows, err := w.repo.ReadRange(ctx, ThresholdsRange)
	if err != nil {
		return nil, fmt.Errorf("load thresholds range: %w", err)
	}

	var out []forecast.Threshold
	for i, row := range rows {
		if len(row) < 3 {
			continue
		}
		limit, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(row[1])), 64)
		if err != nil {
			if i > 0 {
				w.logger.Debug("skip threshold row with invalid limit", zap.Int("row", i+1), zap.Any("value", row[1]))
			}
			continue
		}
		th := forecast.Threshold{
			Parameter: strings.ToLower(strings.TrimSpace(fmt.Sprint(row[0]))),
			Limit:     limit,
			Direction: forecast.Direction(strings.ToLower(strings.TrimSpace(fmt.Sprint(row[2])))),
		}
		if err := th.Validate(); err != nil {
			w.logger.Debug("skip invalid threshold row", zap.Int("row", i+1), zap.Error(err))
			continue
		}
		out = append(out, th)
	}
	return out, nil
}

// ExportOverview appends one row per KPI of the overview in a single write.
func (w *Workbook) ExportOverview(ctx context.Context, ov models.Overview) error {
	generated := ov.GeneratedAt
	if generated.IsZero() {
		generated = time.Now().UTC()
	}
	rows := make([][]interface{}, 0, len(ov.KPIs))
	for _, k := range ov.KPIs {
		rows = append(rows, []interface{}{
			generated.Format(time.RFC3339),
			ov.Filter.OrgID,
			ov.DateBounds.Start.Format(dateLayout),
			ov.DateBounds.End.Format(dateLayout),
			k.Key,
			cell(k.Value),
			k.Unit,
			cell(k.Trend),
			k.Badge,
		})
	}
	if err := w.repo.AppendRows(ctx, KPIExportRange, rows); err != nil {
		return fmt.Errorf("export overview for %s: %w", ov.Filter.OrgID, err)
	}
	return nil
}

func cell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
