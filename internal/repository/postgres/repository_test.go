package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/aquafarm/internal/analytics/period"
	"github.com/mamadbah2/aquafarm/internal/domain/models"
)

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

type fakeQuerier struct {
	row      scanFunc
	queryErr error
	lastSQL  string
	lastArgs []any
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.lastSQL, f.lastArgs = sql, args
	return nil, f.queryErr
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL, f.lastArgs = sql, args
	return f.row
}

func TestPeriodBounds(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	q := &fakeQuerier{row: func(dest ...any) error {
		*dest[0].(*time.Time) = start
		*dest[1].(*time.Time) = end
		return nil
	}}

	got, err := NewRepository(q, nil).PeriodBounds(context.Background(), "farm-1", "month")
	require.NoError(t, err)
	assert.Equal(t, models.DateRange{Start: start, End: end}, got)
	assert.Equal(t, []any{"farm-1", "month"}, q.lastArgs)
}

func TestPeriodBoundsNotFound(t *testing.T) {
	tests := map[string]error{
		"no row":       pgx.ErrNoRows,
		"missing view": &pgconn.PgError{Code: "42P01"},
	}
	for name, scanErr := range tests {
		t.Run(name, func(t *testing.T) {
			q := &fakeQuerier{row: func(...any) error { return scanErr }}
			_, err := NewRepository(q, nil).PeriodBounds(context.Background(), "farm-1", "week")
			assert.ErrorIs(t, err, period.ErrBoundsNotFound)
		})
	}

	boom := errors.New("connection refused")
	q := &fakeQuerier{row: func(...any) error { return boom }}
	_, err := NewRepository(q, nil).PeriodBounds(context.Background(), "farm-1", "week")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, period.ErrBoundsNotFound)
}

func TestListUnitsBindsOptionalFilters(t *testing.T) {
	boom := errors.New("timeout")
	q := &fakeQuerier{queryErr: boom}
	repo := NewRepository(q, nil)

	_, err := repo.ListUnits(context.Background(), "farm-1", models.StageGrowOut, "")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []any{"farm-1", "grow_out"}, q.lastArgs)
	assert.Contains(t, q.lastSQL, "growth_stage = $2")
	assert.NotContains(t, q.lastSQL, "id = $3")
}
