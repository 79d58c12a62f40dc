package scope

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/aquafarm/internal/domain/models"
)

type fakeUnits struct {
	units []models.Unit
	err   error
	calls int
}

func (f *fakeUnits) ListUnits(_ context.Context, orgID string, stage models.GrowthStage, unitID string) ([]models.Unit, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Unit
	for _, u := range f.units {
		if u.FarmID != orgID {
			continue
		}
		if stage != "" && u.GrowthStage != stage {
			continue
		}
		if unitID != "" && u.ID != unitID {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

type fakeBatches struct {
	members map[string][]string
	err     error
}

func (f *fakeBatches) ListUnitIDsForBatch(_ context.Context, batchID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.members[batchID], nil
}

func fixture() (*fakeUnits, *fakeBatches) {
	units := &fakeUnits{units: []models.Unit{
		{ID: "u1", FarmID: "org", GrowthStage: models.StageNursing},
		{ID: "u2", FarmID: "org", GrowthStage: models.StageGrowOut},
		{ID: "u3", FarmID: "org", GrowthStage: models.StageGrowOut},
		{ID: "x1", FarmID: "other", GrowthStage: models.StageGrowOut},
	}}
	batches := &fakeBatches{members: map[string][]string{
		"b1": {"u1", "u3", "x1"},
		"b2": {},
	}}
	return units, batches
}

func TestResolveWithoutOrgIsIndeterminate(t *testing.T) {
	units, batches := fixture()
	r := NewResolver(units, batches, nil)

	got, err := r.Resolve(context.Background(), "", "all", "all", "all")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, units.calls)
}

func TestResolveFilters(t *testing.T) {
	tests := []struct {
		name  string
		stage string
		unit  string
		batch string
		want  []string
	}{
		{name: "everything", stage: "all", unit: "all", batch: "all", want: []string{"u1", "u2", "u3"}},
		{name: "empty stage means all", stage: "", unit: "", batch: "", want: []string{"u1", "u2", "u3"}},
		{name: "grow out only", stage: "grow_out", unit: "all", batch: "all", want: []string{"u2", "u3"}},
		{name: "single unit", stage: "all", unit: "u2", batch: "all", want: []string{"u2"}},
		{name: "batch intersection", stage: "all", unit: "all", batch: "b1", want: []string{"u1", "u3"}},
		{name: "stage and batch", stage: "grow_out", unit: "all", batch: "b1", want: []string{"u3"}},
		{name: "batch with no units", stage: "all", unit: "all", batch: "b2", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units, batches := fixture()
			r := NewResolver(units, batches, nil)

			got, err := r.Resolve(context.Background(), "org", tt.stage, tt.unit, tt.batch)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.IDs())
		})
	}
}

func TestResolveBatchScopeIsSubsetOfUnbatched(t *testing.T) {
	for _, stage := range []string{"all", "nursing", "grow_out"} {
		for _, batch := range []string{"b1", "b2", "missing"} {
			units, batches := fixture()
			r := NewResolver(units, batches, nil)

			all, err := r.Resolve(context.Background(), "org", stage, "all", "all")
			require.NoError(t, err)
			narrowed, err := r.Resolve(context.Background(), "org", stage, "all", batch)
			require.NoError(t, err)

			for _, id := range narrowed.IDs() {
				assert.True(t, all.Contains(id), "stage=%s batch=%s unit=%s", stage, batch, id)
			}
		}
	}
}

func TestResolveLookupFailures(t *testing.T) {
	boom := errors.New("connection reset")

	t.Run("units", func(t *testing.T) {
		units, batches := fixture()
		units.err = boom
		_, err := NewResolver(units, batches, nil).Resolve(context.Background(), "org", "all", "all", "all")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrScopeLookup)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("batch", func(t *testing.T) {
		units, batches := fixture()
		batches.err = boom
		got, err := NewResolver(units, batches, nil).Resolve(context.Background(), "org", "all", "all", "b1")
		require.Error(t, err)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, ErrScopeLookup)
	})
}

func TestIntersect(t *testing.T) {
	assert.Equal(t, []string{"b"}, Intersect(New("a", "b"), New("b", "c")).IDs())
	assert.True(t, Intersect(New("a"), nil).IsEmpty())
	assert.True(t, New("", "").IsEmpty())
}
