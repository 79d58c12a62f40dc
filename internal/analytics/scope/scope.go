package scope

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mamadbah2/aquafarm/internal/domain/models"
)

// ErrScopeLookup indicates one of the membership lookups failed. It is distinct from a
// scope that was computed and matched no units.
var ErrScopeLookup = errors.New("scope lookup failed")

// UnitLister lists the units of an organization, optionally narrowed by stage and unit id.
// Empty stage or unitID means no restriction.
type UnitLister interface {
	ListUnits(ctx context.Context, orgID string, stage models.GrowthStage, unitID string) ([]models.Unit, error)
}

// BatchMembershipLister returns the unit ids associated with a batch.
type BatchMembershipLister interface {
	ListUnitIDsForBatch(ctx context.Context, batchID string) ([]string, error)
}

// Scope is the resolved set of unit ids a computation is restricted to.
type Scope struct {
	ids map[string]struct{}
}

// New builds a scope from unit ids.
func New(ids ...string) *Scope {
	s := &Scope{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id == "" {
			continue
		}
		s.ids[id] = struct{}{}
	}
	return s
}

// Contains reports whether the unit id is in scope.
func (s *Scope) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of units in scope.
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IsEmpty reports whether no unit matched.
func (s *Scope) IsEmpty() bool {
	return s.Len() == 0
}

// IDs returns the unit ids in ascending order.
func (s *Scope) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Intersect returns the units present in both scopes.
func Intersect(a, b *Scope) *Scope {
	out := New()
	if a == nil || b == nil {
		return out
	}
	small, large := a, b
	if large.Len() < small.Len() {
		small, large = large, small
	}
	for id := range small.ids {
		if large.Contains(id) {
			out.ids[id] = struct{}{}
		}
	}
	return out
}

// Resolver resolves filters into a scope using two independent lookups.
type Resolver struct {
	units   UnitLister
	batches BatchMembershipLister
	logger  *zap.Logger
}

// NewResolver wires a resolver.
func NewResolver(units UnitLister, batches BatchMembershipLister, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{units: units, batches: batches, logger: logger}
}

// Resolve returns the units in scope for the filter values. A nil scope with a nil error means
// the organization is unknown and nothing can be computed.
func (r *Resolver) Resolve(ctx context.Context, orgID, stage, unitID, batchID string) (*Scope, error) {
	if orgID == "" {
		return nil, nil
	}

	var stageFilter models.GrowthStage
	if !models.IsAll(stage) {
		stageFilter = models.GrowthStage(stage)
	}
	var unitFilter string
	if !models.IsAll(unitID) {
		unitFilter = unitID
	}

	units, err := r.units.ListUnits(ctx, orgID, stageFilter, unitFilter)
	if err != nil {
		return nil, fmt.Errorf("%w: list units for org %s: %w", ErrScopeLookup, orgID, err)
	}

	resolved := New()
	for _, u := range units {
		resolved.ids[u.ID] = struct{}{}
	}

	if !models.IsAll(batchID) {
		if r.batches == nil {
			return nil, fmt.Errorf("%w: batch lookup not configured", ErrScopeLookup)
		}
		ids, err := r.batches.ListUnitIDsForBatch(ctx, batchID)
		if err != nil {
			return nil, fmt.Errorf("%w: list units for batch %s: %w", ErrScopeLookup, batchID, err)
		}
		resolved = Intersect(resolved, New(ids...))
	}

	r.logger.Debug("scope resolved",
		zap.String("org_id", orgID),
		zap.String("stage", stage),
		zap.String("unit_id", unitID),
		zap.String("batch_id", batchID),
		zap.Int("units", resolved.Len()))

	return resolved, nil
}
