package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/revops/internal/contracts"
	"github.com/wonny/revops/pkg/logger"
)

// External ids arrive in a 15-char or 18-char form. The first 15
// characters are the stable merge key across the two formats.
const (
	canonicalLen = 15
	fullLen      = 18
)

// farFuture anchors "latest overall" lookups
var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Canonical returns the canonical id for an external id.
// ⭐ SSOT: canonical id 계산은 이 함수만
func Canonical(externalID string) string {
	if len(externalID) < canonicalLen {
		return externalID
	}
	return externalID[:canonicalLen]
}

// ValidateExternalID rejects ids that are neither 15 nor 18 chars
func ValidateExternalID(externalID string) error {
	if len(externalID) != canonicalLen && len(externalID) != fullLen {
		return fmt.Errorf("external id %q must be %d or %d characters, got %d",
			externalID, canonicalLen, fullLen, len(externalID))
	}
	return nil
}

// Record carries the identity fields of one ingest record
type Record struct {
	ExternalID  string
	Name        string
	Client      string
	Owner       string
	CreatedDate time.Time
}

// Resolver reconciles external ids into canonical opportunities
type Resolver struct {
	opportunities contracts.OpportunityRepository
	snapshots     contracts.SnapshotRepository
	logger        *logger.Logger
}

// NewResolver creates a Resolver
func NewResolver(opps contracts.OpportunityRepository, snaps contracts.SnapshotRepository, log *logger.Logger) *Resolver {
	return &Resolver{
		opportunities: opps,
		snapshots:     snaps,
		logger:        log,
	}
}

// Resolve finds or creates the opportunity for an ingest record.
// A stored 15-char external id is upgraded in place when an 18-char id
// with the same prefix arrives; the canonical id never changes and an
// 18-char id is never downgraded. Returns created=true on first sight.
func (r *Resolver) Resolve(ctx context.Context, rec Record) (*contracts.Opportunity, bool, error) {
	if err := ValidateExternalID(rec.ExternalID); err != nil {
		return nil, false, err
	}

	canonical := Canonical(rec.ExternalID)

	existing, err := r.opportunities.GetByCanonicalID(ctx, canonical)
	if err != nil && !errors.Is(err, contracts.ErrNotFound) {
		return nil, false, fmt.Errorf("lookup opportunity %s: %w", canonical, err)
	}

	if existing != nil {
		if len(existing.ExternalID) == canonicalLen && len(rec.ExternalID) == fullLen {
			existing.ExternalID = rec.ExternalID
			existing.UpdatedAt = time.Now().UTC()
			if err := r.opportunities.Save(ctx, existing); err != nil {
				return nil, false, fmt.Errorf("upgrade external id for %s: %w", canonical, err)
			}
			r.logger.WithFields(map[string]interface{}{
				"opportunity": canonical,
				"external_id": rec.ExternalID,
			}).Debug("External id upgraded to 18-char form")
		}
		return existing, false, nil
	}

	opp := &contracts.Opportunity{
		ID:          canonical,
		ExternalID:  rec.ExternalID,
		Name:        rec.Name,
		Client:      rec.Client,
		Owner:       rec.Owner,
		CreatedDate: rec.CreatedDate,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := r.opportunities.Save(ctx, opp); err != nil {
		return nil, false, fmt.Errorf("create opportunity %s: %w", canonical, err)
	}

	return opp, true, nil
}

// ResolveByName matches an opportunity by display name. Used only for
// bulk customer imports that lack an id. When more than one active
// opportunity shares the name the match fails instead of guessing;
// "active" means the latest snapshot is not in a terminal stage.
func (r *Resolver) ResolveByName(ctx context.Context, name string) (*contracts.Opportunity, error) {
	candidates, err := r.opportunities.ListByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("lookup opportunities named %q: %w", name, err)
	}

	switch len(candidates) {
	case 0:
		return nil, contracts.ErrNotFound
	case 1:
		return candidates[0], nil
	}

	var active []*contracts.Opportunity
	for _, opp := range candidates {
		latest, err := r.snapshots.LatestByOpportunity(ctx, opp.ID, farFuture)
		if err != nil {
			if errors.Is(err, contracts.ErrNotFound) {
				// 스냅샷이 없으면 아직 종결될 수 없음
				active = append(active, opp)
				continue
			}
			return nil, fmt.Errorf("load latest snapshot for %s: %w", opp.ID, err)
		}
		if !latest.IsClosed() {
			active = append(active, opp)
		}
	}

	if len(active) == 1 {
		return active[0], nil
	}
	if len(active) == 0 {
		return nil, &contracts.AmbiguousMatchError{Name: name, Count: len(candidates)}
	}
	return nil, &contracts.AmbiguousMatchError{Name: name, Count: len(active)}
}
