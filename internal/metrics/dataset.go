package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/revops/internal/contracts"
	"github.com/wonny/revops/internal/fiscal"
)

// Dataset is the immutable, request-scoped view of all snapshot data.
// Read once at the start of a request; every aggregate is a pure
// function over it, so concurrent ingestion is never visible
// mid-computation.
// ⭐ SSOT: 요청당 한 번만 로드, 이후 순수 함수로만 계산
type Dataset struct {
	Opportunities map[string]*contracts.Opportunity
	History       map[string][]*contracts.Snapshot // asc by snapshot date
	LatestDate    time.Time                        // dataset anchor; zero when empty
}

// Load reads the full opportunity and snapshot state through the
// storage port. A snapshot referencing an unknown opportunity aborts
// the whole request; a partially-wrong aggregate is never returned.
func Load(ctx context.Context, opps contracts.OpportunityRepository, snaps contracts.SnapshotRepository) (*Dataset, error) {
	oppList, err := opps.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load opportunities: %w", err)
	}

	snapList, err := snaps.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}

	d := &Dataset{
		Opportunities: make(map[string]*contracts.Opportunity, len(oppList)),
		History:       make(map[string][]*contracts.Snapshot),
	}
	for _, opp := range oppList {
		d.Opportunities[opp.ID] = opp
	}

	for _, s := range snapList {
		if _, ok := d.Opportunities[s.OpportunityID]; !ok {
			return nil, &contracts.DataIntegrityError{
				OpportunityID: s.OpportunityID,
				Detail:        "snapshot references unknown opportunity",
			}
		}
		d.History[s.OpportunityID] = append(d.History[s.OpportunityID], s)
		if s.SnapshotDate.After(d.LatestDate) {
			d.LatestDate = s.SnapshotDate
		}
	}

	return d, nil
}

// Anchor resolves the as-of date for a request. Omitted dates anchor
// to the dataset's own latest snapshot date, never the wall clock, so
// results are reproducible against a frozen dataset.
func (d *Dataset) Anchor(asOf *time.Time) time.Time {
	if asOf == nil {
		return d.LatestDate
	}
	return fiscal.DateOnly(*asOf)
}

// LatestAt returns the snapshot with the greatest date ≤ asOf for one
// opportunity, or nil when none exists yet
func (d *Dataset) LatestAt(opportunityID string, asOf time.Time) *contracts.Snapshot {
	snaps := d.History[opportunityID]
	// 첫 번째로 asOf를 넘는 위치의 직전이 답
	i := sort.Search(len(snaps), func(i int) bool {
		return snaps[i].SnapshotDate.After(asOf)
	})
	if i == 0 {
		return nil
	}
	return snaps[i-1]
}

// Entry pairs an opportunity with its selected snapshot
type Entry struct {
	Opportunity *contracts.Opportunity
	Snapshot    *contracts.Snapshot
}

// CurrentSet selects, for every opportunity, the single snapshot with
// the greatest date ≤ asOf, then applies the filter. This
// latest-per-opportunity projection underlies every other aggregate.
// Ordered by opportunity id for deterministic output.
func (d *Dataset) CurrentSet(asOf time.Time, filter contracts.SnapshotFilter) []Entry {
	var out []Entry
	for _, id := range d.sortedIDs() {
		snap := d.LatestAt(id, asOf)
		if snap == nil {
			continue
		}
		opp := d.Opportunities[id]
		if !filter.Matches(opp, snap) {
			continue
		}
		out = append(out, Entry{Opportunity: opp, Snapshot: snap})
	}
	return out
}

func (d *Dataset) sortedIDs() []string {
	ids := make([]string, 0, len(d.Opportunities))
	for id := range d.Opportunities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// attributionDate is the single policy deciding which date an open
// record is attributed to in rate calculations: the entered-pipeline
// date, falling back to the created date. Used only inside rate
// calculations, never for persistence or display of raw data.
func attributionDate(s *contracts.Snapshot) (time.Time, bool) {
	if s.HasEnteredPipeline() {
		return fiscal.DateOnly(*s.EnteredPipeline), true
	}
	if !s.CreatedDate.IsZero() {
		return fiscal.DateOnly(s.CreatedDate), true
	}
	return time.Time{}, false
}

// closeAttributionDate is the period-membership date for a closed
// record: the actual close date, falling back to attributionDate
func closeAttributionDate(s *contracts.Snapshot) (time.Time, bool) {
	if s.CloseDate != nil && !s.CloseDate.IsZero() {
		return fiscal.DateOnly(*s.CloseDate), true
	}
	return attributionDate(s)
}
