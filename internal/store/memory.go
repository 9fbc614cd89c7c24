package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wonny/revops/internal/contracts"
)

// memory holds the shared in-memory state for tests and local development.
// 모든 맵 접근은 mutex로 보호
type memory struct {
	mu sync.RWMutex

	opportunities map[string]*contracts.Opportunity
	snapshots     map[string][]*contracts.Snapshot // by opportunity id, asc by date
	batches       map[string]*contracts.Batch
	campaigns     map[string]*contracts.Campaign
	customers     map[int64]*contracts.CampaignCustomer

	nextSnapshotID int64
	nextCustomerID int64
}

// NewMemory creates an empty in-memory store
func NewMemory() *Store {
	m := &memory{
		opportunities: make(map[string]*contracts.Opportunity),
		snapshots:     make(map[string][]*contracts.Snapshot),
		batches:       make(map[string]*contracts.Batch),
		campaigns:     make(map[string]*contracts.Campaign),
		customers:     make(map[int64]*contracts.CampaignCustomer),
	}
	return &Store{
		Opportunities:     &memoryOpportunities{m},
		Snapshots:         &memorySnapshots{m},
		Batches:           &memoryBatches{m},
		Campaigns:         &memoryCampaigns{m},
		CampaignCustomers: &memoryCustomers{m},
	}
}

// --- OpportunityRepository ---

type memoryOpportunities struct{ m *memory }

func (r *memoryOpportunities) GetByCanonicalID(ctx context.Context, id string) (*contracts.Opportunity, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	opp, ok := r.m.opportunities[id]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	return opp, nil
}

func (r *memoryOpportunities) ListByName(ctx context.Context, name string) ([]*contracts.Opportunity, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*contracts.Opportunity
	for _, opp := range r.m.opportunities {
		if strings.EqualFold(opp.Name, name) {
			out = append(out, opp)
		}
	}
	sortOpportunities(out)
	return out, nil
}

func (r *memoryOpportunities) List(ctx context.Context) ([]*contracts.Opportunity, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := make([]*contracts.Opportunity, 0, len(r.m.opportunities))
	for _, opp := range r.m.opportunities {
		out = append(out, opp)
	}
	sortOpportunities(out)
	return out, nil
}

func (r *memoryOpportunities) Save(ctx context.Context, opp *contracts.Opportunity) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *opp
	r.m.opportunities[opp.ID] = &cp
	return nil
}

func (r *memoryOpportunities) DeleteAll(ctx context.Context) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.opportunities = make(map[string]*contracts.Opportunity)
	return nil
}

// --- SnapshotRepository ---

type memorySnapshots struct{ m *memory }

func (r *memorySnapshots) ListByOpportunity(ctx context.Context, opportunityID string) ([]*contracts.Snapshot, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return append([]*contracts.Snapshot(nil), r.m.snapshots[opportunityID]...), nil
}

func (r *memorySnapshots) ListAll(ctx context.Context) ([]*contracts.Snapshot, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*contracts.Snapshot
	for _, snaps := range r.m.snapshots {
		out = append(out, snaps...)
	}
	sortSnapshots(out)
	return out, nil
}

func (r *memorySnapshots) ListByDateRange(ctx context.Context, from, to time.Time) ([]*contracts.Snapshot, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*contracts.Snapshot
	for _, snaps := range r.m.snapshots {
		for _, s := range snaps {
			if !s.SnapshotDate.Before(from) && s.SnapshotDate.Before(to) {
				out = append(out, s)
			}
		}
	}
	sortSnapshots(out)
	return out, nil
}

func (r *memorySnapshots) LatestByOpportunity(ctx context.Context, opportunityID string, asOf time.Time) (*contracts.Snapshot, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var latest *contracts.Snapshot
	for _, s := range r.m.snapshots[opportunityID] {
		if s.SnapshotDate.After(asOf) {
			break
		}
		latest = s
	}
	if latest == nil {
		return nil, contracts.ErrNotFound
	}
	return latest, nil
}

func (r *memorySnapshots) LatestDate(ctx context.Context) (time.Time, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var latest time.Time
	for _, snaps := range r.m.snapshots {
		if n := len(snaps); n > 0 && snaps[n-1].SnapshotDate.After(latest) {
			latest = snaps[n-1].SnapshotDate
		}
	}
	if latest.IsZero() {
		return time.Time{}, contracts.ErrNotFound
	}
	return latest, nil
}

func (r *memorySnapshots) Exists(ctx context.Context, opportunityID string, date time.Time) (bool, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, s := range r.m.snapshots[opportunityID] {
		if s.SnapshotDate.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memorySnapshots) Save(ctx context.Context, snap *contracts.Snapshot) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.saveSnapshotLocked(snap)
}

func (r *memorySnapshots) SaveBatch(ctx context.Context, snaps []*contracts.Snapshot) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range snaps {
		if err := r.m.saveSnapshotLocked(s); err != nil {
			return err
		}
	}
	return nil
}

func (r *memorySnapshots) DeleteByBatch(ctx context.Context, batchID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for oppID, snaps := range r.m.snapshots {
		kept := snaps[:0]
		for _, s := range snaps {
			if s.BatchID != batchID {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(r.m.snapshots, oppID)
		} else {
			r.m.snapshots[oppID] = kept
		}
	}
	return nil
}

func (r *memorySnapshots) DeleteAll(ctx context.Context) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.snapshots = make(map[string][]*contracts.Snapshot)
	return nil
}

func (m *memory) saveSnapshotLocked(snap *contracts.Snapshot) error {
	for _, s := range m.snapshots[snap.OpportunityID] {
		if s.SnapshotDate.Equal(snap.SnapshotDate) {
			return fmt.Errorf("snapshot exists for %s on %s",
				snap.OpportunityID, snap.SnapshotDate.Format("2006-01-02"))
		}
	}
	m.nextSnapshotID++
	cp := *snap
	cp.ID = m.nextSnapshotID
	snap.ID = cp.ID
	snaps := append(m.snapshots[snap.OpportunityID], &cp)
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].SnapshotDate.Before(snaps[j].SnapshotDate)
	})
	m.snapshots[snap.OpportunityID] = snaps
	return nil
}

// --- BatchRepository ---

type memoryBatches struct{ m *memory }

func (r *memoryBatches) GetByID(ctx context.Context, id string) (*contracts.Batch, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	b, ok := r.m.batches[id]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	return b, nil
}

func (r *memoryBatches) List(ctx context.Context) ([]*contracts.Batch, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := make([]*contracts.Batch, 0, len(r.m.batches))
	for _, b := range r.m.batches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SnapshotDate.Equal(out[j].SnapshotDate) {
			return out[i].SnapshotDate.Before(out[j].SnapshotDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memoryBatches) Save(ctx context.Context, batch *contracts.Batch) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *batch
	r.m.batches[batch.ID] = &cp
	return nil
}

func (r *memoryBatches) Delete(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.batches[id]; !ok {
		return contracts.ErrNotFound
	}
	delete(r.m.batches, id)
	return nil
}

func (r *memoryBatches) DeleteAll(ctx context.Context) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.batches = make(map[string]*contracts.Batch)
	return nil
}

// --- CampaignRepository ---

type memoryCampaigns struct{ m *memory }

func (r *memoryCampaigns) GetByID(ctx context.Context, id string) (*contracts.Campaign, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	c, ok := r.m.campaigns[id]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	return c, nil
}

func (r *memoryCampaigns) List(ctx context.Context) ([]*contracts.Campaign, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := make([]*contracts.Campaign, 0, len(r.m.campaigns))
	for _, c := range r.m.campaigns {
		out = append(out, c)
	}
	sortCampaigns(out)
	return out, nil
}

func (r *memoryCampaigns) ListByDateRange(ctx context.Context, from, to time.Time) ([]*contracts.Campaign, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*contracts.Campaign
	for _, c := range r.m.campaigns {
		if !c.StartDate.Before(from) && c.StartDate.Before(to) {
			out = append(out, c)
		}
	}
	sortCampaigns(out)
	return out, nil
}

func (r *memoryCampaigns) ListByType(ctx context.Context, campaignType string) ([]*contracts.Campaign, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*contracts.Campaign
	for _, c := range r.m.campaigns {
		if strings.EqualFold(c.Type, campaignType) {
			out = append(out, c)
		}
	}
	sortCampaigns(out)
	return out, nil
}

func (r *memoryCampaigns) Save(ctx context.Context, campaign *contracts.Campaign) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *campaign
	r.m.campaigns[campaign.ID] = &cp
	return nil
}

// --- CampaignCustomerRepository ---

type memoryCustomers struct{ m *memory }

func (r *memoryCustomers) ListByCampaign(ctx context.Context, campaignID string) ([]*contracts.CampaignCustomer, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*contracts.CampaignCustomer
	for _, cc := range r.m.customers {
		if cc.CampaignID == campaignID {
			out = append(out, cc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryCustomers) Save(ctx context.Context, customer *contracts.CampaignCustomer) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if customer.ID == 0 {
		r.m.nextCustomerID++
		customer.ID = r.m.nextCustomerID
	}
	cp := *customer
	r.m.customers[customer.ID] = &cp
	return nil
}

func (r *memoryCustomers) Delete(ctx context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.customers[id]; !ok {
		return contracts.ErrNotFound
	}
	delete(r.m.customers, id)
	return nil
}

// --- ordering helpers ---

func sortOpportunities(opps []*contracts.Opportunity) {
	sort.Slice(opps, func(i, j int) bool { return opps[i].ID < opps[j].ID })
}

// 날짜 오름차순, 동일 날짜는 opportunity id로 결정적 정렬
func sortSnapshots(snaps []*contracts.Snapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].SnapshotDate.Equal(snaps[j].SnapshotDate) {
			return snaps[i].SnapshotDate.Before(snaps[j].SnapshotDate)
		}
		return snaps[i].OpportunityID < snaps[j].OpportunityID
	})
}

func sortCampaigns(campaigns []*contracts.Campaign) {
	sort.Slice(campaigns, func(i, j int) bool {
		if !campaigns[i].StartDate.Equal(campaigns[j].StartDate) {
			return campaigns[i].StartDate.Before(campaigns[j].StartDate)
		}
		return campaigns[i].ID < campaigns[j].ID
	})
}
