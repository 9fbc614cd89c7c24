package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만
// 코어는 이 포트에만 의존하고 구현체는 internal/store 하나뿐

// OpportunityRepository manages canonical opportunities
type OpportunityRepository interface {
	GetByCanonicalID(ctx context.Context, id string) (*Opportunity, error)
	ListByName(ctx context.Context, name string) ([]*Opportunity, error)
	List(ctx context.Context) ([]*Opportunity, error)
	Save(ctx context.Context, opp *Opportunity) error
	DeleteAll(ctx context.Context) error
}

// SnapshotRepository manages the append-only snapshot history.
// List 계열은 항상 snapshot date 오름차순으로 반환
type SnapshotRepository interface {
	ListByOpportunity(ctx context.Context, opportunityID string) ([]*Snapshot, error)
	ListAll(ctx context.Context) ([]*Snapshot, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*Snapshot, error)
	LatestByOpportunity(ctx context.Context, opportunityID string, asOf time.Time) (*Snapshot, error)
	LatestDate(ctx context.Context) (time.Time, error)
	Exists(ctx context.Context, opportunityID string, date time.Time) (bool, error)
	Save(ctx context.Context, snap *Snapshot) error
	SaveBatch(ctx context.Context, snaps []*Snapshot) error
	DeleteByBatch(ctx context.Context, batchID string) error
	DeleteAll(ctx context.Context) error
}

// BatchRepository manages ingest batch records
type BatchRepository interface {
	GetByID(ctx context.Context, id string) (*Batch, error)
	List(ctx context.Context) ([]*Batch, error)
	Save(ctx context.Context, batch *Batch) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// CampaignRepository manages campaigns
type CampaignRepository interface {
	GetByID(ctx context.Context, id string) (*Campaign, error)
	List(ctx context.Context) ([]*Campaign, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*Campaign, error)
	ListByType(ctx context.Context, campaignType string) ([]*Campaign, error)
	Save(ctx context.Context, campaign *Campaign) error
}

// CampaignCustomerRepository manages campaign associations
type CampaignCustomerRepository interface {
	ListByCampaign(ctx context.Context, campaignID string) ([]*CampaignCustomer, error)
	Save(ctx context.Context, customer *CampaignCustomer) error
	Delete(ctx context.Context, id int64) error
}
