package store

import (
	"github.com/wonny/revops/internal/contracts"
)

// Store bundles the five repositories behind the storage port.
// ⭐ SSOT: 코어는 이 번들(인터페이스)만 주입받음
type Store struct {
	Opportunities     contracts.OpportunityRepository
	Snapshots         contracts.SnapshotRepository
	Batches           contracts.BatchRepository
	Campaigns         contracts.CampaignRepository
	CampaignCustomers contracts.CampaignCustomerRepository
}
