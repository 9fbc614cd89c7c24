package contracts

import (
	"strings"
	"time"
)

// Well-known stage names from the CRM export.
// 그 외 스테이지는 자유 문자열로 취급
const (
	StageUnknown       = "Unknown"
	StageQualification = "Validation/Introduction"
	StageClosedWon     = "Closed Won"
	StageClosedLost    = "Closed Lost"
)

// Opportunity is one canonical sales opportunity.
// ⭐ SSOT: canonical id는 외부 id의 앞 15자, 생성 후 불변
type Opportunity struct {
	ID          string    `json:"id"`          // canonical id (first 15 chars of external id)
	ExternalID  string    `json:"external_id"` // 15 or 18 chars, upgraded 15→18, never downgraded
	Name        string    `json:"name"`
	Client      string    `json:"client"`
	Owner       string    `json:"owner"`
	CreatedDate time.Time `json:"created_date"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot is an immutable point-in-time capture of an opportunity.
// (opportunity, snapshot date)당 최대 1건, append-only
type Snapshot struct {
	ID              int64      `json:"id"`
	OpportunityID   string     `json:"opportunity_id"` // canonical id
	BatchID         string     `json:"batch_id"`
	SnapshotDate    time.Time  `json:"snapshot_date"`
	Stage           string     `json:"stage"`
	Confidence      float64    `json:"confidence"` // 0-100
	Amount          float64    `json:"amount"`
	Year1Value      float64    `json:"year1_value"`
	ContractValue   float64    `json:"contract_value"` // total contract value
	ExpectedClose   *time.Time `json:"expected_close,omitempty"`
	CloseDate       *time.Time `json:"close_date,omitempty"` // actual close
	EnteredPipeline *time.Time `json:"entered_pipeline,omitempty"`
	LossReason      string     `json:"loss_reason,omitempty"`
	CreatedDate     time.Time  `json:"created_date"`       // source record created
	LastModified    time.Time  `json:"last_modified_date"` // source record modified
}

// IsClosed reports whether the snapshot is in a terminal stage
func (s *Snapshot) IsClosed() bool {
	return s.Stage == StageClosedWon || s.Stage == StageClosedLost
}

// IsClosedWon reports whether the snapshot is Closed Won
func (s *Snapshot) IsClosedWon() bool {
	return s.Stage == StageClosedWon
}

// IsClosedLost reports whether the snapshot is Closed Lost
func (s *Snapshot) IsClosedLost() bool {
	return s.Stage == StageClosedLost
}

// HasEnteredPipeline reports whether the entered-pipeline date is set
func (s *Snapshot) HasEnteredPipeline() bool {
	return s.EnteredPipeline != nil && !s.EnteredPipeline.IsZero()
}

// Campaign is a marketing campaign
type Campaign struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	StartDate time.Time `json:"start_date"`
	Cost      float64   `json:"cost"`
	CreatedAt time.Time `json:"created_at"`
}

// CampaignCustomer associates an opportunity with a campaign.
// Baseline 필드는 연결 시점에 고정되며 이후 절대 변경되지 않음
type CampaignCustomer struct {
	ID            int64     `json:"id"`
	CampaignID    string    `json:"campaign_id"`
	OpportunityID string    `json:"opportunity_id"`
	AssociatedAt  time.Time `json:"associated_at"` // requested baseline date

	// Baseline snapshot fields (frozen at association time)
	BaselineStage         string     `json:"baseline_stage"`
	BaselineYear1Value    float64    `json:"baseline_year1_value"`
	BaselineContractValue float64    `json:"baseline_contract_value"`
	BaselineCloseDate     *time.Time `json:"baseline_close_date,omitempty"`
	BaselineHasPipeline   bool       `json:"baseline_has_pipeline"`
	BaselineSnapshotDate  time.Time  `json:"baseline_snapshot_date"`
	Stale                 bool       `json:"stale"` // baseline snapshot >7 days from requested date
}

// Movement is one stage transition derived from consecutive snapshots
type Movement struct {
	OpportunityID   string    `json:"opportunity_id"`
	OpportunityName string    `json:"opportunity_name"`
	From            string    `json:"from"`
	To              string    `json:"to"`
	Date            time.Time `json:"date"`
	Value           float64   `json:"value"` // amount on the arriving snapshot
}

// IsPipelineEntry reports whether this is the implicit first movement
func (m *Movement) IsPipelineEntry() bool {
	return m.From == StageUnknown
}

// IsClosedCorrection reports a movement between two terminal stages.
// Funnel 집계에서 제외, raw 목록에는 유지
func (m *Movement) IsClosedCorrection() bool {
	return (m.From == StageClosedWon || m.From == StageClosedLost) &&
		(m.To == StageClosedWon || m.To == StageClosedLost)
}

// Batch is one ingest batch of snapshot records sharing a snapshot date
type Batch struct {
	ID           string    `json:"id"` // uuid
	Source       string    `json:"source"`
	SnapshotDate time.Time `json:"snapshot_date"`
	Total        int       `json:"total"`
	Accepted     int       `json:"accepted"`
	Rejected     int       `json:"rejected"`
	CreatedAt    time.Time `json:"created_at"`
}

// Record outcome within a batch result
const (
	RecordCreated  = "created"
	RecordUpdated  = "updated"
	RecordRejected = "rejected"
)

// RecordResult reports one ingest record's outcome
type RecordResult struct {
	Row        int    `json:"row"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
}

// SnapshotFilter narrows a snapshot set. The zero value matches everything.
// ⭐ SSOT: 필터는 항상 이 구조체로 명시적으로 전달 (전역 필터 상태 금지)
type SnapshotFilter struct {
	Owner    string   `json:"owner,omitempty"`
	Client   string   `json:"client,omitempty"`
	Stages   []string `json:"stages,omitempty"`
	MinValue *float64 `json:"min_value,omitempty"`
	MaxValue *float64 `json:"max_value,omitempty"`
	Search   string   `json:"search,omitempty"`
}

// IsZero reports whether the filter matches everything
func (f SnapshotFilter) IsZero() bool {
	return f.Owner == "" && f.Client == "" && len(f.Stages) == 0 &&
		f.MinValue == nil && f.MaxValue == nil && f.Search == ""
}

// Matches reports whether an opportunity/snapshot pair passes the filter
func (f SnapshotFilter) Matches(opp *Opportunity, snap *Snapshot) bool {
	if f.Owner != "" && !strings.EqualFold(opp.Owner, f.Owner) {
		return false
	}
	if f.Client != "" && !strings.EqualFold(opp.Client, f.Client) {
		return false
	}
	if len(f.Stages) > 0 {
		found := false
		for _, s := range f.Stages {
			if snap.Stage == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.MinValue != nil && snap.Amount < *f.MinValue {
		return false
	}
	if f.MaxValue != nil && snap.Amount > *f.MaxValue {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(opp.Name), needle) &&
			!strings.Contains(strings.ToLower(opp.Client), needle) &&
			!strings.Contains(strings.ToLower(opp.Owner), needle) {
			return false
		}
	}
	return true
}
