package campaign

import (
	"context"
	"time"

	"github.com/wonny/revops/internal/contracts"
	"github.com/wonny/revops/internal/fiscal"
	"github.com/wonny/revops/internal/metrics"
)

// CustomerStatus classifies one campaign customer. The three
// exclusion codes are mutually exclusive and evaluated in this order.
type CustomerStatus string

const (
	StatusPreexistingClosedWon      CustomerStatus = "PreexistingClosedWon"
	StatusNeverEnteredPipeline      CustomerStatus = "NeverEnteredPipeline"
	StatusClosedBeforeCampaignStart CustomerStatus = "ClosedBeforeCampaignStart"
	StatusActive                    CustomerStatus = "Active"
)

// Classify applies the exclusion rules to one customer.
//  1. 베이스라인이 이미 Closed Won이면 캠페인 효과가 아님
//  2. 현재 스냅샷에 entered-pipeline 날짜가 없으면 파이프라인 미진입
//  3. 캠페인 시작일 이전(당일 포함)에 닫혔으면 캠페인 효과가 아님
func Classify(cc *contracts.CampaignCustomer, current *contracts.Snapshot, campaignStart time.Time) CustomerStatus {
	if cc.BaselineStage == contracts.StageClosedWon {
		return StatusPreexistingClosedWon
	}
	if current == nil || !current.HasEnteredPipeline() {
		return StatusNeverEnteredPipeline
	}
	start := fiscal.DateOnly(campaignStart)
	if current.IsClosed() && current.CloseDate != nil && !fiscal.DateOnly(*current.CloseDate).After(start) {
		return StatusClosedBeforeCampaignStart
	}
	return StatusActive
}

// CustomerReport is one per-customer row of the campaign analytics
type CustomerReport struct {
	CustomerID    int64          `json:"customer_id"`
	OpportunityID string         `json:"opportunity_id"`
	Name          string         `json:"name"`
	Status        CustomerStatus `json:"status"`
	Stale         bool           `json:"stale"`
	BaselineStage string         `json:"baseline_stage"`
	BaselineValue float64        `json:"baseline_value"`
	CurrentStage  string         `json:"current_stage"`
	CurrentValue  float64        `json:"current_value"`
	ValueDelta    float64        `json:"value_delta"`
	Won           bool           `json:"won"`
	Counted       bool           `json:"counted"`
}

// CampaignSummary aggregates one campaign. Excluded customers remain
// visible in the per-customer rows but contribute nothing here.
type CampaignSummary struct {
	TotalCustomers  int     `json:"total_customers"`
	Active          int     `json:"active"`
	PreexistingWon  int     `json:"preexisting_closed_won"`
	NeverEntered    int     `json:"never_entered_pipeline"`
	ClosedBefore    int     `json:"closed_before_start"`
	StaleForcedLost int     `json:"stale_forced_lost"`
	Won             int     `json:"won"`
	WinRate         float64 `json:"win_rate"`
	PipelineValue   float64 `json:"pipeline_value"`
	ClosedWonValue  float64 `json:"closed_won_value"`
	Cost            float64 `json:"cost"`
	CAC             float64 `json:"cac"`
}

// CampaignReport is the full analytics result for one campaign
type CampaignReport struct {
	Campaign  *contracts.Campaign              `json:"campaign"`
	Summary   CampaignSummary                  `json:"summary"`
	Customers []CustomerReport                 `json:"customers"`
	Warnings  []contracts.StaleBaselineWarning `json:"warnings,omitempty"`
}

// Analytics classifies every customer of a campaign against the
// current dataset and aggregates win rate, pipeline value and cost
// per win. Stale-baseline customers stay in the counted set as forced
// losses instead of disappearing, and each one raises a warning on
// the report.
func (e *Engine) Analytics(ctx context.Context, d *metrics.Dataset, campaignID string) (*CampaignReport, error) {
	camp, err := e.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	ccs, err := e.customers.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	rep := &CampaignReport{Campaign: camp, Summary: CampaignSummary{Cost: camp.Cost}}
	for _, cc := range ccs {
		opp, ok := d.Opportunities[cc.OpportunityID]
		if !ok {
			return nil, &contracts.DataIntegrityError{OpportunityID: cc.OpportunityID, Detail: "campaign customer references unknown opportunity"}
		}
		current := d.LatestAt(cc.OpportunityID, d.LatestDate)
		status := Classify(cc, current, camp.StartDate)

		row := CustomerReport{
			CustomerID:    cc.ID,
			OpportunityID: cc.OpportunityID,
			Name:          opp.Name,
			Status:        status,
			Stale:         cc.Stale,
			BaselineStage: cc.BaselineStage,
			BaselineValue: cc.BaselineYear1Value,
		}
		if current != nil {
			row.CurrentStage = current.Stage
			row.CurrentValue = current.Year1Value
			row.ValueDelta = current.Year1Value - cc.BaselineYear1Value
		}

		rep.Summary.TotalCustomers++
		switch status {
		case StatusPreexistingClosedWon:
			rep.Summary.PreexistingWon++
		case StatusNeverEnteredPipeline:
			rep.Summary.NeverEntered++
		case StatusClosedBeforeCampaignStart:
			rep.Summary.ClosedBefore++
		case StatusActive:
			rep.Summary.Active++
			row.Counted = true
			if cc.Stale {
				rep.Summary.StaleForcedLost++
				rep.Warnings = append(rep.Warnings, contracts.StaleBaselineWarning{
					CampaignID:    camp.ID,
					OpportunityID: cc.OpportunityID,
					RequestedDate: cc.AssociatedAt,
					SnapshotDate:  cc.BaselineSnapshotDate,
					DistanceDays:  daysBetween(cc.BaselineSnapshotDate, cc.AssociatedAt),
				})
			} else if current.IsClosedWon() {
				row.Won = true
				rep.Summary.Won++
				rep.Summary.ClosedWonValue += current.Year1Value
			}
			if !cc.Stale && !current.IsClosed() {
				rep.Summary.PipelineValue += current.Year1Value
			}
		}
		rep.Customers = append(rep.Customers, row)
	}

	if rep.Summary.Active > 0 {
		rep.Summary.WinRate = float64(rep.Summary.Won) / float64(rep.Summary.Active)
	}
	if rep.Summary.Won > 0 {
		rep.Summary.CAC = camp.Cost / float64(rep.Summary.Won)
	}

	e.logger.WithFields(map[string]interface{}{
		"campaign_id": camp.ID,
		"customers":   rep.Summary.TotalCustomers,
		"active":      rep.Summary.Active,
		"won":         rep.Summary.Won,
	}).Debug("Campaign analytics computed")
	return rep, nil
}
