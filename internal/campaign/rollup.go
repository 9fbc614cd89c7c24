package campaign

import (
	"context"
	"sort"
	"time"

	"github.com/wonny/revops/internal/fiscal"
	"github.com/wonny/revops/internal/metrics"
)

// RollupRow is one deduplicated opportunity inside a type rollup
type RollupRow struct {
	OpportunityID   string    `json:"opportunity_id"`
	Name            string    `json:"name"`
	CampaignIDs     []string  `json:"campaign_ids"`
	AttributionDate time.Time `json:"attribution_date"`
	Value           float64   `json:"value"`
	Won             bool      `json:"won"`
}

// TypeRollup aggregates every campaign of one type inside a window,
// counting each opportunity once no matter how many campaigns
// touched it
type TypeRollup struct {
	Type           string       `json:"type"`
	Range          fiscal.Range `json:"range"`
	Campaigns      int          `json:"campaigns"`
	Considered     int          `json:"considered"`
	Qualified      int          `json:"qualified"`
	PipelineValue  float64      `json:"pipeline_value"`
	ClosedWonValue float64      `json:"closed_won_value"`
	TotalCost      float64      `json:"total_cost"`
	Rows           []RollupRow  `json:"rows"`
}

// Rollup deduplicates opportunities across same-type campaigns whose
// start dates fall in the window. An opportunity touched by several
// campaigns carries the value of its most recent qualifying snapshot
// and the earliest touching campaign's start date. Qualification
// requires an entered-pipeline date on the latest snapshot and a
// close date that is null or strictly after that earliest start.
func (e *Engine) Rollup(ctx context.Context, d *metrics.Dataset, campaignType string, r fiscal.Range) (*TypeRollup, error) {
	campaigns, err := e.campaigns.ListByType(ctx, campaignType)
	if err != nil {
		return nil, err
	}

	rollup := &TypeRollup{Type: campaignType, Range: r}

	type touch struct {
		earliestStart time.Time
		campaignIDs   []string
	}
	touched := make(map[string]*touch)

	for _, camp := range campaigns {
		if !r.Contains(camp.StartDate) {
			continue
		}
		rollup.Campaigns++
		rollup.TotalCost += camp.Cost

		ccs, err := e.customers.ListByCampaign(ctx, camp.ID)
		if err != nil {
			return nil, err
		}
		start := fiscal.DateOnly(camp.StartDate)
		for _, cc := range ccs {
			tc, ok := touched[cc.OpportunityID]
			if !ok {
				tc = &touch{earliestStart: start}
				touched[cc.OpportunityID] = tc
			}
			if start.Before(tc.earliestStart) {
				tc.earliestStart = start
			}
			tc.campaignIDs = append(tc.campaignIDs, camp.ID)
		}
	}

	rollup.Considered = len(touched)
	for oppID, tc := range touched {
		latest := d.LatestAt(oppID, d.LatestDate)
		if latest == nil || !latest.HasEnteredPipeline() {
			continue
		}
		if latest.CloseDate != nil && !fiscal.DateOnly(*latest.CloseDate).After(tc.earliestStart) {
			continue
		}

		row := RollupRow{
			OpportunityID:   oppID,
			CampaignIDs:     tc.campaignIDs,
			AttributionDate: tc.earliestStart,
			Value:           latest.Year1Value,
			Won:             latest.IsClosedWon(),
		}
		if opp, ok := d.Opportunities[oppID]; ok {
			row.Name = opp.Name
		}
		sort.Strings(row.CampaignIDs)

		rollup.Qualified++
		if row.Won {
			rollup.ClosedWonValue += row.Value
		} else if !latest.IsClosed() {
			rollup.PipelineValue += row.Value
		}
		rollup.Rows = append(rollup.Rows, row)
	}

	sort.Slice(rollup.Rows, func(i, j int) bool {
		if !rollup.Rows[i].AttributionDate.Equal(rollup.Rows[j].AttributionDate) {
			return rollup.Rows[i].AttributionDate.Before(rollup.Rows[j].AttributionDate)
		}
		return rollup.Rows[i].OpportunityID < rollup.Rows[j].OpportunityID
	})

	e.logger.WithFields(map[string]interface{}{
		"type":       campaignType,
		"campaigns":  rollup.Campaigns,
		"qualified":  rollup.Qualified,
		"considered": rollup.Considered,
	}).Debug("Campaign type rollup computed")
	return rollup, nil
}
