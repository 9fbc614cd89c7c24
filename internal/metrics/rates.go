package metrics

import (
	"time"

	"github.com/wonny/revops/internal/contracts"
	"github.com/wonny/revops/internal/fiscal"
)

// DealOutcome is one record counted in a rate denominator
type DealOutcome struct {
	OpportunityID string    `json:"opportunity_id"`
	Name          string    `json:"name"`
	Stage         string    `json:"stage"`
	Amount        float64   `json:"amount"`
	PeriodDate    time.Time `json:"period_date"` // the date that placed the record in the range
	Won           bool      `json:"won"`
	Open          bool      `json:"open"`
}

// ExcludedDeal is a record dropped from a rate with the reason why
type ExcludedDeal struct {
	OpportunityID string `json:"opportunity_id"`
	Name          string `json:"name"`
	Reason        string `json:"reason"`
}

// RateResult carries a conversion rate together with every record
// behind it, so the numbers can be audited deal by deal.
type RateResult struct {
	Range       fiscal.Range   `json:"range"`
	Rate        float64        `json:"rate"` // exact fraction, 0 when the denominator is empty
	Numerator   int            `json:"numerator"`
	Denominator int            `json:"denominator"`
	Deals       []DealOutcome  `json:"deals"`
	Excluded    []ExcludedDeal `json:"excluded,omitempty"`
}

// WinRate computes won / all closed for records whose close falls in
// the range. Closed records without any attribution date are never
// silently dropped; they come back on the excluded list.
func (e *Engine) WinRate(d *Dataset, r fiscal.Range) *RateResult {
	res := &RateResult{Range: r}
	for _, entry := range d.CurrentSet(d.LatestDate, contracts.SnapshotFilter{}) {
		snap := entry.Snapshot
		if !snap.IsClosed() {
			continue
		}
		date, ok := closeAttributionDate(snap)
		if !ok {
			res.Excluded = append(res.Excluded, ExcludedDeal{
				OpportunityID: entry.Opportunity.ID,
				Name:          entry.Opportunity.Name,
				Reason:        "missing close, entered-pipeline and created date",
			})
			e.logger.WithFields(map[string]interface{}{
				"opportunity_id": entry.Opportunity.ID,
				"snapshot_date":  snap.SnapshotDate.Format(time.DateOnly),
			}).Warn("Closed record excluded from win rate: no attribution date")
			continue
		}
		if !r.Contains(date) {
			continue
		}
		res.Denominator++
		if snap.IsClosedWon() {
			res.Numerator++
		}
		res.Deals = append(res.Deals, DealOutcome{
			OpportunityID: entry.Opportunity.ID,
			Name:          entry.Opportunity.Name,
			Stage:         snap.Stage,
			Amount:        snap.Amount,
			PeriodDate:    date,
			Won:           snap.IsClosedWon(),
		})
	}
	if res.Denominator > 0 {
		res.Rate = float64(res.Numerator) / float64(res.Denominator)
	}
	return res
}

// CloseRate computes won / (all closed + still-open records attributed
// to the range). Open records enter the denominator by their
// entered-pipeline date, falling back to the created date.
func (e *Engine) CloseRate(d *Dataset, r fiscal.Range) *RateResult {
	res := e.WinRate(d, r)
	for _, entry := range d.CurrentSet(d.LatestDate, contracts.SnapshotFilter{}) {
		snap := entry.Snapshot
		if snap.IsClosed() {
			continue
		}
		date, ok := attributionDate(snap)
		if !ok {
			res.Excluded = append(res.Excluded, ExcludedDeal{
				OpportunityID: entry.Opportunity.ID,
				Name:          entry.Opportunity.Name,
				Reason:        "missing entered-pipeline and created date",
			})
			continue
		}
		if !r.Contains(date) {
			continue
		}
		res.Denominator++
		res.Deals = append(res.Deals, DealOutcome{
			OpportunityID: entry.Opportunity.ID,
			Name:          entry.Opportunity.Name,
			Stage:         snap.Stage,
			Amount:        snap.Amount,
			PeriodDate:    date,
			Open:          true,
		})
	}
	res.Rate = 0
	if res.Denominator > 0 {
		res.Rate = float64(res.Numerator) / float64(res.Denominator)
	}
	return res
}
