package campaign

import (
	"context"
	"time"

	"github.com/wonny/revops/internal/contracts"
	"github.com/wonny/revops/internal/fiscal"
	"github.com/wonny/revops/internal/metrics"
)

// WalkPoint is the campaign pipeline observed at the end of one
// interval
type WalkPoint struct {
	Date      time.Time `json:"date"`
	Open      float64   `json:"open"`
	ClosedWon float64   `json:"closed_won"`
}

// WalkResult is the interval series from campaign start to the
// latest snapshot date
type WalkResult struct {
	CampaignID   string      `json:"campaign_id"`
	IntervalDays int         `json:"interval_days"`
	Points       []WalkPoint `json:"points"`
}

// Walk replays the campaign pipeline week by week: at each interval
// end it sums year-1 value over customers who had entered the
// pipeline by then and were not excluded as of that date, split into
// an open series and a closed-won series. The walk ends at the
// dataset's latest snapshot date, so it never fabricates a week with
// no data behind it.
func (e *Engine) Walk(ctx context.Context, d *metrics.Dataset, campaignID string) (*WalkResult, error) {
	camp, err := e.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	ccs, err := e.customers.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	step := e.settings.Attribution.WalkIntervalDays
	start := fiscal.DateOnly(camp.StartDate)
	end := d.LatestDate
	if end.Before(start) {
		end = start
	}

	res := &WalkResult{CampaignID: camp.ID, IntervalDays: step}
	for tick := start; !tick.After(end); tick = tick.AddDate(0, 0, step) {
		res.Points = append(res.Points, e.walkPoint(d, ccs, start, tick))
	}
	if n := len(res.Points); n == 0 || !res.Points[n-1].Date.Equal(end) {
		res.Points = append(res.Points, e.walkPoint(d, ccs, start, end))
	}
	return res, nil
}

func (e *Engine) walkPoint(d *metrics.Dataset, ccs []*contracts.CampaignCustomer, campaignStart, tick time.Time) WalkPoint {
	point := WalkPoint{Date: tick}
	for _, cc := range ccs {
		snap := d.LatestAt(cc.OpportunityID, tick)
		if snap == nil || !snap.HasEnteredPipeline() {
			continue
		}
		if fiscal.DateOnly(*snap.EnteredPipeline).After(tick) {
			continue
		}
		if Classify(cc, snap, campaignStart) != StatusActive {
			continue
		}
		if snap.IsClosedWon() {
			point.ClosedWon += snap.Year1Value
		} else if !snap.IsClosed() {
			point.Open += snap.Year1Value
		}
	}
	return point
}
