package metrics

import (
	"time"

	"github.com/wonny/revops/internal/contracts"
	"github.com/wonny/revops/internal/fiscal"
	"github.com/wonny/revops/internal/movement"
)

// NewDealStats counts pipeline entries observed inside the range
type NewDealStats struct {
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

// Report is the combined metrics run: one snapshot-set summary plus
// the period-scoped rates, losses and entries, all from a single
// loaded dataset so every number refers to the same data.
type Report struct {
	AsOf        time.Time        `json:"as_of"`
	Range       fiscal.Range     `json:"range"`
	Summary     *PipelineSummary `json:"summary"`
	Stages      []StageCount     `json:"stages"`
	WinRate     *RateResult      `json:"win_rate"`
	CloseRate   *RateResult      `json:"close_rate"`
	LossReasons []ReasonCount    `json:"loss_reasons"`
	NewDeals    NewDealStats     `json:"new_deals"`
}

// BuildReport runs the full metrics computation for one period.
// The filter narrows the summary and stage distribution only; rates
// always run over the whole dataset so their denominators stay exact.
func (e *Engine) BuildReport(d *Dataset, r fiscal.Range, asOf *time.Time, filter contracts.SnapshotFilter) *Report {
	rep := &Report{
		AsOf:        d.Anchor(asOf),
		Range:       r,
		Summary:     e.Summary(d, asOf, filter),
		Stages:      e.StageDistribution(d, asOf, filter),
		WinRate:     e.WinRate(d, r),
		CloseRate:   e.CloseRate(d, r),
		LossReasons: e.LossReasonBreakdown(d, r),
	}

	entries := movement.Entries(movement.InRange(movement.Detect(d.Opportunities, d.History), r))
	for _, m := range entries {
		rep.NewDeals.Count++
		rep.NewDeals.Value += m.Value
	}

	e.logger.WithFields(map[string]interface{}{
		"as_of":       rep.AsOf.Format(time.DateOnly),
		"range_start": r.Start.Format(time.DateOnly),
		"range_end":   r.End.Format(time.DateOnly),
		"active":      rep.Summary.ActiveCount,
		"win_rate":    rep.WinRate.Rate,
	}).Debug("Metrics report computed")
	return rep
}
