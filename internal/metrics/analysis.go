package metrics

import (
	"sort"
	"strings"
	"time"

	"github.com/wonny/revops/internal/contracts"
	"github.com/wonny/revops/internal/fiscal"
)

// UnspecifiedReason labels lost deals carrying no loss reason
const UnspecifiedReason = "Unspecified"

// ReasonCount is one bucket of the loss-reason breakdown
type ReasonCount struct {
	Reason string  `json:"reason"`
	Count  int     `json:"count"`
	Value  float64 `json:"value"`
	Pct    float64 `json:"pct"`
}

// LossReasonBreakdown groups lost deals in the range by loss reason
func (e *Engine) LossReasonBreakdown(d *Dataset, r fiscal.Range) []ReasonCount {
	byReason := make(map[string]*ReasonCount)
	total := 0
	for _, entry := range d.CurrentSet(d.LatestDate, contracts.SnapshotFilter{}) {
		snap := entry.Snapshot
		if !snap.IsClosedLost() {
			continue
		}
		date, ok := closeAttributionDate(snap)
		if !ok || !r.Contains(date) {
			continue
		}
		reason := strings.TrimSpace(snap.LossReason)
		if reason == "" {
			reason = UnspecifiedReason
		}
		rc, found := byReason[reason]
		if !found {
			rc = &ReasonCount{Reason: reason}
			byReason[reason] = rc
		}
		rc.Count++
		rc.Value += snap.Amount
		total++
	}

	out := make([]ReasonCount, 0, len(byReason))
	for _, rc := range byReason {
		rc.Pct = float64(rc.Count) / float64(total)
		out = append(out, *rc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

// LossByPreviousStage is one (previous stage, reason) cell of the
// loss cross-tab
type LossByPreviousStage struct {
	PreviousStage string  `json:"previous_stage"`
	Reason        string  `json:"reason"`
	Count         int     `json:"count"`
	Pct           float64 `json:"pct"`
}

// LossReasonByPreviousStage cross-tabulates lost deals by the stage
// they held immediately before their final closed-lost run. A deal
// whose very first snapshot is already lost counts under Unknown.
func (e *Engine) LossReasonByPreviousStage(d *Dataset, r fiscal.Range) []LossByPreviousStage {
	type key struct{ stage, reason string }
	cells := make(map[key]int)
	total := 0

	for _, entry := range d.CurrentSet(d.LatestDate, contracts.SnapshotFilter{}) {
		snap := entry.Snapshot
		if !snap.IsClosedLost() {
			continue
		}
		date, ok := closeAttributionDate(snap)
		if !ok || !r.Contains(date) {
			continue
		}
		history := d.History[entry.Opportunity.ID]
		i := len(history) - 1
		for i >= 0 && history[i].IsClosedLost() {
			i--
		}
		prev := contracts.StageUnknown
		if i >= 0 {
			prev = history[i].Stage
		}
		reason := strings.TrimSpace(snap.LossReason)
		if reason == "" {
			reason = UnspecifiedReason
		}
		cells[key{prev, reason}]++
		total++
	}

	out := make([]LossByPreviousStage, 0, len(cells))
	for k, count := range cells {
		out = append(out, LossByPreviousStage{
			PreviousStage: k.stage,
			Reason:        k.reason,
			Count:         count,
			Pct:           float64(count) / float64(total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].PreviousStage != out[j].PreviousStage {
			return out[i].PreviousStage < out[j].PreviousStage
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

// SlippageResult is the average expected-close drift observed while
// deals sat in one stage
type SlippageResult struct {
	Stage   string  `json:"stage"`
	AvgDays float64 `json:"avg_days"`
	Samples int     `json:"samples"`
}

// DateSlippage measures how far the expected close date moved during
// each completed pass through the stage. Entry is the first snapshot
// of the pass, exit the first snapshot after it; passes missing an
// expected close on either side contribute nothing. A deal revisiting
// the stage contributes one sample per pass.
func (e *Engine) DateSlippage(d *Dataset, stage string) *SlippageResult {
	res := &SlippageResult{Stage: stage}
	var totalDays float64

	for _, id := range d.sortedIDs() {
		history := d.History[id]
		for i := 0; i < len(history); {
			if history[i].Stage != stage {
				i++
				continue
			}
			entry := history[i]
			j := i
			for j < len(history) && history[j].Stage == stage {
				j++
			}
			if j < len(history) && entry.ExpectedClose != nil && history[j].ExpectedClose != nil {
				drift := history[j].ExpectedClose.Sub(*entry.ExpectedClose)
				totalDays += drift.Hours() / 24
				res.Samples++
			}
			i = j
		}
	}
	if res.Samples > 0 {
		res.AvgDays = totalDays / float64(res.Samples)
	}
	return res
}

// DuplicatePair flags two distinct opportunities that shared a name
// while both were live
type DuplicatePair struct {
	Name          string    `json:"name"`
	OpportunityA  string    `json:"opportunity_a"`
	OpportunityB  string    `json:"opportunity_b"`
	OverlapStart  time.Time `json:"overlap_start"`
	OverlapEnd    time.Time `json:"overlap_end"`
}

// activeWindow is the span a deal was observable and not yet lost:
// from its first snapshot until its close date, or until the dataset's
// latest date while it stays open.
func (d *Dataset) activeWindow(id string) (fiscal.Range, bool) {
	history := d.History[id]
	if len(history) == 0 {
		return fiscal.Range{}, false
	}
	start := history[0].SnapshotDate
	end := d.LatestDate
	latest := history[len(history)-1]
	if latest.IsClosed() && latest.CloseDate != nil {
		end = fiscal.DateOnly(*latest.CloseDate)
	}
	if end.Before(start) {
		end = start
	}
	// 하루를 더해 종료일 당일까지 포함 (half-open 구간)
	return fiscal.Range{Start: start, End: end.AddDate(0, 0, 1)}, true
}

// Duplicates finds same-name opportunities whose active windows
// overlap. Name comparison follows the duplicate-detection settings.
func (e *Engine) Duplicates(d *Dataset) []DuplicatePair {
	byName := make(map[string][]string)
	for _, id := range d.sortedIDs() {
		opp := d.Opportunities[id]
		name := normalizeName(opp.Name, e.settings.Duplicates.NormalizeNames)
		if name == "" {
			continue
		}
		byName[name] = append(byName[name], id)
	}

	var out []DuplicatePair
	for _, ids := range byName {
		if len(ids) < 2 {
			continue
		}
		for i := 0; i < len(ids); i++ {
			wa, ok := d.activeWindow(ids[i])
			if !ok {
				continue
			}
			for j := i + 1; j < len(ids); j++ {
				wb, ok := d.activeWindow(ids[j])
				if !ok || !wa.Overlaps(wb) {
					continue
				}
				start := wa.Start
				if wb.Start.After(start) {
					start = wb.Start
				}
				end := wa.End
				if wb.End.Before(end) {
					end = wb.End
				}
				out = append(out, DuplicatePair{
					Name:         d.Opportunities[ids[i]].Name,
					OpportunityA: ids[i],
					OpportunityB: ids[j],
					OverlapStart: start,
					OverlapEnd:   end.AddDate(0, 0, -1),
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpportunityA != out[j].OpportunityA {
			return out[i].OpportunityA < out[j].OpportunityA
		}
		return out[i].OpportunityB < out[j].OpportunityB
	})
	return out
}

func normalizeName(name string, normalize bool) string {
	if !normalize {
		return strings.TrimSpace(name)
	}
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
