package movement

import (
	"sort"

	"github.com/wonny/revops/internal/contracts"
	"github.com/wonny/revops/internal/fiscal"
)

// Detect derives stage movements from per-opportunity snapshot
// histories (ascending by snapshot date). The first snapshot of an
// opportunity emits an implicit Unknown → stage movement representing
// pipeline creation. Corrections between two terminal stages are
// retained here and filtered out by ForFunnel.
// ⭐ SSOT: 스테이지 이동 판정은 이 함수만
func Detect(opps map[string]*contracts.Opportunity, history map[string][]*contracts.Snapshot) []contracts.Movement {
	var out []contracts.Movement

	for oppID, snaps := range history {
		if len(snaps) == 0 {
			continue
		}

		name := ""
		if opp, ok := opps[oppID]; ok {
			name = opp.Name
		}

		out = append(out, contracts.Movement{
			OpportunityID:   oppID,
			OpportunityName: name,
			From:            contracts.StageUnknown,
			To:              snaps[0].Stage,
			Date:            snaps[0].SnapshotDate,
			Value:           snaps[0].Amount,
		})

		for i := 1; i < len(snaps); i++ {
			if snaps[i].Stage == snaps[i-1].Stage {
				continue
			}
			out = append(out, contracts.Movement{
				OpportunityID:   oppID,
				OpportunityName: name,
				From:            snaps[i-1].Stage,
				To:              snaps[i].Stage,
				Date:            snaps[i].SnapshotDate,
				Value:           snaps[i].Amount,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].OpportunityID < out[j].OpportunityID
	})

	return out
}

// InRange keeps movements whose date falls inside the half-open range
func InRange(movements []contracts.Movement, r fiscal.Range) []contracts.Movement {
	var out []contracts.Movement
	for _, m := range movements {
		if r.Contains(m.Date) {
			out = append(out, m)
		}
	}
	return out
}

// ForFunnel keeps movements that represent real sales-process
// transitions. Corrections between two terminal stages are dropped.
// includeQualification=false also drops arrivals into the
// qualification stage, keeping it out of closing-probability funnels.
func ForFunnel(movements []contracts.Movement, includeQualification bool) []contracts.Movement {
	var out []contracts.Movement
	for _, m := range movements {
		if m.IsClosedCorrection() {
			continue
		}
		if !includeQualification && m.To == contracts.StageQualification {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Entries keeps the implicit pipeline-creation movements, used for
// new-deal-rate metrics
func Entries(movements []contracts.Movement) []contracts.Movement {
	var out []contracts.Movement
	for _, m := range movements {
		if m.IsPipelineEntry() {
			out = append(out, m)
		}
	}
	return out
}
