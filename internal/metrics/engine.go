package metrics

import (
	"context"
	"sort"
	"time"

	"github.com/wonny/revops/internal/contracts"
	"github.com/wonny/revops/internal/fiscal"
	"github.com/wonny/revops/internal/movement"
	"github.com/wonny/revops/internal/settings"
	"github.com/wonny/revops/pkg/logger"
)

// Engine computes pipeline analytics over a loaded Dataset.
// 집계 정책(제외 스테이지 등)은 settings가 단일 출처
type Engine struct {
	opportunities contracts.OpportunityRepository
	snapshots     contracts.SnapshotRepository
	settings      *settings.Settings
	logger        *logger.Logger
}

// NewEngine creates a metrics engine
func NewEngine(opps contracts.OpportunityRepository, snaps contracts.SnapshotRepository, set *settings.Settings, log *logger.Logger) *Engine {
	return &Engine{
		opportunities: opps,
		snapshots:     snaps,
		settings:      set,
		logger:        log,
	}
}

// Load reads the request-scoped dataset through the storage port
func (e *Engine) Load(ctx context.Context) (*Dataset, error) {
	return Load(ctx, e.opportunities, e.snapshots)
}

// PipelineSummary aggregates the open pipeline as of one date
type PipelineSummary struct {
	AsOf          time.Time `json:"as_of"`
	PipelineValue float64   `json:"pipeline_value"`
	ActiveCount   int       `json:"active_count"`
	AvgDealSize   float64   `json:"avg_deal_size"`
	TotalCount    int       `json:"total_count"` // current snapshots incl. excluded stages
}

// Summary computes pipeline value, active count and average deal size
// over the current snapshot set. Terminal stages and the qualification
// stage stay out of the pipeline aggregates.
func (e *Engine) Summary(d *Dataset, asOf *time.Time, filter contracts.SnapshotFilter) *PipelineSummary {
	anchor := d.Anchor(asOf)
	set := d.CurrentSet(anchor, filter)

	s := &PipelineSummary{AsOf: anchor, TotalCount: len(set)}
	for _, entry := range set {
		if e.settings.Pipeline.Excludes(entry.Snapshot.Stage) {
			continue
		}
		s.PipelineValue += entry.Snapshot.Amount
		s.ActiveCount++
	}
	if s.ActiveCount > 0 {
		s.AvgDealSize = s.PipelineValue / float64(s.ActiveCount)
	}
	return s
}

// StageCount is one bucket of the stage distribution
type StageCount struct {
	Stage string  `json:"stage"`
	Count int     `json:"count"`
	Value float64 `json:"value"`
	Pct   float64 `json:"pct"` // exact fraction; rounding happens at presentation
}

// StageDistribution counts current snapshots per stage, terminal
// stages included
func (e *Engine) StageDistribution(d *Dataset, asOf *time.Time, filter contracts.SnapshotFilter) []StageCount {
	set := d.CurrentSet(d.Anchor(asOf), filter)

	byStage := make(map[string]*StageCount)
	for _, entry := range set {
		sc, ok := byStage[entry.Snapshot.Stage]
		if !ok {
			sc = &StageCount{Stage: entry.Snapshot.Stage}
			byStage[entry.Snapshot.Stage] = sc
		}
		sc.Count++
		sc.Value += entry.Snapshot.Amount
	}

	out := make([]StageCount, 0, len(byStage))
	for _, sc := range byStage {
		if len(set) > 0 {
			sc.Pct = float64(sc.Count) / float64(len(set))
		}
		out = append(out, *sc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Stage < out[j].Stage
	})
	return out
}

// Movements derives the ordered stage movements of the dataset,
// optionally narrowed to a range. The raw list retains corrections
// between terminal stages.
func (e *Engine) Movements(d *Dataset, r *fiscal.Range) []contracts.Movement {
	movements := movement.Detect(d.Opportunities, d.History)
	if r != nil {
		movements = movement.InRange(movements, *r)
	}
	return movements
}

// FunnelMovements is Movements filtered to real sales-process
// transitions, honoring the qualification-funnel setting
func (e *Engine) FunnelMovements(d *Dataset, r *fiscal.Range) []contracts.Movement {
	return movement.ForFunnel(e.Movements(d, r), e.settings.Pipeline.FunnelIncludesQualification)
}
