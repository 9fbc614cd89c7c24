package contracts

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSnapshotStageHelpers(t *testing.T) {
	tests := []struct {
		stage      string
		closed     bool
		closedWon  bool
		closedLost bool
	}{
		{StageClosedWon, true, true, false},
		{StageClosedLost, true, false, true},
		{StageQualification, false, false, false},
		{"Discover", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			s := &Snapshot{Stage: tt.stage}
			if s.IsClosed() != tt.closed {
				t.Errorf("IsClosed() = %v, want %v", s.IsClosed(), tt.closed)
			}
			if s.IsClosedWon() != tt.closedWon {
				t.Errorf("IsClosedWon() = %v, want %v", s.IsClosedWon(), tt.closedWon)
			}
			if s.IsClosedLost() != tt.closedLost {
				t.Errorf("IsClosedLost() = %v, want %v", s.IsClosedLost(), tt.closedLost)
			}
		})
	}
}

func TestSnapshotHasEnteredPipeline(t *testing.T) {
	entered := date(2026, 3, 1)

	if (&Snapshot{}).HasEnteredPipeline() {
		t.Error("nil entered-pipeline should report false")
	}
	if (&Snapshot{EnteredPipeline: &time.Time{}}).HasEnteredPipeline() {
		t.Error("zero entered-pipeline should report false")
	}
	if !(&Snapshot{EnteredPipeline: &entered}).HasEnteredPipeline() {
		t.Error("set entered-pipeline should report true")
	}
}

func TestMovementHelpers(t *testing.T) {
	entry := &Movement{From: StageUnknown, To: "Discover"}
	if !entry.IsPipelineEntry() {
		t.Error("Unknown → Discover should be a pipeline entry")
	}
	if entry.IsClosedCorrection() {
		t.Error("pipeline entry is not a closed correction")
	}

	correction := &Movement{From: StageClosedLost, To: StageClosedWon}
	if !correction.IsClosedCorrection() {
		t.Error("Closed Lost → Closed Won should be a closed correction")
	}

	normal := &Movement{From: "Discover", To: StageClosedWon}
	if normal.IsClosedCorrection() {
		t.Error("Discover → Closed Won is a real transition")
	}
}

func TestSnapshotFilterMatches(t *testing.T) {
	opp := &Opportunity{
		ID:     "0065f00000AbCdE",
		Name:   "ACME Renewal 2026",
		Client: "ACME Corp",
		Owner:  "Kim",
	}
	snap := &Snapshot{Stage: "Discover", Amount: 50000}

	min40k := 40000.0
	min60k := 60000.0
	max45k := 45000.0

	tests := []struct {
		name   string
		filter SnapshotFilter
		want   bool
	}{
		{"zero value matches", SnapshotFilter{}, true},
		{"owner match case-insensitive", SnapshotFilter{Owner: "kim"}, true},
		{"owner mismatch", SnapshotFilter{Owner: "Lee"}, false},
		{"client match", SnapshotFilter{Client: "acme corp"}, true},
		{"stage in set", SnapshotFilter{Stages: []string{"Discover", "Define"}}, true},
		{"stage not in set", SnapshotFilter{Stages: []string{StageClosedWon}}, false},
		{"min value passes", SnapshotFilter{MinValue: &min40k}, true},
		{"min value fails", SnapshotFilter{MinValue: &min60k}, false},
		{"max value fails", SnapshotFilter{MaxValue: &max45k}, false},
		{"search hits name", SnapshotFilter{Search: "renewal"}, true},
		{"search hits client", SnapshotFilter{Search: "acme"}, true},
		{"search misses", SnapshotFilter{Search: "globex"}, false},
		{"combined all pass", SnapshotFilter{Owner: "Kim", MinValue: &min40k, Search: "2026"}, true},
		{"combined one fails", SnapshotFilter{Owner: "Kim", MinValue: &min60k}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(opp, snap); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
