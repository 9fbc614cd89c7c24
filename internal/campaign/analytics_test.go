package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/revops/internal/contracts"
)

func TestClassify(t *testing.T) {
	start := day(2025, 2, 1)
	entered := dayPtr(2025, 1, 5)

	tests := []struct {
		name     string
		baseline string
		current  *contracts.Snapshot
		want     CustomerStatus
	}{
		{
			name:     "baseline already won beats everything",
			baseline: contracts.StageClosedWon,
			current:  &contracts.Snapshot{Stage: "Discover"},
			want:     StatusPreexistingClosedWon,
		},
		{
			name:     "baseline won even without current snapshot",
			baseline: contracts.StageClosedWon,
			current:  nil,
			want:     StatusPreexistingClosedWon,
		},
		{
			name:     "no entered-pipeline date on current snapshot",
			baseline: "Discover",
			current:  &contracts.Snapshot{Stage: "Negotiate"},
			want:     StatusNeverEnteredPipeline,
		},
		{
			name:     "missing current snapshot",
			baseline: "Discover",
			current:  nil,
			want:     StatusNeverEnteredPipeline,
		},
		{
			name:     "closed on the campaign start day counts as before",
			baseline: "Discover",
			current:  &contracts.Snapshot{Stage: contracts.StageClosedLost, EnteredPipeline: entered, CloseDate: dayPtr(2025, 2, 1)},
			want:     StatusClosedBeforeCampaignStart,
		},
		{
			name:     "won before the campaign is excluded too",
			baseline: "Discover",
			current:  &contracts.Snapshot{Stage: contracts.StageClosedWon, EnteredPipeline: entered, CloseDate: dayPtr(2025, 1, 20)},
			want:     StatusClosedBeforeCampaignStart,
		},
		{
			name:     "won strictly after the start is active",
			baseline: "Discover",
			current:  &contracts.Snapshot{Stage: contracts.StageClosedWon, EnteredPipeline: entered, CloseDate: dayPtr(2025, 2, 2)},
			want:     StatusActive,
		},
		{
			name:     "open deal in the pipeline is active",
			baseline: "Discover",
			current:  &contracts.Snapshot{Stage: "Negotiate", EnteredPipeline: entered},
			want:     StatusActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc := &contracts.CampaignCustomer{BaselineStage: tt.baseline}
			assert.Equal(t, tt.want, Classify(cc, tt.current, start))
		})
	}
}

func TestAnalytics(t *testing.T) {
	r := newRig(t)
	camp := r.seedCampaign(t, "camp-a", "webinar", day(2025, 2, 1), 1000)

	entered := dayPtr(2025, 1, 20)
	seed := func(id, name string, snap *contracts.Snapshot, cc *contracts.CampaignCustomer) {
		r.seedOpp(t, id, name)
		snap.OpportunityID = id
		r.seedSnap(t, snap)
		cc.CampaignID = camp.ID
		cc.OpportunityID = id
		if cc.AssociatedAt.IsZero() {
			cc.AssociatedAt = day(2025, 2, 1)
		}
		if cc.BaselineSnapshotDate.IsZero() {
			cc.BaselineSnapshotDate = day(2025, 1, 29)
		}
		r.seedCustomer(t, cc)
	}

	// became won after the start
	seed("006A0000004XAAA", "Won Deal",
		&contracts.Snapshot{SnapshotDate: day(2025, 3, 1), Stage: contracts.StageClosedWon, Year1Value: 500, CloseDate: dayPtr(2025, 3, 1), EnteredPipeline: entered},
		&contracts.CampaignCustomer{BaselineStage: "Discover", BaselineYear1Value: 200})
	// still open
	seed("006B0000004XBBB", "Open Deal",
		&contracts.Snapshot{SnapshotDate: day(2025, 3, 1), Stage: "Negotiate", Year1Value: 300, EnteredPipeline: entered},
		&contracts.CampaignCustomer{BaselineStage: "Discover", BaselineYear1Value: 100})
	// was already won when associated
	seed("006C0000004XCCC", "Preexisting Deal",
		&contracts.Snapshot{SnapshotDate: day(2025, 3, 1), Stage: contracts.StageClosedWon, Year1Value: 900, CloseDate: dayPtr(2025, 1, 10), EnteredPipeline: entered},
		&contracts.CampaignCustomer{BaselineStage: contracts.StageClosedWon, BaselineYear1Value: 900})
	// never entered the pipeline
	seed("006D0000004XDDD", "Parked Deal",
		&contracts.Snapshot{SnapshotDate: day(2025, 3, 1), Stage: "Discover", Year1Value: 50},
		&contracts.CampaignCustomer{BaselineStage: "Discover"})
	// closed before the campaign started
	seed("006E0000004XEEE", "Old Deal",
		&contracts.Snapshot{SnapshotDate: day(2025, 3, 1), Stage: contracts.StageClosedLost, Year1Value: 80, CloseDate: dayPtr(2025, 1, 15), EnteredPipeline: entered},
		&contracts.CampaignCustomer{BaselineStage: "Discover"})
	// stale baseline, currently won: forced into the loss bucket
	seed("006F0000004XFFF", "Stale Deal",
		&contracts.Snapshot{SnapshotDate: day(2025, 3, 1), Stage: contracts.StageClosedWon, Year1Value: 400, CloseDate: dayPtr(2025, 3, 1), EnteredPipeline: entered},
		&contracts.CampaignCustomer{BaselineStage: "Discover", Stale: true, BaselineSnapshotDate: day(2025, 1, 10)})

	rep, err := r.engine.Analytics(context.Background(), r.dataset(t), camp.ID)
	require.NoError(t, err)

	s := rep.Summary
	assert.Equal(t, 6, s.TotalCustomers)
	assert.Equal(t, 3, s.Active)
	assert.Equal(t, 1, s.PreexistingWon)
	assert.Equal(t, 1, s.NeverEntered)
	assert.Equal(t, 1, s.ClosedBefore)
	assert.Equal(t, 1, s.StaleForcedLost)
	assert.Equal(t, 1, s.Won, "the stale win does not count as a win")
	assert.InDelta(t, 1.0/3.0, s.WinRate, 1e-9, "stale customer stays in the denominator as a loss")
	assert.Equal(t, 300.0, s.PipelineValue)
	assert.Equal(t, 500.0, s.ClosedWonValue)
	assert.Equal(t, 1000.0, s.CAC)

	require.Len(t, rep.Warnings, 1)
	assert.Equal(t, "006F0000004XFFF", rep.Warnings[0].OpportunityID)
	assert.Equal(t, 22, rep.Warnings[0].DistanceDays)

	byID := map[string]CustomerReport{}
	for _, row := range rep.Customers {
		byID[row.OpportunityID] = row
	}
	assert.True(t, byID["006A0000004XAAA"].Won)
	assert.True(t, byID["006A0000004XAAA"].Counted)
	assert.Equal(t, 300.0, byID["006A0000004XAAA"].ValueDelta)

	pre := byID["006C0000004XCCC"]
	assert.Equal(t, StatusPreexistingClosedWon, pre.Status)
	assert.False(t, pre.Won, "preexisting wins contribute zero to the won count")
	assert.False(t, pre.Counted)

	stale := byID["006F0000004XFFF"]
	assert.True(t, stale.Counted)
	assert.False(t, stale.Won)
}

func TestAnalytics_Errors(t *testing.T) {
	r := newRig(t)
	_, err := r.engine.Analytics(context.Background(), r.dataset(t), "missing")
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	r.seedCampaign(t, "camp-a", "webinar", day(2025, 2, 1), 0)
	r.seedCustomer(t, &contracts.CampaignCustomer{CampaignID: "camp-a", OpportunityID: "006Z0000004XZZZ", BaselineStage: "Discover"})

	_, err = r.engine.Analytics(context.Background(), r.dataset(t), "camp-a")
	var integrity *contracts.DataIntegrityError
	assert.ErrorAs(t, err, &integrity, "aggregates abort instead of going partially wrong")
}

func TestAnalytics_EmptyCampaign(t *testing.T) {
	r := newRig(t)
	camp := r.seedCampaign(t, "camp-a", "webinar", day(2025, 2, 1), 1000)

	rep, err := r.engine.Analytics(context.Background(), r.dataset(t), camp.ID)
	require.NoError(t, err)
	assert.Zero(t, rep.Summary.TotalCustomers)
	assert.Zero(t, rep.Summary.WinRate)
	assert.Zero(t, rep.Summary.CAC, "no division by zero without wins")
	assert.Empty(t, rep.Customers)
}

func TestAnalyticsWallClockIndependent(t *testing.T) {
	// the report depends only on the dataset, so two computations at
	// different wall-clock times must agree
	r := newRig(t)
	camp := r.seedCampaign(t, "camp-a", "webinar", day(2025, 2, 1), 100)
	r.seedOpp(t, "006A0000004XAAA", "Alpha Deal")
	r.seedSnap(t, &contracts.Snapshot{OpportunityID: "006A0000004XAAA", SnapshotDate: day(2025, 3, 1), Stage: "Negotiate", Year1Value: 10, EnteredPipeline: dayPtr(2025, 2, 10)})
	r.seedCustomer(t, &contracts.CampaignCustomer{CampaignID: camp.ID, OpportunityID: "006A0000004XAAA", BaselineStage: "Discover", AssociatedAt: day(2025, 2, 1), BaselineSnapshotDate: day(2025, 2, 1)})

	d := r.dataset(t)
	first, err := r.engine.Analytics(context.Background(), d, camp.ID)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := r.engine.Analytics(context.Background(), d, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
