package campaign

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/revops/internal/contracts"
	"github.com/wonny/revops/internal/fiscal"
)

func TestRollup_DeduplicatesAcrossCampaigns(t *testing.T) {
	r := newRig(t)
	r.seedCampaign(t, "camp-a", "webinar", day(2025, 2, 1), 500)
	r.seedCampaign(t, "camp-b", "webinar", day(2025, 3, 1), 300)
	r.seedCampaign(t, "camp-x", "field-event", day(2025, 2, 15), 900)
	r.seedCampaign(t, "camp-next-year", "webinar", day(2026, 3, 1), 700)

	entered := dayPtr(2025, 2, 10)
	// touched by both webinars: counted once, earliest start wins
	r.seedOpp(t, "006A0000004XAAA", "Shared Deal")
	r.seedSnap(t, &contracts.Snapshot{OpportunityID: "006A0000004XAAA", SnapshotDate: day(2025, 4, 1), Stage: "Negotiate", Year1Value: 200, EnteredPipeline: entered})
	r.seedCustomer(t, &contracts.CampaignCustomer{CampaignID: "camp-a", OpportunityID: "006A0000004XAAA", BaselineStage: "Discover"})
	r.seedCustomer(t, &contracts.CampaignCustomer{CampaignID: "camp-b", OpportunityID: "006A0000004XAAA", BaselineStage: "Discover"})
	// won after its campaign started
	r.seedOpp(t, "006B0000004XBBB", "Won Deal")
	r.seedSnap(t, &contracts.Snapshot{OpportunityID: "006B0000004XBBB", SnapshotDate: day(2025, 4, 1), Stage: contracts.StageClosedWon, Year1Value: 700, CloseDate: dayPtr(2025, 3, 10), EnteredPipeline: entered})
	r.seedCustomer(t, &contracts.CampaignCustomer{CampaignID: "camp-b", OpportunityID: "006B0000004XBBB", BaselineStage: "Discover"})
	// latest snapshot never entered the pipeline: not qualified
	r.seedOpp(t, "006C0000004XCCC", "Parked Deal")
	r.seedSnap(t, &contracts.Snapshot{OpportunityID: "006C0000004XCCC", SnapshotDate: day(2025, 4, 1), Stage: "Discover", Year1Value: 50})
	r.seedCustomer(t, &contracts.CampaignCustomer{CampaignID: "camp-a", OpportunityID: "006C0000004XCCC", BaselineStage: "Discover"})
	// closed on its campaign's start day: not qualified
	r.seedOpp(t, "006D0000004XDDD", "Old Deal")
	r.seedSnap(t, &contracts.Snapshot{OpportunityID: "006D0000004XDDD", SnapshotDate: day(2025, 4, 1), Stage: contracts.StageClosedLost, Year1Value: 90, CloseDate: dayPtr(2025, 3, 1), EnteredPipeline: entered})
	r.seedCustomer(t, &contracts.CampaignCustomer{CampaignID: "camp-b", OpportunityID: "006D0000004XDDD", BaselineStage: "Discover"})

	rollup, err := r.engine.Rollup(context.Background(), r.dataset(t), "webinar", fiscal.YearRange(2025))
	require.NoError(t, err)

	assert.Equal(t, 2, rollup.Campaigns, "other types and other years stay out")
	assert.Equal(t, 800.0, rollup.TotalCost)
	assert.Equal(t, 4, rollup.Considered)
	assert.Equal(t, 2, rollup.Qualified)
	assert.Equal(t, 200.0, rollup.PipelineValue)
	assert.Equal(t, 700.0, rollup.ClosedWonValue)

	require.Len(t, rollup.Rows, 2)
	shared := rollup.Rows[0]
	assert.Equal(t, "006A0000004XAAA", shared.OpportunityID)
	assert.Equal(t, day(2025, 2, 1), shared.AttributionDate, "earliest touching campaign attributes the deal")
	assert.Equal(t, []string{"camp-a", "camp-b"}, shared.CampaignIDs)
	assert.Equal(t, 200.0, shared.Value, "value comes from the most recent qualifying snapshot")

	won := rollup.Rows[1]
	assert.Equal(t, "006B0000004XBBB", won.OpportunityID)
	assert.True(t, won.Won)
}

func TestRollup_EarliestStartGovernsQualification(t *testing.T) {
	r := newRig(t)
	r.seedCampaign(t, "camp-a", "webinar", day(2025, 2, 1), 100)
	r.seedCampaign(t, "camp-b", "webinar", day(2025, 3, 1), 100)

	// closed between the two campaign starts: after camp-a's start it
	// would qualify under camp-b alone, but the earliest start governs
	r.seedOpp(t, "006A0000004XAAA", "Between Deal")
	r.seedSnap(t, &contracts.Snapshot{OpportunityID: "006A0000004XAAA", SnapshotDate: day(2025, 4, 1), Stage: contracts.StageClosedWon, Year1Value: 500, CloseDate: dayPtr(2025, 2, 15), EnteredPipeline: dayPtr(2025, 1, 10)})
	r.seedCustomer(t, &contracts.CampaignCustomer{CampaignID: "camp-a", OpportunityID: "006A0000004XAAA", BaselineStage: "Discover"})
	r.seedCustomer(t, &contracts.CampaignCustomer{CampaignID: "camp-b", OpportunityID: "006A0000004XAAA", BaselineStage: "Discover"})

	rollup, err := r.engine.Rollup(context.Background(), r.dataset(t), "webinar", fiscal.YearRange(2025))
	require.NoError(t, err)
	assert.Equal(t, 1, rollup.Qualified, "close after the earliest start keeps the deal attributable")
	require.Len(t, rollup.Rows, 1)
	assert.Equal(t, day(2025, 2, 1), rollup.Rows[0].AttributionDate)
}

func TestRollup_EmptyType(t *testing.T) {
	r := newRig(t)
	rollup, err := r.engine.Rollup(context.Background(), r.dataset(t), "webinar", fiscal.YearRange(2025))
	require.NoError(t, err)
	assert.Zero(t, rollup.Campaigns)
	assert.Empty(t, rollup.Rows, "an empty rollup is a valid result, not a failure")
}
