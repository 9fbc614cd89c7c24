package campaign

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/revops/internal/contracts"
	"github.com/wonny/revops/internal/fiscal"
	"github.com/wonny/revops/internal/metrics"
	"github.com/wonny/revops/internal/settings"
	"github.com/wonny/revops/pkg/logger"
)

// Engine layers campaign attribution on top of the snapshot history:
// baseline capture, exclusion rules, rollups and the pipeline walk.
// 베이스라인은 연결 시점에 한 번 고정되고 이후 변경되지 않는다 ⭐
type Engine struct {
	campaigns contracts.CampaignRepository
	customers contracts.CampaignCustomerRepository
	settings  *settings.Settings
	logger    *logger.Logger
}

// NewEngine creates a campaign attribution engine
func NewEngine(campaigns contracts.CampaignRepository, customers contracts.CampaignCustomerRepository, set *settings.Settings, log *logger.Logger) *Engine {
	return &Engine{
		campaigns: campaigns,
		customers: customers,
		settings:  set,
		logger:    log,
	}
}

// CreateCampaign registers a campaign. Start date is kept as a
// calendar date.
func (e *Engine) CreateCampaign(ctx context.Context, name, campaignType string, start time.Time, cost float64) (*contracts.Campaign, error) {
	name = strings.TrimSpace(name)
	campaignType = strings.TrimSpace(campaignType)
	if name == "" || campaignType == "" {
		return nil, &contracts.DataIntegrityError{Detail: "campaign name and type are required"}
	}

	camp := &contracts.Campaign{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      campaignType,
		StartDate: fiscal.DateOnly(start),
		Cost:      cost,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.campaigns.Save(ctx, camp); err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"campaign_id": camp.ID,
		"type":        camp.Type,
		"start":       camp.StartDate.Format(time.DateOnly),
	}).Info("Campaign created")
	return camp, nil
}

// Campaigns lists all campaigns
func (e *Engine) Campaigns(ctx context.Context) ([]*contracts.Campaign, error) {
	return e.campaigns.List(ctx)
}

// Associate links an opportunity to a campaign and captures its
// baseline from the snapshot at or before the requested date (campaign
// start when omitted). When no snapshot exists that early, the
// earliest snapshot serves as the baseline. A baseline further than
// the configured number of days from the requested date is marked
// stale; the returned warning is non-fatal and the association stands.
func (e *Engine) Associate(ctx context.Context, d *metrics.Dataset, campaignID, opportunityID string, at *time.Time) (*contracts.CampaignCustomer, *contracts.StaleBaselineWarning, error) {
	camp, err := e.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := d.Opportunities[opportunityID]; !ok {
		return nil, nil, &contracts.DataIntegrityError{OpportunityID: opportunityID, Detail: "unknown opportunity"}
	}

	requested := fiscal.DateOnly(camp.StartDate)
	if at != nil {
		requested = fiscal.DateOnly(*at)
	}

	baseline := d.LatestAt(opportunityID, requested)
	if baseline == nil {
		history := d.History[opportunityID]
		if len(history) == 0 {
			return nil, nil, &contracts.DataIntegrityError{OpportunityID: opportunityID, Detail: "opportunity has no snapshots"}
		}
		baseline = history[0]
	}

	distance := daysBetween(baseline.SnapshotDate, requested)
	stale := distance > e.settings.Attribution.StaleBaselineDays

	cc := &contracts.CampaignCustomer{
		CampaignID:            camp.ID,
		OpportunityID:         opportunityID,
		AssociatedAt:          requested,
		BaselineStage:         baseline.Stage,
		BaselineYear1Value:    baseline.Year1Value,
		BaselineContractValue: baseline.ContractValue,
		BaselineCloseDate:     baseline.CloseDate,
		BaselineHasPipeline:   baseline.HasEnteredPipeline(),
		BaselineSnapshotDate:  baseline.SnapshotDate,
		Stale:                 stale,
	}
	if err := e.customers.Save(ctx, cc); err != nil {
		return nil, nil, err
	}

	var warning *contracts.StaleBaselineWarning
	if stale {
		warning = &contracts.StaleBaselineWarning{
			CampaignID:    camp.ID,
			OpportunityID: opportunityID,
			RequestedDate: requested,
			SnapshotDate:  baseline.SnapshotDate,
			DistanceDays:  distance,
		}
		e.logger.WithFields(map[string]interface{}{
			"campaign_id":    camp.ID,
			"opportunity_id": opportunityID,
			"distance_days":  distance,
		}).Warn("Baseline snapshot is stale")
	}

	e.logger.WithFields(map[string]interface{}{
		"campaign_id":    camp.ID,
		"opportunity_id": opportunityID,
		"baseline_stage": cc.BaselineStage,
		"stale":          stale,
	}).Info("Campaign customer associated")
	return cc, warning, nil
}

// RemoveCustomer drops one campaign association
func (e *Engine) RemoveCustomer(ctx context.Context, id int64) error {
	return e.customers.Delete(ctx, id)
}

// daysBetween is the absolute whole-day distance between two dates
func daysBetween(a, b time.Time) int {
	d := fiscal.DateOnly(b).Sub(fiscal.DateOnly(a))
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}
