package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/revops/internal/contracts"
)

// schema holds the idempotent DDL applied by Migrate.
// 스키마 변경은 여기서만 (IF NOT EXISTS라 기존 데이터는 건드리지 않음)
const schema = `
CREATE SCHEMA IF NOT EXISTS sales;

CREATE TABLE IF NOT EXISTS sales.opportunities (
	id           TEXT PRIMARY KEY,
	external_id  TEXT NOT NULL,
	name         TEXT NOT NULL,
	client       TEXT NOT NULL DEFAULT '',
	owner        TEXT NOT NULL DEFAULT '',
	created_date TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sales.snapshots (
	id               BIGSERIAL PRIMARY KEY,
	opportunity_id   TEXT NOT NULL REFERENCES sales.opportunities(id),
	batch_id         TEXT NOT NULL,
	snapshot_date    DATE NOT NULL,
	stage            TEXT NOT NULL,
	confidence       DOUBLE PRECISION NOT NULL DEFAULT 0,
	amount           DOUBLE PRECISION NOT NULL DEFAULT 0,
	year1_value      DOUBLE PRECISION NOT NULL DEFAULT 0,
	contract_value   DOUBLE PRECISION NOT NULL DEFAULT 0,
	expected_close   DATE,
	close_date       DATE,
	entered_pipeline DATE,
	loss_reason      TEXT NOT NULL DEFAULT '',
	created_date     TIMESTAMPTZ NOT NULL,
	last_modified    TIMESTAMPTZ NOT NULL,
	UNIQUE (opportunity_id, snapshot_date)
);

CREATE INDEX IF NOT EXISTS snapshots_batch_idx ON sales.snapshots (batch_id);

CREATE TABLE IF NOT EXISTS sales.batches (
	id            TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	snapshot_date DATE NOT NULL,
	total         INT NOT NULL DEFAULT 0,
	accepted      INT NOT NULL DEFAULT 0,
	rejected      INT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sales.campaigns (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	type       TEXT NOT NULL,
	start_date DATE NOT NULL,
	cost       DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sales.campaign_customers (
	id                      BIGSERIAL PRIMARY KEY,
	campaign_id             TEXT NOT NULL REFERENCES sales.campaigns(id),
	opportunity_id          TEXT NOT NULL,
	associated_at           DATE NOT NULL,
	baseline_stage          TEXT NOT NULL,
	baseline_year1_value    DOUBLE PRECISION NOT NULL DEFAULT 0,
	baseline_contract_value DOUBLE PRECISION NOT NULL DEFAULT 0,
	baseline_close_date     DATE,
	baseline_has_pipeline   BOOLEAN NOT NULL DEFAULT FALSE,
	baseline_snapshot_date  DATE NOT NULL,
	stale                   BOOLEAN NOT NULL DEFAULT FALSE
);
`

// Migrate ensures the sales schema exists. 서버/CLI 기동 시 1회 호출
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// NewPostgres wires the five repositories onto one shared pool.
// ⭐ SSOT: 스토리지 포트의 pgx 구현은 이 파일 하나뿐
func NewPostgres(pool *pgxpool.Pool) *Store {
	return &Store{
		Opportunities:     &pgOpportunities{pool: pool},
		Snapshots:         &pgSnapshots{pool: pool},
		Batches:           &pgBatches{pool: pool},
		Campaigns:         &pgCampaigns{pool: pool},
		CampaignCustomers: &pgCustomers{pool: pool},
	}
}

// --- OpportunityRepository ---

type pgOpportunities struct {
	pool *pgxpool.Pool
}

func (r *pgOpportunities) GetByCanonicalID(ctx context.Context, id string) (*contracts.Opportunity, error) {
	query := `
		SELECT id, external_id, name, client, owner, created_date, updated_at
		FROM sales.opportunities
		WHERE id = $1
	`

	var opp contracts.Opportunity
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&opp.ID, &opp.ExternalID, &opp.Name, &opp.Client, &opp.Owner,
		&opp.CreatedDate, &opp.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &opp, nil
}

func (r *pgOpportunities) ListByName(ctx context.Context, name string) ([]*contracts.Opportunity, error) {
	query := `
		SELECT id, external_id, name, client, owner, created_date, updated_at
		FROM sales.opportunities
		WHERE LOWER(name) = LOWER($1)
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOpportunities(rows)
}

func (r *pgOpportunities) List(ctx context.Context) ([]*contracts.Opportunity, error) {
	query := `
		SELECT id, external_id, name, client, owner, created_date, updated_at
		FROM sales.opportunities
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOpportunities(rows)
}

func (r *pgOpportunities) Save(ctx context.Context, opp *contracts.Opportunity) error {
	query := `
		INSERT INTO sales.opportunities (id, external_id, name, client, owner, created_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			external_id = EXCLUDED.external_id,
			name = EXCLUDED.name,
			client = EXCLUDED.client,
			owner = EXCLUDED.owner,
			created_date = EXCLUDED.created_date,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		opp.ID, opp.ExternalID, opp.Name, opp.Client, opp.Owner,
		opp.CreatedDate, opp.UpdatedAt,
	)
	return err
}

func (r *pgOpportunities) DeleteAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sales.opportunities`)
	return err
}

func collectOpportunities(rows pgx.Rows) ([]*contracts.Opportunity, error) {
	var out []*contracts.Opportunity
	for rows.Next() {
		var opp contracts.Opportunity
		if err := rows.Scan(
			&opp.ID, &opp.ExternalID, &opp.Name, &opp.Client, &opp.Owner,
			&opp.CreatedDate, &opp.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &opp)
	}
	return out, rows.Err()
}

// --- SnapshotRepository ---

type pgSnapshots struct {
	pool *pgxpool.Pool
}

const snapshotColumns = `id, opportunity_id, batch_id, snapshot_date, stage,
			confidence, amount, year1_value, contract_value,
			expected_close, close_date, entered_pipeline,
			loss_reason, created_date, last_modified`

// DO NOTHING 덕분에 중복이면 RETURNING이 빈 결과가 된다
const snapshotInsert = `
	INSERT INTO sales.snapshots (
		opportunity_id, batch_id, snapshot_date, stage,
		confidence, amount, year1_value, contract_value,
		expected_close, close_date, entered_pipeline,
		loss_reason, created_date, last_modified
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (opportunity_id, snapshot_date) DO NOTHING
	RETURNING id
`

func (r *pgSnapshots) ListByOpportunity(ctx context.Context, opportunityID string) ([]*contracts.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM sales.snapshots
		WHERE opportunity_id = $1
		ORDER BY snapshot_date
	`

	rows, err := r.pool.Query(ctx, query, opportunityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

func (r *pgSnapshots) ListAll(ctx context.Context) ([]*contracts.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM sales.snapshots
		ORDER BY snapshot_date, opportunity_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

func (r *pgSnapshots) ListByDateRange(ctx context.Context, from, to time.Time) ([]*contracts.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM sales.snapshots
		WHERE snapshot_date >= $1 AND snapshot_date < $2
		ORDER BY snapshot_date, opportunity_id
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

func (r *pgSnapshots) LatestByOpportunity(ctx context.Context, opportunityID string, asOf time.Time) (*contracts.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM sales.snapshots
		WHERE opportunity_id = $1 AND snapshot_date <= $2
		ORDER BY snapshot_date DESC
		LIMIT 1
	`

	snap, err := scanSnapshot(r.pool.QueryRow(ctx, query, opportunityID, asOf))
	if err == pgx.ErrNoRows {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *pgSnapshots) LatestDate(ctx context.Context) (time.Time, error) {
	query := `SELECT MAX(snapshot_date) FROM sales.snapshots`

	var latest *time.Time
	if err := r.pool.QueryRow(ctx, query).Scan(&latest); err != nil {
		return time.Time{}, err
	}
	if latest == nil {
		return time.Time{}, contracts.ErrNotFound
	}
	return *latest, nil
}

func (r *pgSnapshots) Exists(ctx context.Context, opportunityID string, date time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM sales.snapshots
			WHERE opportunity_id = $1 AND snapshot_date = $2
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, opportunityID, date).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *pgSnapshots) Save(ctx context.Context, snap *contracts.Snapshot) error {
	err := r.pool.QueryRow(ctx, snapshotInsert, snapshotArgs(snap)...).Scan(&snap.ID)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("snapshot exists for %s on %s",
			snap.OpportunityID, snap.SnapshotDate.Format("2006-01-02"))
	}
	return err
}

func (r *pgSnapshots) SaveBatch(ctx context.Context, snaps []*contracts.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, snap := range snaps {
		batch.Queue(snapshotInsert, snapshotArgs(snap)...)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, snap := range snaps {
		err := br.QueryRow().Scan(&snap.ID)
		if err == pgx.ErrNoRows {
			return fmt.Errorf("snapshot exists for %s on %s",
				snap.OpportunityID, snap.SnapshotDate.Format("2006-01-02"))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *pgSnapshots) DeleteByBatch(ctx context.Context, batchID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sales.snapshots WHERE batch_id = $1`, batchID)
	return err
}

func (r *pgSnapshots) DeleteAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sales.snapshots`)
	return err
}

func snapshotArgs(snap *contracts.Snapshot) []any {
	return []any{
		snap.OpportunityID, snap.BatchID, snap.SnapshotDate, snap.Stage,
		snap.Confidence, snap.Amount, snap.Year1Value, snap.ContractValue,
		snap.ExpectedClose, snap.CloseDate, snap.EnteredPipeline,
		snap.LossReason, snap.CreatedDate, snap.LastModified,
	}
}

func scanSnapshot(row pgx.Row) (*contracts.Snapshot, error) {
	var s contracts.Snapshot
	err := row.Scan(
		&s.ID, &s.OpportunityID, &s.BatchID, &s.SnapshotDate, &s.Stage,
		&s.Confidence, &s.Amount, &s.Year1Value, &s.ContractValue,
		&s.ExpectedClose, &s.CloseDate, &s.EnteredPipeline,
		&s.LossReason, &s.CreatedDate, &s.LastModified,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectSnapshots(rows pgx.Rows) ([]*contracts.Snapshot, error) {
	var out []*contracts.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// --- BatchRepository ---

type pgBatches struct {
	pool *pgxpool.Pool
}

func (r *pgBatches) GetByID(ctx context.Context, id string) (*contracts.Batch, error) {
	query := `
		SELECT id, source, snapshot_date, total, accepted, rejected, created_at
		FROM sales.batches
		WHERE id = $1
	`

	var b contracts.Batch
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.Source, &b.SnapshotDate, &b.Total, &b.Accepted, &b.Rejected, &b.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *pgBatches) List(ctx context.Context) ([]*contracts.Batch, error) {
	query := `
		SELECT id, source, snapshot_date, total, accepted, rejected, created_at
		FROM sales.batches
		ORDER BY snapshot_date, id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*contracts.Batch
	for rows.Next() {
		var b contracts.Batch
		if err := rows.Scan(
			&b.ID, &b.Source, &b.SnapshotDate, &b.Total, &b.Accepted, &b.Rejected, &b.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func (r *pgBatches) Save(ctx context.Context, batch *contracts.Batch) error {
	query := `
		INSERT INTO sales.batches (id, source, snapshot_date, total, accepted, rejected, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			snapshot_date = EXCLUDED.snapshot_date,
			total = EXCLUDED.total,
			accepted = EXCLUDED.accepted,
			rejected = EXCLUDED.rejected,
			created_at = EXCLUDED.created_at
	`

	_, err := r.pool.Exec(ctx, query,
		batch.ID, batch.Source, batch.SnapshotDate,
		batch.Total, batch.Accepted, batch.Rejected, batch.CreatedAt,
	)
	return err
}

func (r *pgBatches) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sales.batches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return contracts.ErrNotFound
	}
	return nil
}

func (r *pgBatches) DeleteAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sales.batches`)
	return err
}

// --- CampaignRepository ---

type pgCampaigns struct {
	pool *pgxpool.Pool
}

func (r *pgCampaigns) GetByID(ctx context.Context, id string) (*contracts.Campaign, error) {
	query := `
		SELECT id, name, type, start_date, cost, created_at
		FROM sales.campaigns
		WHERE id = $1
	`

	var c contracts.Campaign
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Type, &c.StartDate, &c.Cost, &c.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *pgCampaigns) List(ctx context.Context) ([]*contracts.Campaign, error) {
	query := `
		SELECT id, name, type, start_date, cost, created_at
		FROM sales.campaigns
		ORDER BY start_date, id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCampaigns(rows)
}

func (r *pgCampaigns) ListByDateRange(ctx context.Context, from, to time.Time) ([]*contracts.Campaign, error) {
	query := `
		SELECT id, name, type, start_date, cost, created_at
		FROM sales.campaigns
		WHERE start_date >= $1 AND start_date < $2
		ORDER BY start_date, id
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCampaigns(rows)
}

func (r *pgCampaigns) ListByType(ctx context.Context, campaignType string) ([]*contracts.Campaign, error) {
	query := `
		SELECT id, name, type, start_date, cost, created_at
		FROM sales.campaigns
		WHERE LOWER(type) = LOWER($1)
		ORDER BY start_date, id
	`

	rows, err := r.pool.Query(ctx, query, campaignType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCampaigns(rows)
}

func (r *pgCampaigns) Save(ctx context.Context, campaign *contracts.Campaign) error {
	query := `
		INSERT INTO sales.campaigns (id, name, type, start_date, cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			start_date = EXCLUDED.start_date,
			cost = EXCLUDED.cost,
			created_at = EXCLUDED.created_at
	`

	_, err := r.pool.Exec(ctx, query,
		campaign.ID, campaign.Name, campaign.Type,
		campaign.StartDate, campaign.Cost, campaign.CreatedAt,
	)
	return err
}

func collectCampaigns(rows pgx.Rows) ([]*contracts.Campaign, error) {
	var out []*contracts.Campaign
	for rows.Next() {
		var c contracts.Campaign
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Type, &c.StartDate, &c.Cost, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// --- CampaignCustomerRepository ---

type pgCustomers struct {
	pool *pgxpool.Pool
}

func (r *pgCustomers) ListByCampaign(ctx context.Context, campaignID string) ([]*contracts.CampaignCustomer, error) {
	query := `
		SELECT id, campaign_id, opportunity_id, associated_at,
			baseline_stage, baseline_year1_value, baseline_contract_value,
			baseline_close_date, baseline_has_pipeline, baseline_snapshot_date, stale
		FROM sales.campaign_customers
		WHERE campaign_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*contracts.CampaignCustomer
	for rows.Next() {
		var cc contracts.CampaignCustomer
		if err := rows.Scan(
			&cc.ID, &cc.CampaignID, &cc.OpportunityID, &cc.AssociatedAt,
			&cc.BaselineStage, &cc.BaselineYear1Value, &cc.BaselineContractValue,
			&cc.BaselineCloseDate, &cc.BaselineHasPipeline, &cc.BaselineSnapshotDate, &cc.Stale,
		); err != nil {
			return nil, err
		}
		out = append(out, &cc)
	}
	return out, rows.Err()
}

func (r *pgCustomers) Save(ctx context.Context, customer *contracts.CampaignCustomer) error {
	if customer.ID == 0 {
		query := `
			INSERT INTO sales.campaign_customers (
				campaign_id, opportunity_id, associated_at,
				baseline_stage, baseline_year1_value, baseline_contract_value,
				baseline_close_date, baseline_has_pipeline, baseline_snapshot_date, stale
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id
		`
		return r.pool.QueryRow(ctx, query,
			customer.CampaignID, customer.OpportunityID, customer.AssociatedAt,
			customer.BaselineStage, customer.BaselineYear1Value, customer.BaselineContractValue,
			customer.BaselineCloseDate, customer.BaselineHasPipeline,
			customer.BaselineSnapshotDate, customer.Stale,
		).Scan(&customer.ID)
	}

	query := `
		UPDATE sales.campaign_customers SET
			campaign_id = $2,
			opportunity_id = $3,
			associated_at = $4,
			baseline_stage = $5,
			baseline_year1_value = $6,
			baseline_contract_value = $7,
			baseline_close_date = $8,
			baseline_has_pipeline = $9,
			baseline_snapshot_date = $10,
			stale = $11
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		customer.ID, customer.CampaignID, customer.OpportunityID, customer.AssociatedAt,
		customer.BaselineStage, customer.BaselineYear1Value, customer.BaselineContractValue,
		customer.BaselineCloseDate, customer.BaselineHasPipeline,
		customer.BaselineSnapshotDate, customer.Stale,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return contracts.ErrNotFound
	}
	return nil
}

func (r *pgCustomers) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sales.campaign_customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return contracts.ErrNotFound
	}
	return nil
}
