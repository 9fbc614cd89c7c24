package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/revops/internal/contracts"
	"github.com/wonny/revops/internal/fiscal"
	"github.com/wonny/revops/internal/identity"
	"github.com/wonny/revops/pkg/logger"
	"github.com/wonny/revops/pkg/telemetry"
)

// Ingestor turns normalized CSV exports into snapshot batches.
// Row-level problems reject that row only; the batch keeps going.
// ⭐ 스냅샷은 불변: 같은 (기회, 날짜) 재적재는 해당 행 거부
type Ingestor struct {
	resolver      *identity.Resolver
	opportunities contracts.OpportunityRepository
	snapshots     contracts.SnapshotRepository
	batches       contracts.BatchRepository
	telemetry     *telemetry.Metrics
	logger        *logger.Logger
}

// New creates an ingestor
func New(resolver *identity.Resolver, opps contracts.OpportunityRepository, snaps contracts.SnapshotRepository, batches contracts.BatchRepository, tel *telemetry.Metrics, log *logger.Logger) *Ingestor {
	return &Ingestor{
		resolver:      resolver,
		opportunities: opps,
		snapshots:     snaps,
		batches:       batches,
		telemetry:     tel,
		logger:        log,
	}
}

// BatchResult reports one ingest run record by record
type BatchResult struct {
	Batch   *contracts.Batch         `json:"batch"`
	Records []contracts.RecordResult `json:"records"`
}

// Ingest reads one export and stores its rows as snapshots dated
// snapshotDate. Identity is resolved per record; rows that fail
// parsing, id validation or the snapshot-immutability check are
// rejected individually with a reason while the rest proceed.
func (ing *Ingestor) Ingest(ctx context.Context, source string, snapshotDate time.Time, r io.Reader) (*BatchResult, error) {
	batch := &contracts.Batch{
		ID:           uuid.NewString(),
		Source:       source,
		SnapshotDate: fiscal.DateOnly(snapshotDate),
		CreatedAt:    time.Now().UTC(),
	}
	result := &BatchResult{Batch: batch}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // 열 개수 검증은 parseRow에서
	reader.TrimLeadingSpace = true

	row := 0
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read export: %w", err)
		}
		row++
		if row == 1 && isHeader(fields) {
			continue
		}

		res := ing.ingestRow(ctx, batch, fields)
		res.Row = row
		batch.Total++
		if res.Status == contracts.RecordRejected {
			batch.Rejected++
			ing.logger.WithFields(map[string]interface{}{
				"batch_id": batch.ID,
				"row":      row,
				"reason":   res.Reason,
			}).Warn("Export row rejected")
		} else {
			batch.Accepted++
		}
		ing.telemetry.IngestRecords.WithLabelValues(res.Status).Inc()
		result.Records = append(result.Records, res)
	}

	if err := ing.batches.Save(ctx, batch); err != nil {
		return nil, fmt.Errorf("save batch: %w", err)
	}
	ing.telemetry.IngestBatches.Inc()

	ing.logger.WithFields(map[string]interface{}{
		"batch_id":      batch.ID,
		"source":        source,
		"snapshot_date": batch.SnapshotDate.Format(time.DateOnly),
		"total":         batch.Total,
		"accepted":      batch.Accepted,
		"rejected":      batch.Rejected,
	}).Info("Ingest batch completed")
	return result, nil
}

func (ing *Ingestor) ingestRow(ctx context.Context, batch *contracts.Batch, fields []string) contracts.RecordResult {
	rec, err := parseRow(fields)
	if err != nil {
		return contracts.RecordResult{Status: contracts.RecordRejected, Reason: err.Error()}
	}

	opp, created, err := ing.resolver.Resolve(ctx, rec.Record)
	if err != nil {
		return contracts.RecordResult{ExternalID: rec.ExternalID, Status: contracts.RecordRejected, Reason: err.Error()}
	}

	exists, err := ing.snapshots.Exists(ctx, opp.ID, batch.SnapshotDate)
	if err != nil {
		return contracts.RecordResult{ExternalID: rec.ExternalID, Status: contracts.RecordRejected, Reason: err.Error()}
	}
	if exists {
		return contracts.RecordResult{
			ExternalID: rec.ExternalID,
			Status:     contracts.RecordRejected,
			Reason:     fmt.Sprintf("snapshot for %s already exists", batch.SnapshotDate.Format(time.DateOnly)),
		}
	}

	snap := &contracts.Snapshot{
		OpportunityID:   opp.ID,
		BatchID:         batch.ID,
		SnapshotDate:    batch.SnapshotDate,
		Stage:           rec.Stage,
		Confidence:      rec.Confidence,
		Amount:          rec.Amount,
		Year1Value:      rec.Year1Value,
		ContractValue:   rec.ContractValue,
		ExpectedClose:   rec.ExpectedClose,
		CloseDate:       rec.CloseDate,
		EnteredPipeline: rec.EnteredPipeline,
		LossReason:      rec.LossReason,
		CreatedDate:     rec.CreatedDate,
		LastModified:    rec.LastModified,
	}
	if err := ing.snapshots.Save(ctx, snap); err != nil {
		return contracts.RecordResult{ExternalID: rec.ExternalID, Status: contracts.RecordRejected, Reason: err.Error()}
	}

	status := contracts.RecordUpdated
	if created {
		status = contracts.RecordCreated
	}
	return contracts.RecordResult{ExternalID: rec.ExternalID, Status: status}
}

// DeleteBatch removes one batch and the snapshots it loaded.
// Opportunities stay; later batches may still reference them.
func (ing *Ingestor) DeleteBatch(ctx context.Context, id string) error {
	if _, err := ing.batches.GetByID(ctx, id); err != nil {
		return err
	}
	if err := ing.snapshots.DeleteByBatch(ctx, id); err != nil {
		return fmt.Errorf("delete batch snapshots: %w", err)
	}
	return ing.batches.Delete(ctx, id)
}

// Clear wipes all snapshot data: snapshots, opportunities and batches
func (ing *Ingestor) Clear(ctx context.Context) error {
	if err := ing.snapshots.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear snapshots: %w", err)
	}
	if err := ing.opportunities.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear opportunities: %w", err)
	}
	if err := ing.batches.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear batches: %w", err)
	}
	ing.logger.Warn("All snapshot data cleared")
	return nil
}

// Batches lists ingest batches, newest first
func (ing *Ingestor) Batches(ctx context.Context) ([]*contracts.Batch, error) {
	return ing.batches.List(ctx)
}
