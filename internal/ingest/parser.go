package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/revops/internal/fiscal"
	"github.com/wonny/revops/internal/identity"
)

// Normalized export column order. The exporter already mapped source
// fields to this fixed layout; there is no header mapping here.
const (
	colExternalID = iota
	colName
	colClient
	colOwner
	colStage
	colConfidence
	colAmount
	colYear1Value
	colContractValue
	colExpectedClose
	colCloseDate
	colEnteredPipeline
	colLossReason
	colCreatedDate
	colLastModified

	numColumns
)

// headerRow is the canonical first line of a normalized export.
// 이 한 줄만 헤더로 인정하고 건너뛴다
var headerRow = []string{
	"external_id", "name", "client", "owner", "stage", "confidence",
	"amount", "year1_value", "contract_value", "expected_close",
	"close_date", "entered_pipeline", "loss_reason", "created_date",
	"last_modified",
}

// record is one parsed export row before identity resolution
type record struct {
	identity.Record
	Stage           string
	Confidence      float64
	Amount          float64
	Year1Value      float64
	ContractValue   float64
	ExpectedClose   *time.Time
	CloseDate       *time.Time
	EnteredPipeline *time.Time
	LossReason      string
	LastModified    time.Time
}

func isHeader(row []string) bool {
	if len(row) != len(headerRow) {
		return false
	}
	for i, col := range headerRow {
		if strings.TrimSpace(row[i]) != col {
			return false
		}
	}
	return true
}

// parseRow turns one CSV row into a record. Every failure names the
// offending column so the batch result stays actionable.
func parseRow(row []string) (*record, error) {
	if len(row) != numColumns {
		return nil, fmt.Errorf("expected %d columns, got %d", numColumns, len(row))
	}

	rec := &record{
		Stage:      strings.TrimSpace(row[colStage]),
		LossReason: strings.TrimSpace(row[colLossReason]),
	}
	rec.ExternalID = strings.TrimSpace(row[colExternalID])
	rec.Name = strings.TrimSpace(row[colName])
	rec.Client = strings.TrimSpace(row[colClient])
	rec.Owner = strings.TrimSpace(row[colOwner])

	if rec.ExternalID == "" {
		return nil, fmt.Errorf("external_id is empty")
	}
	if rec.Name == "" {
		return nil, fmt.Errorf("name is empty")
	}
	if rec.Stage == "" {
		return nil, fmt.Errorf("stage is empty")
	}

	var err error
	if rec.Confidence, err = parseFloat(row[colConfidence]); err != nil {
		return nil, fmt.Errorf("parse confidence: %w", err)
	}
	if rec.Amount, err = parseFloat(row[colAmount]); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if rec.Year1Value, err = parseFloat(row[colYear1Value]); err != nil {
		return nil, fmt.Errorf("parse year1_value: %w", err)
	}
	if rec.ContractValue, err = parseFloat(row[colContractValue]); err != nil {
		return nil, fmt.Errorf("parse contract_value: %w", err)
	}
	if rec.ExpectedClose, err = parseDatePtr(row[colExpectedClose]); err != nil {
		return nil, fmt.Errorf("parse expected_close: %w", err)
	}
	if rec.CloseDate, err = parseDatePtr(row[colCloseDate]); err != nil {
		return nil, fmt.Errorf("parse close_date: %w", err)
	}
	if rec.EnteredPipeline, err = parseDatePtr(row[colEnteredPipeline]); err != nil {
		return nil, fmt.Errorf("parse entered_pipeline: %w", err)
	}
	if rec.CreatedDate, err = parseDate(row[colCreatedDate]); err != nil {
		return nil, fmt.Errorf("parse created_date: %w", err)
	}
	if rec.LastModified, err = parseDate(row[colLastModified]); err != nil {
		return nil, fmt.Errorf("parse last_modified: %w", err)
	}
	return rec, nil
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return fiscal.ParseDate(s)
}

func parseDatePtr(s string) (*time.Time, error) {
	t, err := parseDate(s)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}
