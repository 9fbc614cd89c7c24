package contracts

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrNotFound_Wrapped(t *testing.T) {
	err := fmt.Errorf("load opportunity: %w", ErrNotFound)
	if !errors.Is(err, ErrNotFound) {
		t.Error("wrapped ErrNotFound should satisfy errors.Is")
	}
}

func TestTypedErrors_As(t *testing.T) {
	var wrapped error = fmt.Errorf("ingest row 7: %w", &DataIntegrityError{
		OpportunityID: "0065f00000AbCdE",
		Detail:        "snapshot references unknown opportunity",
	})

	var die *DataIntegrityError
	if !errors.As(wrapped, &die) {
		t.Fatal("expected errors.As to unwrap DataIntegrityError")
	}
	if die.OpportunityID != "0065f00000AbCdE" {
		t.Errorf("unexpected opportunity id %q", die.OpportunityID)
	}

	var ame *AmbiguousMatchError
	if errors.As(wrapped, &ame) {
		t.Error("DataIntegrityError should not match AmbiguousMatchError")
	}
}

func TestAmbiguousMatchError_Message(t *testing.T) {
	err := &AmbiguousMatchError{Name: "ACME Corp", Count: 3}
	if !strings.Contains(err.Error(), "3 active opportunities") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestStaleBaselineWarning_String(t *testing.T) {
	w := StaleBaselineWarning{
		CampaignID:    "summer-webinar",
		OpportunityID: "0065f00000AbCdE",
		RequestedDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		SnapshotDate:  time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
		DistanceDays:  18,
	}
	if !strings.Contains(w.String(), "18d") {
		t.Errorf("unexpected warning text: %s", w.String())
	}
}
