package contracts

import (
	"errors"
	"fmt"
	"time"
)

// ⭐ SSOT: 도메인 에러 타입 정의는 여기서만

// ErrNotFound marks an absent row. Absence of data is not a failure;
// callers distinguish it from real errors with errors.Is.
var ErrNotFound = errors.New("not found")

// DataIntegrityError reports a snapshot referencing an unknown opportunity.
// The record is rejected; an orphan opportunity is never auto-created.
type DataIntegrityError struct {
	OpportunityID string
	Detail        string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity: opportunity %s: %s", e.OpportunityID, e.Detail)
}

// AmbiguousMatchError reports a name-only lookup matching more than one
// active opportunity. Matching never guesses.
type AmbiguousMatchError struct {
	Name  string
	Count int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous match: %d active opportunities named %q", e.Count, e.Name)
}

// MissingAttributionDateError reports a closed snapshot with no usable
// date for rate calculations. The record is excluded from both sides of
// the rate, never silently counted as a win or loss.
type MissingAttributionDateError struct {
	OpportunityID string
	SnapshotDate  time.Time
}

func (e *MissingAttributionDateError) Error() string {
	return fmt.Sprintf("missing attribution date: opportunity %s snapshot %s",
		e.OpportunityID, e.SnapshotDate.Format("2006-01-02"))
}

// StaleBaselineWarning is a non-fatal condition carried on results.
// The customer is treated as Closed Lost for win-rate and CAC math.
type StaleBaselineWarning struct {
	CampaignID    string    `json:"campaign_id"`
	OpportunityID string    `json:"opportunity_id"`
	RequestedDate time.Time `json:"requested_date"`
	SnapshotDate  time.Time `json:"snapshot_date"`
	DistanceDays  int       `json:"distance_days"`
}

func (w StaleBaselineWarning) String() string {
	return fmt.Sprintf("stale baseline: opportunity %s snapshot %s is %dd from requested %s",
		w.OpportunityID, w.SnapshotDate.Format("2006-01-02"),
		w.DistanceDays, w.RequestedDate.Format("2006-01-02"))
}
