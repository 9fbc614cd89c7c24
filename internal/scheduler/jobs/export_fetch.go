package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/revops/internal/external/crmexport"
	"github.com/wonny/revops/pkg/logger"
)

// ExportFetchJob pulls the nightly CRM snapshot export and ingests it.
// ⭐ SSOT: 내보내기 수집 스케줄은 이 Job에서만
type ExportFetchJob struct {
	fetcher *crmexport.Fetcher
	logger  *logger.Logger
}

// NewExportFetchJob creates an export fetch job
func NewExportFetchJob(fetcher *crmexport.Fetcher, log *logger.Logger) *ExportFetchJob {
	return &ExportFetchJob{
		fetcher: fetcher,
		logger:  log,
	}
}

// Name returns the job name
func (j *ExportFetchJob) Name() string {
	return "export_fetch"
}

// Schedule returns the cron schedule (every day at 2:30 AM)
func (j *ExportFetchJob) Schedule() string {
	return "0 30 2 * * *" // 2:30 AM daily (with seconds)
}

// Run fetches yesterday's export. The export host publishes a day's
// snapshot after that day closes, so "yesterday" is the newest file
// guaranteed to exist. A missing file is not a failure; the source
// skips weekends.
func (j *ExportFetchJob) Run(ctx context.Context) error {
	date := time.Now().UTC().AddDate(0, 0, -1)

	j.logger.WithField("snapshot_date", date.Format(time.DateOnly)).Info("Starting scheduled export fetch")

	result, err := j.fetcher.Run(ctx, date)
	if err != nil {
		if errors.Is(err, crmexport.ErrNoExport) {
			j.logger.WithField("snapshot_date", date.Format(time.DateOnly)).Info("No export published for date, skipping")
			return nil
		}
		return fmt.Errorf("fetch export: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"batch_id": result.Batch.ID,
		"accepted": result.Batch.Accepted,
		"rejected": result.Batch.Rejected,
	}).Info("Scheduled export fetch completed successfully")
	return nil
}
