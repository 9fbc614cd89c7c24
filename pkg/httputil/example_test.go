package httputil_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/wonny/revops/pkg/config"
	"github.com/wonny/revops/pkg/httputil"
	"github.com/wonny/revops/pkg/logger"
)

// Example demonstrates fetching a snapshot export with retry and
// rate limiting. No Output comment: requires a live export host.
func Example() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logg := logger.New(cfg)

	client := httputil.NewWithTimeout(cfg, logg, cfg.Export.Timeout).
		WithRetry(3, 2*time.Second).
		WithRateLimit(cfg.Export.RateLimit, 1)

	resp, err := client.Get(context.Background(), cfg.Export.BaseURL+"/exports/latest.csv")
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("fetched %d bytes\n", len(body))
}
