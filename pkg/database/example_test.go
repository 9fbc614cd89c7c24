package database_test

import (
	"context"
	"fmt"
	"log"

	"github.com/wonny/revops/pkg/config"
	"github.com/wonny/revops/pkg/database"
)

// Example demonstrates basic database connection usage.
// No Output comment: requires a live database.
func Example() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	status, err := db.HealthCheck(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("healthy=%v conns=%d/%d\n",
		status.Healthy, status.Stats.TotalConns, status.Stats.MaxConns)
}
