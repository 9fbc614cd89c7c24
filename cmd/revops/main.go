package main

import (
	"os"

	"github.com/wonny/revops/cmd/revops/commands"
)

// main is the entry point for the revops CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/revops [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
