package main

import (
	"os"

	"github.com/wonny/cryptorank/cmd/rank/commands"
)

// main is the entry point for the cryptorank CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/rank [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
