package main

import (
	"os"

	"github.com/2Arong/BITA-Active-ETF/cmd/etf/commands"
)

// main is the entry point for the BITA Active ETF CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/etf [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
