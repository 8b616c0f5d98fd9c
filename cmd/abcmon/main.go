package main

import (
	"os"

	"abc-inventory-monitor/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
