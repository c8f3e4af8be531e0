package main

import (
	"os"

	"github.com/lumisearch/lumi/cmd/lumi/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
