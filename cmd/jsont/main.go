package main

import (
	"os"

	"github.com/benjaminschreck/go-jsont/cmd/jsont/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
