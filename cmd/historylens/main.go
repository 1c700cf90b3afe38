package main

import (
	"log"

	"github.com/runnerr0/historylens/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Run(version); err != nil {
		log.Fatalf("historylens: %v", err)
	}
}
