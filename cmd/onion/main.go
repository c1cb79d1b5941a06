package main

import (
	"os"

	"github.com/harun/onion/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
