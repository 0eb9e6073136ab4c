package main

import (
	"os"

	"tradehistory/cmd/tradehistory/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
