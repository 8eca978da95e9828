package main

import (
	"os"

	"mlscore/cmd/mls-interop/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
