package main

import (
	"os"
)

func main() {
	// Errors are printed by the command with color formatting
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
