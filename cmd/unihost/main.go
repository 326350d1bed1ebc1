package main

import (
	"fmt"
	"os"

	"github.com/avolkov/unihost/internal/commands"
)

// Version is overridden at build time via -ldflags
var Version = "dev"

func main() {
	commands.Version = Version

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
