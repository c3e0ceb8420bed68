package main

import (
	"os"

	"github.com/satishbabariya/prisma-engine/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
