package main

import (
	"os"

	"github.com/matthewbaird/turbine/cmd/turbine/commands"
	"github.com/matthewbaird/turbine/internal/logger"
)

func main() {
	err := commands.NewRootCmd().Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
