// Command casectl runs merges and queries against the case graph from the
// shell. Without --db every command works on an in-memory graph preloaded
// from the batch files given with --file.
package main

import (
	"os"

	"github.com/intellicase/backend/internal/util"
	"github.com/intellicase/backend/pkg/logger"
	"github.com/intellicase/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Format: util.GetEnv("LOG_FORMAT"),
	}))

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
