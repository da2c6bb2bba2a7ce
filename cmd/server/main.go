package main

import (
	"github.com/intellicase/backend/internal/server"
	"github.com/intellicase/backend/internal/util"
	"github.com/intellicase/backend/pkg/logger"
	"github.com/intellicase/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Format: util.GetEnv("LOG_FORMAT"),
	})
	logger.Init(consoleLogger)

	server.Init()
}
