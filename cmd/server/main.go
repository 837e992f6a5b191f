package main

import (
	"github.com/turkwise/graphmem/internal/server"
	"github.com/turkwise/graphmem/internal/util"
	"github.com/turkwise/graphmem/pkg/logger"
	"github.com/turkwise/graphmem/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
