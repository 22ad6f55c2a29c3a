package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"sensor-monitor-server/cmd/sensor-server/app"
	"sensor-monitor-server/cmd/sensor-server/app/options"
	"sensor-monitor-server/internal/logger"
)

func main() {
	// optional .env next to the binary; real deployments set the environment
	_ = godotenv.Load()

	option, err := options.NewOptions()
	if err != nil {
		fmt.Print(option.Usage(err))
		os.Exit(1)
	}

	log, err := logger.Setup(*option.LogFile, *option.Mode)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	if err := app.Run(option, log); err != nil {
		os.Exit(1)
	}
}
