package main

import (
	"audiencesync/internal/app"
	"audiencesync/internal/config"
)

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.Server.LogLevel)
	app.Run(cfg)
}
