package main

import (
	"campaign-scheduler/internal/app"
	"campaign-scheduler/internal/config"
)

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.Server.LogLevel, cfg.Server.LogFormat)
	app.Run(cfg)
}
