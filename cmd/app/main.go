package main

import (
	"BPIApi/cmd/db"
	"BPIApi/internal/app"
	"BPIApi/internal/config"
	"BPIApi/internal/models"
	"BPIApi/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	logger.Setup(cfg.LogDir, cfg.GinMode != "release")
	defer logger.Close()

	if err = db.Connect(cfg.Postgres.DSN(), cfg.GinMode == "debug"); err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database: %v", err)
		}
	}()

	if err = models.AutoMigrate(db.DB); err != nil {
		logger.Fatal("Failed to migrate database: %v", err)
	}

	app.Start(cfg)
}
