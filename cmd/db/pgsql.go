package db

import (
	"BPIApi/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens the PostgreSQL connection shared by models and services.
func Connect(dsn string, debug bool) error {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return logger.WrapError(err, "open postgres")
	}

	DB = conn
	return nil
}

// Close releases the underlying sql.DB.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return logger.WrapError(err, "")
	}
	return sqlDB.Close()
}
