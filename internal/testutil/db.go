// Package testutil wires the shared database handle to in-memory SQLite for tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"BPIApi/cmd/db"
	"BPIApi/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SetupDB opens a fresh in-memory database, migrates every model and points
// db.DB at it for the duration of the test.
func SetupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := models.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	previous := db.DB
	db.DB = conn
	t.Cleanup(func() {
		db.DB = previous
		sqlDB.Close()
	})

	return conn
}

// CreateUser inserts a user with a unique email/username and optional sponsor.
func CreateUser(t *testing.T, conn *gorm.DB, username string, sponsorID *int64) *models.User {
	t.Helper()

	user := models.User{
		Email:        username + "@bpi.test",
		Username:     username,
		Password:     "x",
		Role:         models.RoleUser,
		ReferralCode: strings.ToUpper("REF" + username),
		SponsorID:    sponsorID,
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return &user
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
