package testhelpers

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"athena/interview/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	openSQLite = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	}
	migrateSchema = func(db *gorm.DB) error { return db.AutoMigrate(models.AllModels()...) }
)

// SetupTestDB creates an isolated in-memory SQLite database for tests.
// A single connection serializes statements so concurrent tests exercise the
// unique indexes instead of SQLite's table locks.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := openSQLite(dsn)
	if err != nil {
		panic(fmt.Sprintf("failed to open test database: %v", err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(fmt.Sprintf("failed to access sql.DB: %v", err))
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := migrateSchema(db); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}
	return db
}

// DropAttemptTable removes the attempts table to force repository errors.
func DropAttemptTable(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.Migrator().DropTable(&models.InterviewAttempt{}); err != nil {
		panic(fmt.Sprintf("failed to drop attempt table: %v", err))
	}
}
