// Package integration exercises the receipt workflow end to end against a
// real database, with repositories and application services wired the same
// way the server wires them.
package integration

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fiscaldesk/backend/internal/infrastructure/persistence/models"
)

// NewTestDB opens an in-memory database with the full schema. Each call
// returns an isolated database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.OrganizationModel{},
		&models.UserModel{},
		&models.CustomerModel{},
		&models.InvoiceModel{},
		&models.ReceiptModel{},
	))
	return db
}
