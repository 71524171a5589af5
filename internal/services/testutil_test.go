package services

import (
	"context"
	"testing"

	"github.com/arcade/backend/internal/database"
	"github.com/arcade/backend/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "open in-memory sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "unused"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func sampleInput(title string) DemoInput {
	return DemoInput{
		Title:       title,
		Description: "d",
		Type:        "interactive",
		Content:     "[]",
	}
}

func mustCreateDemo(t *testing.T, svc *DemoService, ownerID uuid.UUID, title string) *models.Demo {
	t.Helper()
	demo, err := svc.Create(context.Background(), ownerID, sampleInput(title))
	require.NoError(t, err)
	return demo
}
