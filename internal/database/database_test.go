package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/stellar-tasks/internal/config"
	"github.com/yukikurage/stellar-tasks/internal/models"
)

func TestConnect_SQLiteAndMigrate(t *testing.T) {
	cfg := &config.Config{
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "tasks.db"),
		GinMode:    "release",
	}

	db, err := Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		require.NoError(t, err)
		sqlDB.Close()
	})

	require.NoError(t, MigrateDatabase(db))

	for _, m := range Models() {
		require.True(t, db.Migrator().HasTable(m), "%T", m)
	}

	user := models.User{Username: "admin", PasswordHash: "hash", Role: models.RoleAdmin}
	require.NoError(t, db.Create(&user).Error)

	task := models.Task{
		CreatorID:     user.ID,
		Title:         "Write report",
		Description:   "Quarterly numbers",
		TodoChecklist: []models.ChecklistItem{{Text: "draft"}},
	}
	require.NoError(t, db.Create(&task).Error)

	var loaded models.Task
	require.NoError(t, db.First(&loaded, task.ID).Error)
	require.Equal(t, task.TodoChecklist, loaded.TodoChecklist)
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(&config.Config{DBDriver: "oracle"})
	require.Error(t, err)
}
